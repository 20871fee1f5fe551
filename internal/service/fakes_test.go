package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradepulse/push-pipeline/internal/domain"
	"github.com/tradepulse/push-pipeline/internal/provider"
	"github.com/tradepulse/push-pipeline/internal/repository"
)

type fakeIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*domain.Intent

	claimErr    error
	completeErr error
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: make(map[string]*domain.Intent)}
}

func (f *fakeIntentRepo) add(intent domain.Intent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := intent
	f.intents[intent.ID] = &copied
}

func (f *fakeIntentRepo) statusOf(id string) domain.IntentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if intent, ok := f.intents[id]; ok {
		return intent.Status
	}
	return ""
}

func (f *fakeIntentRepo) Create(_ context.Context, intent *domain.Intent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.intents[intent.ID]; exists {
		return domain.ErrConflict
	}
	copied := *intent
	f.intents[intent.ID] = &copied
	return nil
}

func (f *fakeIntentRepo) GetByID(_ context.Context, id string) (*domain.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *intent
	return &copied, nil
}

func (f *fakeIntentRepo) List(_ context.Context, params repository.IntentListParams) ([]domain.Intent, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Intent
	for _, intent := range f.intents {
		if params.Status != nil && intent.Status != *params.Status {
			continue
		}
		out = append(out, *intent)
	}
	return out, int64(len(out)), nil
}

// ClaimDue mirrors the store's two-step shape: an unlocked candidate scan
// followed by a per-row conditional flip, so overlapping drains race for the
// same rows and each row is handed to at most one caller.
func (f *fakeIntentRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]domain.Intent, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}

	f.mu.Lock()
	var candidates []string
	for id, intent := range f.intents {
		if len(candidates) >= limit {
			break
		}
		if intent.Status != domain.IntentPending || intent.ScheduledFor.After(now) {
			continue
		}
		candidates = append(candidates, id)
	}
	f.mu.Unlock()

	var claimed []domain.Intent
	for _, id := range candidates {
		f.mu.Lock()
		intent := f.intents[id]
		if intent == nil || intent.Status != domain.IntentPending {
			f.mu.Unlock()
			continue
		}
		intent.Status = domain.IntentProcessing
		claimed = append(claimed, *intent)
		f.mu.Unlock()
	}
	return claimed, nil
}

func (f *fakeIntentRepo) Complete(_ context.Context, id string, processed int, failed int) error {
	if f.completeErr != nil {
		return f.completeErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[id]
	if !ok || intent.Status != domain.IntentProcessing {
		return domain.ErrConflict
	}
	intent.Status = domain.IntentCompleted
	intent.ProcessedCount = processed
	intent.FailedCount = failed
	return nil
}

func (f *fakeIntentRepo) Fail(_ context.Context, id string, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[id]
	if !ok || intent.Status != domain.IntentProcessing {
		return domain.ErrConflict
	}
	intent.Status = domain.IntentFailed
	intent.ErrorMessage = &errorMessage
	return nil
}

func (f *fakeIntentRepo) Requeue(_ context.Context, id string, scheduledFor time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[id]
	if !ok || intent.Status != domain.IntentFailed {
		return domain.ErrConflict
	}
	intent.Status = domain.IntentPending
	intent.ScheduledFor = scheduledFor
	intent.ErrorMessage = nil
	intent.ProcessedCount = 0
	intent.FailedCount = 0
	return nil
}

type fakeEndpointRepo struct {
	mu        sync.Mutex
	endpoints []domain.DeliveryEndpoint

	activeErr error
}

func (f *fakeEndpointRepo) ActiveByRecipients(_ context.Context, recipientIDs []string) ([]domain.DeliveryEndpoint, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]struct{}, len(recipientIDs))
	for _, id := range recipientIDs {
		wanted[id] = struct{}{}
	}

	var out []domain.DeliveryEndpoint
	for _, endpoint := range f.endpoints {
		if !endpoint.Active {
			continue
		}
		if _, ok := wanted[endpoint.RecipientID]; ok {
			out = append(out, endpoint)
		}
	}
	return out, nil
}

func (f *fakeEndpointRepo) AllActiveRecipientIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{})
	var ids []string
	for _, endpoint := range f.endpoints {
		if !endpoint.Active {
			continue
		}
		if _, ok := seen[endpoint.RecipientID]; ok {
			continue
		}
		seen[endpoint.RecipientID] = struct{}{}
		ids = append(ids, endpoint.RecipientID)
	}
	return ids, nil
}

func (f *fakeEndpointRepo) DeactivateByTokens(_ context.Context, tokens []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		wanted[token] = struct{}{}
	}

	var deactivated int64
	for i := range f.endpoints {
		if !f.endpoints[i].Active {
			continue
		}
		if _, ok := wanted[f.endpoints[i].Token]; ok {
			f.endpoints[i].Active = false
			deactivated++
		}
	}
	return deactivated, nil
}

func (f *fakeEndpointRepo) activeTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tokens []string
	for _, endpoint := range f.endpoints {
		if endpoint.Active {
			tokens = append(tokens, endpoint.Token)
		}
	}
	return tokens
}

type fakePreferenceRepo struct {
	preferences map[string]domain.Preference
	byErr       error
}

func (f *fakePreferenceRepo) ByRecipients(_ context.Context, recipientIDs []string) (map[string]domain.Preference, error) {
	if f.byErr != nil {
		return nil, f.byErr
	}

	out := make(map[string]domain.Preference, len(recipientIDs))
	for _, id := range recipientIDs {
		if pref, ok := f.preferences[id]; ok {
			out[id] = pref
		}
	}
	return out, nil
}

func (f *fakePreferenceRepo) WhaleSubscriberIDs(_ context.Context, usdValue decimal.Decimal) ([]string, error) {
	var ids []string
	for id, pref := range f.preferences {
		if !pref.NotificationsEnabled || !pref.WhaleAlertsEnabled {
			continue
		}
		if pref.WhaleThresholdUSD.GreaterThan(usdValue) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeFollowRepo struct {
	followers map[string][]string
	err       error
}

func (f *fakeFollowRepo) TradeNotifiedFollowerIDs(_ context.Context, kolWallet string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.followers[kolWallet], nil
}

type fakeRecordRepo struct {
	mu       sync.Mutex
	pairs    map[string]struct{}
	inserted []domain.DeliveryRecord

	createErr error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{pairs: make(map[string]struct{})}
}

func (f *fakeRecordRepo) CreateIgnoreDuplicate(_ context.Context, record *domain.DeliveryRecord) (bool, error) {
	if f.createErr != nil {
		return false, f.createErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := record.RecipientID + "|" + record.IntentID
	if _, exists := f.pairs[key]; exists {
		return false, nil
	}
	f.pairs[key] = struct{}{}
	f.inserted = append(f.inserted, *record)
	return true, nil
}

func (f *fakeRecordRepo) UnreadCount(_ context.Context, recipientID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, record := range f.inserted {
		if record.RecipientID == recipientID && !record.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeRecordRepo) MarkRead(_ context.Context, recipientID string, recordIDs []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]struct{}, len(recordIDs))
	for _, id := range recordIDs {
		wanted[id] = struct{}{}
	}

	var marked int64
	for i := range f.inserted {
		if f.inserted[i].RecipientID != recipientID || f.inserted[i].Read {
			continue
		}
		if _, ok := wanted[f.inserted[i].ID]; ok {
			f.inserted[i].Read = true
			marked++
		}
	}
	return marked, nil
}

func (f *fakeRecordRepo) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

// fakeProvider returns canned receipts per token, defaulting to ok. Batches
// can be failed wholesale by index to exercise chunk isolation.
type fakeProvider struct {
	mu         sync.Mutex
	calls      int
	batchSizes []int
	sentTokens []string

	receiptsByToken map[string]provider.Receipt
	failBatchIndex  map[int]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		receiptsByToken: make(map[string]provider.Receipt),
		failBatchIndex:  make(map[int]error),
	}
}

func (f *fakeProvider) SendBatch(_ context.Context, messages []provider.PushMessage) ([]provider.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	batchIndex := f.calls
	f.calls++
	f.batchSizes = append(f.batchSizes, len(messages))

	if err, ok := f.failBatchIndex[batchIndex]; ok {
		return nil, err
	}

	receipts := make([]provider.Receipt, 0, len(messages))
	for _, message := range messages {
		f.sentTokens = append(f.sentTokens, message.Token)
		if receipt, ok := f.receiptsByToken[message.Token]; ok {
			receipts = append(receipts, receipt)
			continue
		}
		receipts = append(receipts, provider.Receipt{Status: provider.ReceiptOK})
	}
	return receipts, nil
}

type fakeLimiter struct {
	mu      sync.Mutex
	waits   int
	waitErr error
}

func (f *fakeLimiter) Allow(context.Context, string) (bool, error) {
	return f.waitErr == nil, f.waitErr
}

func (f *fakeLimiter) Wait(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits++
	return f.waitErr
}

type fakeUnread struct {
	mu     sync.Mutex
	counts map[string]int
	addErr error
}

func newFakeUnread() *fakeUnread {
	return &fakeUnread{counts: make(map[string]int)}
}

func (f *fakeUnread) Add(_ context.Context, recipientID string, delta int) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[recipientID] += delta
	return nil
}

func (f *fakeUnread) countFor(recipientID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[recipientID]
}
