package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradepulse/push-pipeline/internal/domain"
	"go.uber.org/zap"
)

func allOnPreference(recipientID string) domain.Preference {
	return domain.Preference{
		RecipientID:                 recipientID,
		NotificationsEnabled:        true,
		WhaleAlertsEnabled:          true,
		WhaleThresholdUSD:           decimal.NewFromInt(10_000),
		KOLActivityEnabled:          true,
		KOLTradeNotifications:       true,
		KOLNewPositionNotifications: true,
		KOLTierChangeNotifications:  true,
		PortfolioAlertsEnabled:      true,
		PnlAlertsEnabled:            true,
		CopyTradeEnabled:            true,
		CopyTradeExecuted:           true,
		CopyTradeFailed:             true,
		NewFollower:                 true,
		NewCopyTrader:               true,
		Leaderboard:                 true,
		TrendingToken:               true,
		NewListing:                  true,
	}
}

func newTestFilter(t *testing.T, prefs *fakePreferenceRepo, now time.Time) *EligibilityFilter {
	t.Helper()

	filter, err := NewEligibilityFilter(prefs, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEligibilityFilter() error = %v", err)
	}
	if !now.IsZero() {
		filter.now = func() time.Time { return now }
	}
	return filter
}

func endpointFor(recipientID, token string) domain.DeliveryEndpoint {
	return domain.DeliveryEndpoint{
		ID:          "endpoint-" + token,
		RecipientID: recipientID,
		Token:       token,
		Active:      true,
	}
}

func TestEligibleMasterToggleOff(t *testing.T) {
	t.Parallel()

	pref := allOnPreference("r1")
	pref.NotificationsEnabled = false
	prefs := &fakePreferenceRepo{preferences: map[string]domain.Preference{"r1": pref}}
	filter := newTestFilter(t, prefs, time.Time{})

	got, err := filter.Eligible(context.Background(), []domain.DeliveryEndpoint{endpointFor("r1", "t1")}, domain.CategoryWhaleAlert, nil)
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Eligible() = %v, want empty when master toggle is off", got)
	}
}

func TestEligibleMissingPreferenceRowIsEligible(t *testing.T) {
	t.Parallel()

	prefs := &fakePreferenceRepo{preferences: map[string]domain.Preference{}}
	filter := newTestFilter(t, prefs, time.Time{})

	got, err := filter.Eligible(context.Background(), []domain.DeliveryEndpoint{endpointFor("r1", "t1")}, domain.CategoryWhaleAlert, nil)
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Eligible() returned %d endpoints, want 1: no preference row must not suppress delivery", len(got))
	}
}

func TestEligibleQuietHoursSuppression(t *testing.T) {
	t.Parallel()

	pref := allOnPreference("r1")
	pref.QuietHours = domain.QuietHours{
		Enabled:    true,
		StartLocal: "22:00",
		EndLocal:   "08:00",
		Timezone:   "UTC",
	}
	prefs := &fakePreferenceRepo{preferences: map[string]domain.Preference{"r1": pref}}

	inside := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	outside := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	filter := newTestFilter(t, prefs, inside)
	got, err := filter.Eligible(context.Background(), []domain.DeliveryEndpoint{endpointFor("r1", "t1")}, domain.CategoryWhaleAlert, nil)
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Eligible() inside quiet hours returned %d endpoints, want 0", len(got))
	}

	filter = newTestFilter(t, prefs, outside)
	got, err = filter.Eligible(context.Background(), []domain.DeliveryEndpoint{endpointFor("r1", "t1")}, domain.CategoryWhaleAlert, nil)
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Eligible() outside quiet hours returned %d endpoints, want 1", len(got))
	}
}

func TestEligibleSecurityIgnoresQuietHours(t *testing.T) {
	t.Parallel()

	pref := allOnPreference("r1")
	pref.QuietHours = domain.QuietHours{
		Enabled:    true,
		StartLocal: "22:00",
		EndLocal:   "08:00",
		Timezone:   "UTC",
	}
	prefs := &fakePreferenceRepo{preferences: map[string]domain.Preference{"r1": pref}}
	filter := newTestFilter(t, prefs, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC))

	got, err := filter.Eligible(context.Background(), []domain.DeliveryEndpoint{endpointFor("r1", "t1")}, domain.CategorySecurity, nil)
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Eligible() returned %d endpoints, want 1: security alerts bypass quiet hours", len(got))
	}
}

func TestEligibleQuietHoursFailOpenOnBadTimezone(t *testing.T) {
	t.Parallel()

	pref := allOnPreference("r1")
	pref.QuietHours = domain.QuietHours{
		Enabled:    true,
		StartLocal: "22:00",
		EndLocal:   "08:00",
		Timezone:   "Mars/Olympus_Mons",
	}
	prefs := &fakePreferenceRepo{preferences: map[string]domain.Preference{"r1": pref}}
	filter := newTestFilter(t, prefs, time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))

	got, err := filter.Eligible(context.Background(), []domain.DeliveryEndpoint{endpointFor("r1", "t1")}, domain.CategoryWhaleAlert, nil)
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Eligible() returned %d endpoints, want 1: broken timezone must fail open", len(got))
	}
}

func TestEligibleWhaleThreshold(t *testing.T) {
	t.Parallel()

	pref := allOnPreference("r1")
	pref.WhaleThresholdUSD = decimal.NewFromInt(100_000)
	prefs := &fakePreferenceRepo{preferences: map[string]domain.Preference{"r1": pref}}
	filter := newTestFilter(t, prefs, time.Time{})

	endpoints := []domain.DeliveryEndpoint{endpointFor("r1", "t1")}

	got, err := filter.Eligible(context.Background(), endpoints, domain.CategoryWhaleAlert, domain.Payload{"usd_value": 50_000.0})
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Eligible() below threshold returned %d endpoints, want 0", len(got))
	}

	got, err = filter.Eligible(context.Background(), endpoints, domain.CategoryWhaleAlert, domain.Payload{"usd_value": 100_000.0})
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Eligible() at threshold returned %d endpoints, want 1", len(got))
	}

	// Without a usd_value the threshold cannot apply; the toggle decides.
	got, err = filter.Eligible(context.Background(), endpoints, domain.CategoryWhaleAlert, nil)
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Eligible() without usd_value returned %d endpoints, want 1", len(got))
	}
}

func TestEligibleCategoryToggles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category domain.Category
		mutate   func(pref *domain.Preference)
		want     bool
	}{
		{
			name:     "kol trade requires both toggles",
			category: domain.CategoryKOLTrade,
			mutate:   func(pref *domain.Preference) { pref.KOLTradeNotifications = false },
			want:     false,
		},
		{
			name:     "kol trade parent toggle off",
			category: domain.CategoryKOLTrade,
			mutate:   func(pref *domain.Preference) { pref.KOLActivityEnabled = false },
			want:     false,
		},
		{
			name:     "pnl requires portfolio parent",
			category: domain.CategoryPnlAlert,
			mutate:   func(pref *domain.Preference) { pref.PortfolioAlertsEnabled = false },
			want:     false,
		},
		{
			name:     "price alert follows portfolio toggle",
			category: domain.CategoryPriceAlert,
			mutate:   func(pref *domain.Preference) {},
			want:     true,
		},
		{
			name:     "copy trade failed toggle off",
			category: domain.CategoryCopyTradeFailed,
			mutate:   func(pref *domain.Preference) { pref.CopyTradeFailed = false },
			want:     false,
		},
		{
			name:     "trending token toggle off",
			category: domain.CategoryTrendingToken,
			mutate:   func(pref *domain.Preference) { pref.TrendingToken = false },
			want:     false,
		},
		{
			name:     "system category always passes",
			category: domain.CategorySystem,
			mutate: func(pref *domain.Preference) {
				pref.WhaleAlertsEnabled = false
				pref.KOLActivityEnabled = false
				pref.PortfolioAlertsEnabled = false
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pref := allOnPreference("r1")
			tt.mutate(&pref)
			prefs := &fakePreferenceRepo{preferences: map[string]domain.Preference{"r1": pref}}
			filter := newTestFilter(t, prefs, time.Time{})

			got, err := filter.Eligible(context.Background(), []domain.DeliveryEndpoint{endpointFor("r1", "t1")}, tt.category, nil)
			if err != nil {
				t.Fatalf("Eligible() error = %v", err)
			}
			if eligible := len(got) == 1; eligible != tt.want {
				t.Errorf("Eligible(%s) = %v, want %v", tt.category, eligible, tt.want)
			}
		})
	}
}

func TestEligibleDedupesTokens(t *testing.T) {
	t.Parallel()

	prefs := &fakePreferenceRepo{preferences: map[string]domain.Preference{
		"r1": allOnPreference("r1"),
		"r2": allOnPreference("r2"),
	}}
	filter := newTestFilter(t, prefs, time.Time{})

	// Same physical device registered under two recipients.
	endpoints := []domain.DeliveryEndpoint{
		endpointFor("r1", "shared-token"),
		endpointFor("r2", "shared-token"),
		endpointFor("r2", "own-token"),
	}

	got, err := filter.Eligible(context.Background(), endpoints, domain.CategoryWhaleAlert, nil)
	if err != nil {
		t.Fatalf("Eligible() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Eligible() returned %d endpoints, want 2 after token dedupe", len(got))
	}
	if got[0].Token != "shared-token" || got[1].Token != "own-token" {
		t.Errorf("Eligible() tokens = [%s %s], want [shared-token own-token]", got[0].Token, got[1].Token)
	}
}
