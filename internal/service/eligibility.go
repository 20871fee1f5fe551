package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tradepulse/push-pipeline/internal/domain"
	"github.com/tradepulse/push-pipeline/internal/observability"
	"github.com/tradepulse/push-pipeline/internal/repository"
	"go.uber.org/zap"
)

// EligibilityFilter prunes candidate endpoints against per-recipient
// preferences, quiet hours, and the per-category rule table.
type EligibilityFilter struct {
	preferences repository.PreferenceRepository
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewEligibilityFilter(preferences repository.PreferenceRepository, logger *zap.Logger) (*EligibilityFilter, error) {
	if preferences == nil {
		return nil, fmt.Errorf("preference repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EligibilityFilter{
		preferences: preferences,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (f *EligibilityFilter) SetMetrics(metrics *observability.Metrics) {
	if f == nil {
		return
	}
	f.metrics = metrics
}

// Eligible returns the endpoints that may receive this notification,
// deduplicated by token. A recipient without a preference row is eligible:
// a misconfigured settings record must not silently swallow alerts.
func (f *EligibilityFilter) Eligible(
	ctx context.Context,
	endpoints []domain.DeliveryEndpoint,
	category domain.Category,
	payload domain.Payload,
) ([]domain.DeliveryEndpoint, error) {
	if len(endpoints) == 0 {
		return nil, nil
	}

	recipientIDs := make([]string, 0, len(endpoints))
	seenRecipients := make(map[string]struct{}, len(endpoints))
	for _, endpoint := range endpoints {
		if _, ok := seenRecipients[endpoint.RecipientID]; ok {
			continue
		}
		seenRecipients[endpoint.RecipientID] = struct{}{}
		recipientIDs = append(recipientIDs, endpoint.RecipientID)
	}

	preferences, err := f.preferences.ByRecipients(ctx, recipientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	now := f.now()
	eligible := make([]domain.DeliveryEndpoint, 0, len(endpoints))
	seenTokens := make(map[string]struct{}, len(endpoints))

	for _, endpoint := range endpoints {
		if _, ok := seenTokens[endpoint.Token]; ok {
			continue
		}

		pref, found := preferences[endpoint.RecipientID]
		if found && !f.recipientEligible(pref, category, payload, now) {
			continue
		}

		seenTokens[endpoint.Token] = struct{}{}
		eligible = append(eligible, endpoint)
	}

	return eligible, nil
}

func (f *EligibilityFilter) recipientEligible(
	pref domain.Preference,
	category domain.Category,
	payload domain.Payload,
	now time.Time,
) bool {
	if !pref.NotificationsEnabled {
		return false
	}

	// Security alerts ignore quiet hours: a compromised-account warning at
	// 03:00 is the point of having them.
	if category != domain.CategorySecurity {
		suppressed, err := pref.QuietHours.SuppressedAt(now)
		if err != nil {
			// Fail open: a broken timezone must not silently drop alerts.
			f.logger.Warn("quiet hours check failed, treating as not suppressed",
				zap.String("recipientId", pref.RecipientID),
				zap.Error(err),
			)
		} else if suppressed {
			if f.metrics != nil {
				f.metrics.IncQuietHoursSuppressed()
			}
			return false
		}
	}

	return categoryEligible(pref, category, payload)
}

// categoryEligible applies the per-category toggle table. Categories absent
// from the table are system-class and always pass.
func categoryEligible(pref domain.Preference, category domain.Category, payload domain.Payload) bool {
	switch category {
	case domain.CategoryWhaleAlert:
		if !pref.WhaleAlertsEnabled {
			return false
		}
		if usdValue, ok := payload.USDValue(); ok && usdValue.LessThan(pref.WhaleThresholdUSD) {
			return false
		}
		return true

	case domain.CategoryKOLTrade:
		return pref.KOLActivityEnabled && pref.KOLTradeNotifications
	case domain.CategoryKOLNewPosition:
		return pref.KOLActivityEnabled && pref.KOLNewPositionNotifications
	case domain.CategoryKOLTierChange:
		return pref.KOLActivityEnabled && pref.KOLTierChangeNotifications

	case domain.CategoryPortfolioAlert, domain.CategoryPriceAlert:
		return pref.PortfolioAlertsEnabled
	case domain.CategoryPnlAlert:
		return pref.PortfolioAlertsEnabled && pref.PnlAlertsEnabled

	case domain.CategoryCopyTradeExecuted:
		return pref.CopyTradeEnabled && pref.CopyTradeExecuted
	case domain.CategoryCopyTradeFailed:
		return pref.CopyTradeEnabled && pref.CopyTradeFailed

	case domain.CategoryNewFollower:
		return pref.NewFollower
	case domain.CategoryNewCopyTrader:
		return pref.NewCopyTrader
	case domain.CategoryLeaderboard:
		return pref.Leaderboard
	case domain.CategoryTrendingToken:
		return pref.TrendingToken
	case domain.CategoryNewListing:
		return pref.NewListing

	default:
		return true
	}
}
