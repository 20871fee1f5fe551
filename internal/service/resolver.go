package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tradepulse/push-pipeline/internal/domain"
	"github.com/tradepulse/push-pipeline/internal/repository"
	"go.uber.org/zap"
)

// Resolver expands an intent's target descriptor into concrete recipient ids.
type Resolver struct {
	follows     repository.FollowRepository
	preferences repository.PreferenceRepository
	endpoints   repository.EndpointRepository
	logger      *zap.Logger
}

func NewResolver(
	follows repository.FollowRepository,
	preferences repository.PreferenceRepository,
	endpoints repository.EndpointRepository,
	logger *zap.Logger,
) (*Resolver, error) {
	if follows == nil {
		return nil, fmt.Errorf("follow repository is required")
	}
	if preferences == nil {
		return nil, fmt.Errorf("preference repository is required")
	}
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		follows:     follows,
		preferences: preferences,
		endpoints:   endpoints,
		logger:      logger,
	}, nil
}

// Resolve returns the deduplicated recipient set for a target. Unknown
// descriptor kinds resolve to nobody: one unrecognized intent must not halt
// the drain loop.
func (r *Resolver) Resolve(ctx context.Context, target domain.Target, payload domain.Payload) ([]string, error) {
	switch t := target.(type) {
	case domain.TargetSpecific:
		return dedupeRecipients(t.Wallets), nil

	case domain.TargetFollowers:
		kolWallet := strings.TrimSpace(t.KOLWallet)
		if kolWallet == "" {
			r.logger.Warn("followers target without kol wallet, resolving to empty set")
			return nil, nil
		}
		ids, err := r.follows.TradeNotifiedFollowerIDs(ctx, kolWallet)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve followers of %s: %w", kolWallet, err)
		}
		return dedupeRecipients(ids), nil

	case domain.TargetWhaleSubscribers:
		usdValue, ok := payload.USDValue()
		if !ok {
			r.logger.Warn("whale subscribers target without usd_value payload, resolving to empty set")
			return nil, nil
		}
		ids, err := r.preferences.WhaleSubscriberIDs(ctx, usdValue)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve whale subscribers: %w", err)
		}
		return dedupeRecipients(ids), nil

	case domain.TargetAll:
		ids, err := r.endpoints.AllActiveRecipientIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve all recipients: %w", err)
		}
		return dedupeRecipients(ids), nil

	default:
		kind := "<nil>"
		if target != nil {
			kind = target.Kind()
		}
		r.logger.Warn("unsupported target kind, resolving to empty set", zap.String("kind", kind))
		return nil, nil
	}
}

func dedupeRecipients(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(ids))
	deduped := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		deduped = append(deduped, trimmed)
	}
	return deduped
}
