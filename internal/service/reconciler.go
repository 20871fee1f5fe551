package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradepulse/push-pipeline/internal/domain"
	"github.com/tradepulse/push-pipeline/internal/observability"
	"github.com/tradepulse/push-pipeline/internal/repository"
	"go.uber.org/zap"
)

// UnreadCounter is the cached unread-count port. Increments are best-effort;
// the delivery_records table remains the source of truth.
type UnreadCounter interface {
	Add(ctx context.Context, recipientID string, delta int) error
}

// DeliverySummary is the aggregate outcome of one reconciliation pass.
type DeliverySummary struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Reconciler persists delivery outcomes: history rows for accepted messages,
// unread counter bumps, and deactivation of permanently failed endpoints.
type Reconciler struct {
	records   repository.DeliveryRecordRepository
	endpoints repository.EndpointRepository
	unread    UnreadCounter
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewReconciler(
	records repository.DeliveryRecordRepository,
	endpoints repository.EndpointRepository,
	unread UnreadCounter,
	logger *zap.Logger,
) (*Reconciler, error) {
	if records == nil {
		return nil, fmt.Errorf("delivery record repository is required")
	}
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint repository is required")
	}
	if unread == nil {
		return nil, fmt.Errorf("unread counter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{
		records:   records,
		endpoints: endpoints,
		unread:    unread,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (r *Reconciler) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Reconcile consumes the ticket set for one intent (or direct send). Record
// inserts ignore duplicates, so replaying the same ticket set neither
// duplicates history nor double-increments unread counters.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	intentID string,
	tickets []domain.Ticket,
	category domain.Category,
	title string,
	body string,
	payload domain.Payload,
) (DeliverySummary, error) {
	summary := DeliverySummary{}
	if len(tickets) == 0 {
		return summary, nil
	}

	channelName := strings.ToLower(domain.ChannelFor(category).String())
	var deadTokens []string

	for _, ticket := range tickets {
		switch ticket.Status {
		case domain.TicketOK:
			summary.Sent++

			record := &domain.DeliveryRecord{
				ID:          uuid.NewString(),
				RecipientID: ticket.Endpoint.RecipientID,
				IntentID:    intentID,
				Category:    category,
				Title:       title,
				Body:        body,
				Payload:     payload,
				CreatedAt:   r.now().UTC(),
			}

			inserted, err := r.records.CreateIgnoreDuplicate(ctx, record)
			if err != nil {
				return summary, fmt.Errorf("failed to persist delivery record: %w", err)
			}
			if inserted {
				if err := r.unread.Add(ctx, ticket.Endpoint.RecipientID, 1); err != nil {
					r.logger.Warn("failed to bump unread counter",
						zap.String("recipientId", ticket.Endpoint.RecipientID),
						zap.Error(err),
					)
				}
			}

		case domain.TicketPermanent:
			summary.Failed++
			deadTokens = append(deadTokens, ticket.Endpoint.Token)
			if r.metrics != nil {
				r.metrics.AddMessagesFailed(channelName, "permanent_error", 1)
			}

		default:
			summary.Failed++
			if r.metrics != nil {
				r.metrics.AddMessagesFailed(channelName, "transient_error", 1)
			}
		}
	}

	if r.metrics != nil {
		r.metrics.AddMessagesSent(channelName, summary.Sent)
	}

	if len(deadTokens) > 0 {
		deactivated, err := r.endpoints.DeactivateByTokens(ctx, deadTokens)
		if err != nil {
			return summary, fmt.Errorf("failed to deactivate endpoints: %w", err)
		}
		if r.metrics != nil {
			r.metrics.AddEndpointsDeactivated(int(deactivated))
		}
		r.logger.Info("deactivated stale endpoints",
			zap.Int("requested", len(deadTokens)),
			zap.Int64("deactivated", deactivated),
		)
	}

	return summary, nil
}
