package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tradepulse/push-pipeline/internal/domain"
	"github.com/tradepulse/push-pipeline/internal/observability"
	"github.com/tradepulse/push-pipeline/internal/repository"
	"go.uber.org/zap"
)

// DefaultDrainBatchSize bounds how many due intents one invocation claims.
const DefaultDrainBatchSize = 10

// DrainSummary counts intents (not individual messages) per drain run.
type DrainSummary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Drainer owns the intent state machine and orchestrates one full pipeline
// pass per claimed intent: resolve, filter, dispatch, reconcile.
type Drainer struct {
	intents    repository.IntentRepository
	endpoints  repository.EndpointRepository
	resolver   *Resolver
	filter     *EligibilityFilter
	dispatcher *Dispatcher
	reconciler *Reconciler
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewDrainer(
	intents repository.IntentRepository,
	endpoints repository.EndpointRepository,
	resolver *Resolver,
	filter *EligibilityFilter,
	dispatcher *Dispatcher,
	reconciler *Reconciler,
	logger *zap.Logger,
) (*Drainer, error) {
	if intents == nil {
		return nil, fmt.Errorf("intent repository is required")
	}
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint repository is required")
	}
	if resolver == nil || filter == nil || dispatcher == nil || reconciler == nil {
		return nil, fmt.Errorf("resolver, filter, dispatcher, and reconciler are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Drainer{
		intents:    intents,
		endpoints:  endpoints,
		resolver:   resolver,
		filter:     filter,
		dispatcher: dispatcher,
		reconciler: reconciler,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (d *Drainer) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// DrainQueue claims up to maxItems due pending intents and processes each to
// a terminal state. One intent's failure never blocks the rest of the batch.
func (d *Drainer) DrainQueue(ctx context.Context, maxItems int) (DrainSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxItems < 1 {
		maxItems = DefaultDrainBatchSize
	}

	start := d.now()
	defer func() {
		if d.metrics != nil {
			d.metrics.ObserveDrainDuration(d.now().Sub(start))
		}
	}()

	claimed, err := d.intents.ClaimDue(ctx, d.now(), maxItems)
	if err != nil {
		return DrainSummary{}, fmt.Errorf("failed to claim due intents: %w", err)
	}

	summary := DrainSummary{}
	for i := range claimed {
		intent := claimed[i]
		intentCtx := observability.WithIntentID(ctx, intent.ID)
		logger := observability.WithContextLogger(d.logger, intentCtx)

		delivery, err := d.processIntent(intentCtx, &intent)
		if err != nil {
			summary.Failed++
			if d.metrics != nil {
				d.metrics.IncIntentProcessed("failed")
			}
			logger.Error("intent processing failed", zap.Error(err))

			if failErr := d.intents.Fail(intentCtx, intent.ID, err.Error()); failErr != nil {
				logger.Error("failed to mark intent as failed", zap.Error(failErr))
			}
			continue
		}

		if err := d.intents.Complete(intentCtx, intent.ID, delivery.Sent, delivery.Failed); err != nil {
			summary.Failed++
			if d.metrics != nil {
				d.metrics.IncIntentProcessed("failed")
			}
			logger.Error("failed to mark intent as completed", zap.Error(err))
			continue
		}

		summary.Processed++
		if d.metrics != nil {
			d.metrics.IncIntentProcessed("completed")
		}
		logger.Info("intent completed",
			zap.String("category", intent.Category.String()),
			zap.Int("sent", delivery.Sent),
			zap.Int("failed", delivery.Failed),
		)
	}

	return summary, nil
}

func (d *Drainer) processIntent(ctx context.Context, intent *domain.Intent) (DeliverySummary, error) {
	recipients, err := d.resolver.Resolve(ctx, intent.Target, intent.Payload)
	if err != nil {
		return DeliverySummary{}, err
	}
	if len(recipients) == 0 {
		return DeliverySummary{}, nil
	}

	endpoints, err := d.endpoints.ActiveByRecipients(ctx, recipients)
	if err != nil {
		return DeliverySummary{}, fmt.Errorf("failed to load endpoints: %w", err)
	}

	eligible, err := d.filter.Eligible(ctx, endpoints, intent.Category, intent.Payload)
	if err != nil {
		return DeliverySummary{}, err
	}
	if len(eligible) == 0 {
		return DeliverySummary{}, nil
	}

	tickets := d.dispatcher.Dispatch(ctx, eligible, intent.Title, intent.Body, intent.Payload, domain.ChannelFor(intent.Category))

	return d.reconciler.Reconcile(ctx, intent.ID, tickets, intent.Category, intent.Title, intent.Body, intent.Payload)
}

// SendNow runs the same filter/dispatch/reconcile pipeline synchronously for
// an explicit recipient set, without persisting an intent. Delivery records
// are keyed by a fresh send id.
func (d *Drainer) SendNow(
	ctx context.Context,
	recipients []string,
	category domain.Category,
	title string,
	body string,
	payload domain.Payload,
	channel domain.Channel,
) (DeliverySummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if category == "" {
		category = domain.CategorySystem
	}
	if !category.IsValid() {
		return DeliverySummary{}, fmt.Errorf("%w: invalid category %q", domain.ErrValidation, category)
	}

	deduped := dedupeRecipients(recipients)
	if len(deduped) == 0 {
		return DeliverySummary{}, fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}

	endpoints, err := d.endpoints.ActiveByRecipients(ctx, deduped)
	if err != nil {
		return DeliverySummary{}, fmt.Errorf("failed to load endpoints: %w", err)
	}

	eligible, err := d.filter.Eligible(ctx, endpoints, category, payload)
	if err != nil {
		return DeliverySummary{}, err
	}
	if len(eligible) == 0 {
		return DeliverySummary{}, nil
	}

	if channel == "" {
		channel = domain.ChannelFor(category)
	}
	tickets := d.dispatcher.Dispatch(ctx, eligible, title, body, payload, channel)

	sendID := uuid.NewString()
	return d.reconciler.Reconcile(ctx, sendID, tickets, category, title, body, payload)
}
