package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tradepulse/push-pipeline/internal/domain"
	"github.com/tradepulse/push-pipeline/internal/observability"
	"github.com/tradepulse/push-pipeline/internal/provider"
	"github.com/tradepulse/push-pipeline/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minDispatchConcurrency     = 1
	defaultDispatchConcurrency = 4
)

// Dispatcher chunks eligible endpoints into provider-sized batches and
// submits them concurrently. Every endpoint comes back with exactly one
// ticket; a chunk-level transport failure fails only that chunk.
type Dispatcher struct {
	provider    provider.PushProvider
	limiter     ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewDispatcher(
	pushProvider provider.PushProvider,
	limiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if pushProvider == nil {
		return nil, fmt.Errorf("push provider is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if concurrency < minDispatchConcurrency {
		concurrency = defaultDispatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		provider:    pushProvider,
		limiter:     limiter,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch delivers to every endpoint and returns one ticket per endpoint,
// grouped in input order. It never returns an error: failures are expressed
// as tickets so accounting stays uniform across chunks.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	endpoints []domain.DeliveryEndpoint,
	title string,
	body string,
	payload domain.Payload,
	channel domain.Channel,
) []domain.Ticket {
	if len(endpoints) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	chunks := chunkEndpoints(endpoints, provider.MaxBatchSize)
	results := make([][]domain.Ticket, len(chunks))

	// Plain Group, not WithContext: one chunk's failure must not cancel its
	// siblings, and in-flight chunks finish even if the caller is cancelled.
	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for i := range chunks {
		chunkIndex := i
		chunk := chunks[i]

		g.Go(func() error {
			results[chunkIndex] = d.sendChunk(ctx, chunk, title, body, payload, channel)
			return nil
		})
	}

	_ = g.Wait()

	tickets := make([]domain.Ticket, 0, len(endpoints))
	for _, chunkTickets := range results {
		tickets = append(tickets, chunkTickets...)
	}
	return tickets
}

func (d *Dispatcher) sendChunk(
	ctx context.Context,
	chunk []domain.DeliveryEndpoint,
	title string,
	body string,
	payload domain.Payload,
	channel domain.Channel,
) []domain.Ticket {
	channelName := strings.ToLower(channel.String())
	if d.metrics != nil {
		d.metrics.IncDispatchInflight(channelName)
		defer d.metrics.DecDispatchInflight(channelName)
	}

	if err := d.limiter.Wait(ctx, channelName); err != nil {
		d.logger.Warn("rate limiter wait failed, failing chunk as transient",
			zap.Int("chunkSize", len(chunk)),
			zap.Error(err),
		)
		return failChunk(chunk, "rate limiter: "+err.Error())
	}

	messages := make([]provider.PushMessage, 0, len(chunk))
	for _, endpoint := range chunk {
		messages = append(messages, provider.PushMessage{
			Token:   endpoint.Token,
			Title:   title,
			Body:    body,
			Data:    payload,
			Channel: channel,
		})
	}

	// Once a chunk is started the provider call runs to completion even if
	// the caller cancels: aborting mid-call would record messages the
	// provider already delivered as failed. The client's own timeout still
	// bounds the call; cancellation only gates chunks that have not passed
	// the limiter yet.
	sendCtx := context.WithoutCancel(ctx)

	sendStart := d.now()
	receipts, err := d.provider.SendBatch(sendCtx, messages)
	if d.metrics != nil {
		d.metrics.ObserveDispatchChunkDuration(channelName, d.now().Sub(sendStart))
	}

	if err != nil {
		// The whole chunk failed in one transport call. Endpoints stay
		// active: nothing here implicates any individual token.
		d.logger.Warn("provider chunk call failed",
			zap.Int("chunkSize", len(chunk)),
			zap.Bool("transient", provider.IsTransient(err)),
			zap.Error(err),
		)
		return failChunk(chunk, err.Error())
	}

	if len(receipts) != len(chunk) {
		d.logger.Error("provider receipt count mismatch",
			zap.Int("chunkSize", len(chunk)),
			zap.Int("receipts", len(receipts)),
		)
		return failChunk(chunk, "provider receipt count mismatch")
	}

	tickets := make([]domain.Ticket, 0, len(chunk))
	for i, receipt := range receipts {
		tickets = append(tickets, domain.Ticket{
			Endpoint: chunk[i],
			Status:   ticketStatusFromReceipt(receipt.Status),
			Reason:   receipt.Reason,
		})
	}
	return tickets
}

func ticketStatusFromReceipt(status provider.ReceiptStatus) domain.TicketStatus {
	switch status {
	case provider.ReceiptOK:
		return domain.TicketOK
	case provider.ReceiptPermanent:
		return domain.TicketPermanent
	default:
		return domain.TicketTransient
	}
}

func failChunk(chunk []domain.DeliveryEndpoint, reason string) []domain.Ticket {
	tickets := make([]domain.Ticket, 0, len(chunk))
	for _, endpoint := range chunk {
		tickets = append(tickets, domain.Ticket{
			Endpoint: endpoint,
			Status:   domain.TicketTransient,
			Reason:   reason,
		})
	}
	return tickets
}

func chunkEndpoints(endpoints []domain.DeliveryEndpoint, size int) [][]domain.DeliveryEndpoint {
	if size < 1 {
		size = 1
	}

	chunks := make([][]domain.DeliveryEndpoint, 0, (len(endpoints)+size-1)/size)
	for start := 0; start < len(endpoints); start += size {
		end := min(start+size, len(endpoints))
		chunks = append(chunks, endpoints[start:end])
	}
	return chunks
}
