package provider

import (
	"context"

	"github.com/tradepulse/push-pipeline/internal/domain"
)

// PushMessage is one addressed message handed to the push transport.
type PushMessage struct {
	Token   string
	Title   string
	Body    string
	Data    domain.Payload
	Channel domain.Channel
}

// ReceiptStatus classifies a single in-batch delivery result.
type ReceiptStatus string

const (
	ReceiptOK        ReceiptStatus = "ok"
	ReceiptTransient ReceiptStatus = "transient"
	ReceiptPermanent ReceiptStatus = "permanent"
)

// Receipt is the provider's per-message accept/reject ticket. SendBatch
// returns exactly one receipt per submitted message, in submission order.
type Receipt struct {
	Status ReceiptStatus
	Reason string
}

// PushProvider is the outbound delivery port. Implementations accept at most
// MaxBatchSize messages per call; chunking is the dispatcher's job.
type PushProvider interface {
	SendBatch(ctx context.Context, messages []PushMessage) ([]Receipt, error)
}

// MaxBatchSize is the transport-imposed per-call message limit.
const MaxBatchSize = 100
