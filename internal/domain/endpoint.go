package domain

import "time"

// DeliveryEndpoint is a provider-addressable push token owned by a recipient.
// Deactivated endpoints are excluded from resolution until re-registered.
type DeliveryEndpoint struct {
	ID          string
	RecipientID string
	Token       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DeliveryRecord is one persisted delivery per (recipient, intent) pair. It
// backs notification history and the unread counter, and is created only
// after a send was attempted.
type DeliveryRecord struct {
	ID          string
	RecipientID string
	IntentID    string
	Category    Category
	Title       string
	Body        string
	Payload     Payload
	Read        bool
	CreatedAt   time.Time
}

// TicketStatus classifies a provider's per-message delivery outcome.
type TicketStatus string

const (
	// TicketOK: the provider accepted the message.
	TicketOK TicketStatus = "ok"
	// TicketTransient: delivery failed this round, endpoint stays active.
	TicketTransient TicketStatus = "transient"
	// TicketPermanent: the endpoint is gone or unusable and must be deactivated.
	TicketPermanent TicketStatus = "permanent"
)

// Ticket is the ephemeral per-message outcome consumed by the reconciler.
// It is never persisted as its own entity.
type Ticket struct {
	Endpoint DeliveryEndpoint
	Status   TicketStatus
	Reason   string
}
