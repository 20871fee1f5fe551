package domain

import (
	"fmt"
	"strings"
	"time"
)

// IntentStatus is the lifecycle state of a queued notification intent.
//
// PENDING -> PROCESSING happens only through the drainer's conditional
// claim; PROCESSING -> COMPLETED and PROCESSING -> FAILED are terminal.
type IntentStatus string

const (
	IntentPending    IntentStatus = "PENDING"
	IntentProcessing IntentStatus = "PROCESSING"
	IntentCompleted  IntentStatus = "COMPLETED"
	IntentFailed     IntentStatus = "FAILED"
)

func (s IntentStatus) String() string { return string(s) }

func (s IntentStatus) IsValid() bool {
	switch s {
	case IntentPending, IntentProcessing, IntentCompleted, IntentFailed:
		return true
	}
	return false
}

func (s IntentStatus) IsTerminal() bool {
	return s == IntentCompleted || s == IntentFailed
}

func ParseIntentStatusFromString(s string) (IntentStatus, error) {
	st := IntentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid intent status %q", ErrValidation, s)
	}
	return st, nil
}

// Intent is a queued request to notify a computed set of recipients.
type Intent struct {
	ID             string
	Target         Target
	Category       Category
	Title          string
	Body           string
	Payload        Payload
	Status         IntentStatus
	ScheduledFor   time.Time
	ProcessedCount int
	FailedCount    int
	ErrorMessage   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const (
	MaxTitleLength = 178
	MaxBodyLength  = 1024
)

func (i *Intent) Validate() error {
	if i.Target == nil {
		return fmt.Errorf("%w: target is required", ErrValidation)
	}
	if !i.Category.IsValid() {
		return fmt.Errorf("%w: invalid category %q", ErrValidation, i.Category)
	}
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(i.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if titleLen := len([]rune(i.Title)); titleLen > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters (got %d)", ErrValidation, MaxTitleLength, titleLen)
	}
	if bodyLen := len([]rune(i.Body)); bodyLen > MaxBodyLength {
		return fmt.Errorf("%w: body exceeds %d characters (got %d)", ErrValidation, MaxBodyLength, bodyLen)
	}

	if t, ok := i.Target.(TargetSpecific); ok && len(t.Wallets) == 0 {
		return fmt.Errorf("%w: specific target requires at least one wallet", ErrValidation)
	}

	return nil
}
