package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Target describes the set of recipients an intent addresses. It is a sealed
// union: the resolver type-switches over the concrete variants, and unknown
// kinds resolve to nobody rather than failing the drain loop.
type Target interface {
	Kind() string
}

const (
	TargetKindSpecific         = "specific"
	TargetKindFollowers        = "followers"
	TargetKindWhaleSubscribers = "whale_subscribers"
	TargetKindAll              = "all"
)

// TargetSpecific addresses an explicit wallet list verbatim.
type TargetSpecific struct {
	Wallets []string `json:"wallets"`
}

// TargetFollowers addresses every follower of a KOL wallet that opted into
// trade notifications for that KOL.
type TargetFollowers struct {
	KOLWallet string `json:"kolWallet"`
}

// TargetWhaleSubscribers addresses recipients whose configured whale
// threshold is at or below the trade value carried in the intent payload.
type TargetWhaleSubscribers struct{}

// TargetAll addresses every recipient with at least one active endpoint.
type TargetAll struct{}

func (TargetSpecific) Kind() string         { return TargetKindSpecific }
func (TargetFollowers) Kind() string        { return TargetKindFollowers }
func (TargetWhaleSubscribers) Kind() string { return TargetKindWhaleSubscribers }
func (TargetAll) Kind() string              { return TargetKindAll }

// ParseTarget decodes a persisted (kind, params) pair back into a Target.
// Unknown kinds are returned as-is inside an UnknownTarget so the caller can
// resolve them to the empty set without aborting.
func ParseTarget(kind string, params []byte) (Target, error) {
	normalized := strings.ToLower(strings.TrimSpace(kind))
	if len(params) == 0 {
		params = []byte("{}")
	}

	switch normalized {
	case TargetKindSpecific:
		var t TargetSpecific
		if err := json.Unmarshal(params, &t); err != nil {
			return nil, fmt.Errorf("%w: invalid specific target params: %v", ErrValidation, err)
		}
		return t, nil
	case TargetKindFollowers:
		var t TargetFollowers
		if err := json.Unmarshal(params, &t); err != nil {
			return nil, fmt.Errorf("%w: invalid followers target params: %v", ErrValidation, err)
		}
		return t, nil
	case TargetKindWhaleSubscribers:
		return TargetWhaleSubscribers{}, nil
	case TargetKindAll:
		return TargetAll{}, nil
	default:
		return UnknownTarget{RawKind: normalized}, nil
	}
}

// EncodeTarget serializes a Target into its persisted (kind, params) form.
func EncodeTarget(target Target) (string, []byte, error) {
	if target == nil {
		return "", nil, fmt.Errorf("%w: target is required", ErrValidation)
	}

	params, err := json.Marshal(target)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode target params: %w", err)
	}
	return target.Kind(), params, nil
}

// UnknownTarget preserves an unrecognized descriptor kind. The resolver maps
// it to an empty recipient set.
type UnknownTarget struct {
	RawKind string
}

func (t UnknownTarget) Kind() string { return t.RawKind }
