package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Preference is the per-recipient notification settings record. The pipeline
// only ever reads it; the settings UI owns writes.
type Preference struct {
	RecipientID string

	NotificationsEnabled bool

	WhaleAlertsEnabled bool
	WhaleThresholdUSD  decimal.Decimal

	KOLActivityEnabled          bool
	KOLTradeNotifications       bool
	KOLNewPositionNotifications bool
	KOLTierChangeNotifications  bool

	PortfolioAlertsEnabled bool
	PnlAlertsEnabled       bool

	CopyTradeEnabled  bool
	CopyTradeExecuted bool
	CopyTradeFailed   bool

	NewFollower   bool
	NewCopyTrader bool
	Leaderboard   bool
	TrendingToken bool
	NewListing    bool

	QuietHours QuietHours
}

// QuietHours is a recipient-local time window during which non-critical
// notifications are suppressed.
type QuietHours struct {
	Enabled    bool
	StartLocal string // "HH:MM"
	EndLocal   string // "HH:MM"
	Timezone   string // IANA name
}

// SuppressedAt reports whether the given instant falls inside the quiet
// window in the recipient's local time. A window with start > end spans
// midnight (22:00-08:00 suppresses 23:30 and 07:00 but not 09:00).
func (q QuietHours) SuppressedAt(now time.Time) (bool, error) {
	if !q.Enabled {
		return false, nil
	}

	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return false, fmt.Errorf("%w: invalid timezone %q: %v", ErrValidation, q.Timezone, err)
	}

	start, err := parseClock(q.StartLocal)
	if err != nil {
		return false, err
	}
	end, err := parseClock(q.EndLocal)
	if err != nil {
		return false, err
	}

	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if start <= end {
		return minute >= start && minute <= end, nil
	}
	// Overnight window.
	return minute >= start || minute <= end, nil
}

func parseClock(s string) (int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("%w: invalid clock value %q: %v", ErrValidation, s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: clock value %q out of range", ErrValidation, s)
	}
	return hour*60 + minute, nil
}
