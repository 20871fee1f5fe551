package domain

import (
	"fmt"
	"strings"
)

// Category identifies the kind of event a notification describes. It drives
// per-recipient eligibility rules and the provider-side channel grouping.
type Category string

const (
	CategoryWhaleAlert        Category = "whale_alert"
	CategoryKOLTrade          Category = "kol_trade"
	CategoryKOLNewPosition    Category = "kol_new_position"
	CategoryKOLTierChange     Category = "kol_tier_change"
	CategoryPortfolioAlert    Category = "portfolio_alert"
	CategoryPriceAlert        Category = "price_alert"
	CategoryPnlAlert          Category = "pnl_alert"
	CategoryCopyTradeExecuted Category = "copy_trade_executed"
	CategoryCopyTradeFailed   Category = "copy_trade_failed"
	CategoryNewFollower       Category = "new_follower"
	CategoryNewCopyTrader     Category = "new_copy_trader"
	CategoryLeaderboard       Category = "leaderboard"
	CategoryTrendingToken     Category = "trending_token"
	CategoryNewListing        Category = "new_listing"
	CategorySecurity          Category = "security"
	CategorySystem            Category = "system"
)

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategoryWhaleAlert, CategoryKOLTrade, CategoryKOLNewPosition, CategoryKOLTierChange,
		CategoryPortfolioAlert, CategoryPriceAlert, CategoryPnlAlert,
		CategoryCopyTradeExecuted, CategoryCopyTradeFailed,
		CategoryNewFollower, CategoryNewCopyTrader, CategoryLeaderboard,
		CategoryTrendingToken, CategoryNewListing,
		CategorySecurity, CategorySystem:
		return true
	}
	return false
}

func ParseCategoryFromString(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid category %q", ErrValidation, s)
	}
	return c, nil
}

// Channel is the provider-side notification grouping tag. It routes messages
// to presentation channels on the device, nothing more.
type Channel string

const (
	ChannelTrades    Channel = "trades"
	ChannelKOL       Channel = "kol"
	ChannelPortfolio Channel = "portfolio"
	ChannelSocial    Channel = "social"
	ChannelSecurity  Channel = "security"
	ChannelDefault   Channel = "default"
)

func (c Channel) String() string { return string(c) }

var categoryChannels = map[Category]Channel{
	CategoryWhaleAlert:        ChannelTrades,
	CategoryCopyTradeExecuted: ChannelTrades,
	CategoryCopyTradeFailed:   ChannelTrades,
	CategoryKOLTrade:          ChannelKOL,
	CategoryKOLNewPosition:    ChannelKOL,
	CategoryKOLTierChange:     ChannelKOL,
	CategoryPortfolioAlert:    ChannelPortfolio,
	CategoryPriceAlert:        ChannelPortfolio,
	CategoryPnlAlert:          ChannelPortfolio,
	CategoryNewFollower:       ChannelSocial,
	CategoryNewCopyTrader:     ChannelSocial,
	CategoryLeaderboard:       ChannelSocial,
	CategoryTrendingToken:     ChannelSocial,
	CategoryNewListing:        ChannelSocial,
	CategorySecurity:          ChannelSecurity,
}

// ChannelFor maps a category to its provider channel tag. Unmapped
// categories fall back to the default channel.
func ChannelFor(category Category) Channel {
	if ch, ok := categoryChannels[category]; ok {
		return ch
	}
	return ChannelDefault
}
