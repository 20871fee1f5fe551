package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradepulse/push-pipeline/internal/domain"
)

// IntentModel is the persistence model for the notification_intents table.
type IntentModel struct {
	ID             string          `gorm:"type:uuid;primaryKey"`
	TargetKind     string          `gorm:"type:varchar(32);not null"`
	TargetParams   []byte          `gorm:"type:jsonb"`
	Category       domain.Category `gorm:"type:varchar(32);not null"`
	Title          string          `gorm:"type:varchar(255);not null"`
	Body           string          `gorm:"type:text;not null"`
	Payload        []byte          `gorm:"type:jsonb"`
	Status         domain.IntentStatus `gorm:"type:varchar(20);not null"`
	ScheduledFor   time.Time       `gorm:"type:timestamptz;not null"`
	ProcessedCount int             `gorm:"not null;default:0"`
	FailedCount    int             `gorm:"not null;default:0"`
	ErrorMessage   *string         `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (IntentModel) TableName() string {
	return "notification_intents"
}

// EndpointModel is the persistence model for delivery_endpoints.
type EndpointModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	RecipientID string `gorm:"type:varchar(64);not null;index"`
	Token       string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Active      bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (EndpointModel) TableName() string {
	return "delivery_endpoints"
}

// PreferenceModel is the persistence model for notification_preferences.
// The pipeline reads these rows; the settings surface owns them.
type PreferenceModel struct {
	RecipientID string `gorm:"type:varchar(64);primaryKey"`

	NotificationsEnabled bool `gorm:"not null;default:true"`

	WhaleAlertsEnabled bool            `gorm:"not null;default:false"`
	WhaleThresholdUSD  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0"`

	KOLActivityEnabled          bool `gorm:"not null;default:false"`
	KOLTradeNotifications       bool `gorm:"not null;default:false"`
	KOLNewPositionNotifications bool `gorm:"not null;default:false"`
	KOLTierChangeNotifications  bool `gorm:"not null;default:false"`

	PortfolioAlertsEnabled bool `gorm:"not null;default:false"`
	PnlAlertsEnabled       bool `gorm:"not null;default:false"`

	CopyTradeEnabled  bool `gorm:"not null;default:false"`
	CopyTradeExecuted bool `gorm:"not null;default:false"`
	CopyTradeFailed   bool `gorm:"not null;default:false"`

	NewFollower   bool `gorm:"not null;default:false"`
	NewCopyTrader bool `gorm:"not null;default:false"`
	Leaderboard   bool `gorm:"not null;default:false"`
	TrendingToken bool `gorm:"not null;default:false"`
	NewListing    bool `gorm:"not null;default:false"`

	QuietHoursEnabled bool   `gorm:"not null;default:false"`
	QuietHoursStart   string `gorm:"type:varchar(5);not null;default:''"`
	QuietHoursEnd     string `gorm:"type:varchar(5);not null;default:''"`
	QuietHoursTZ      string `gorm:"type:varchar(64);not null;default:''"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PreferenceModel) TableName() string {
	return "notification_preferences"
}

// FollowModel is the persistence model for kol_follows. NotifyTrades is the
// per-follow trade notification opt-in.
type FollowModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	FollowerID   string `gorm:"type:varchar(64);not null;index:idx_kol_follows_pair,unique"`
	KOLWallet    string `gorm:"type:varchar(64);not null;index:idx_kol_follows_pair,unique;index"`
	NotifyTrades bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
}

func (FollowModel) TableName() string {
	return "kol_follows"
}

// DeliveryRecordModel is the persistence model for delivery_records. The
// (recipient_id, intent_id) pair is unique so replays cannot create
// duplicate history rows.
type DeliveryRecordModel struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	RecipientID string          `gorm:"type:varchar(64);not null;index:idx_delivery_records_pair,unique"`
	IntentID    string          `gorm:"type:uuid;not null;index:idx_delivery_records_pair,unique"`
	Category    domain.Category `gorm:"type:varchar(32);not null"`
	Title       string          `gorm:"type:varchar(255);not null"`
	Body        string          `gorm:"type:text;not null"`
	Payload     []byte          `gorm:"type:jsonb"`
	Read        bool            `gorm:"not null;default:false;index"`
	CreatedAt   time.Time
}

func (DeliveryRecordModel) TableName() string {
	return "delivery_records"
}

func intentModelFromDomain(i *domain.Intent) (*IntentModel, error) {
	if i == nil {
		return nil, nil
	}

	kind, params, err := domain.EncodeTarget(i.Target)
	if err != nil {
		return nil, err
	}

	payload, err := marshalPayload(i.Payload)
	if err != nil {
		return nil, err
	}

	return &IntentModel{
		ID:             i.ID,
		TargetKind:     kind,
		TargetParams:   params,
		Category:       i.Category,
		Title:          i.Title,
		Body:           i.Body,
		Payload:        payload,
		Status:         i.Status,
		ScheduledFor:   i.ScheduledFor,
		ProcessedCount: i.ProcessedCount,
		FailedCount:    i.FailedCount,
		ErrorMessage:   i.ErrorMessage,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}, nil
}

func intentModelToDomain(m *IntentModel) (*domain.Intent, error) {
	if m == nil {
		return nil, nil
	}

	target, err := domain.ParseTarget(m.TargetKind, m.TargetParams)
	if err != nil {
		return nil, fmt.Errorf("intent %s: %w", m.ID, err)
	}

	payload, err := unmarshalPayload(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("intent %s: %w", m.ID, err)
	}

	return &domain.Intent{
		ID:             m.ID,
		Target:         target,
		Category:       m.Category,
		Title:          m.Title,
		Body:           m.Body,
		Payload:        payload,
		Status:         m.Status,
		ScheduledFor:   m.ScheduledFor,
		ProcessedCount: m.ProcessedCount,
		FailedCount:    m.FailedCount,
		ErrorMessage:   m.ErrorMessage,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}

func endpointModelToDomain(m *EndpointModel) *domain.DeliveryEndpoint {
	if m == nil {
		return nil
	}

	return &domain.DeliveryEndpoint{
		ID:          m.ID,
		RecipientID: m.RecipientID,
		Token:       m.Token,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func preferenceModelToDomain(m *PreferenceModel) *domain.Preference {
	if m == nil {
		return nil
	}

	return &domain.Preference{
		RecipientID:                 m.RecipientID,
		NotificationsEnabled:        m.NotificationsEnabled,
		WhaleAlertsEnabled:          m.WhaleAlertsEnabled,
		WhaleThresholdUSD:           m.WhaleThresholdUSD,
		KOLActivityEnabled:          m.KOLActivityEnabled,
		KOLTradeNotifications:       m.KOLTradeNotifications,
		KOLNewPositionNotifications: m.KOLNewPositionNotifications,
		KOLTierChangeNotifications:  m.KOLTierChangeNotifications,
		PortfolioAlertsEnabled:      m.PortfolioAlertsEnabled,
		PnlAlertsEnabled:            m.PnlAlertsEnabled,
		CopyTradeEnabled:            m.CopyTradeEnabled,
		CopyTradeExecuted:           m.CopyTradeExecuted,
		CopyTradeFailed:             m.CopyTradeFailed,
		NewFollower:                 m.NewFollower,
		NewCopyTrader:               m.NewCopyTrader,
		Leaderboard:                 m.Leaderboard,
		TrendingToken:               m.TrendingToken,
		NewListing:                  m.NewListing,
		QuietHours: domain.QuietHours{
			Enabled:    m.QuietHoursEnabled,
			StartLocal: m.QuietHoursStart,
			EndLocal:   m.QuietHoursEnd,
			Timezone:   m.QuietHoursTZ,
		},
	}
}

func recordModelFromDomain(r *domain.DeliveryRecord) (*DeliveryRecordModel, error) {
	if r == nil {
		return nil, nil
	}

	payload, err := marshalPayload(r.Payload)
	if err != nil {
		return nil, err
	}

	return &DeliveryRecordModel{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		IntentID:    r.IntentID,
		Category:    r.Category,
		Title:       r.Title,
		Body:        r.Body,
		Payload:     payload,
		Read:        r.Read,
		CreatedAt:   r.CreatedAt,
	}, nil
}

func marshalPayload(p domain.Payload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

func unmarshalPayload(data []byte) (domain.Payload, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var p domain.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return p, nil
}
