package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/tradepulse/push-pipeline/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_notification_intents",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.IntentModel{}); err != nil {
					return err
				}
				// Partial index on the drain predicate keeps claiming cheap
				// under a large completed backlog.
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_intents_due ON notification_intents (scheduled_for) WHERE status = 'PENDING'`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.IntentModel{})
			},
		},
		{
			ID: "000002_create_delivery_endpoints",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.EndpointModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_endpoints_active_recipient ON delivery_endpoints (recipient_id) WHERE active`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.EndpointModel{})
			},
		},
		{
			ID: "000003_create_notification_preferences",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.PreferenceModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_preferences_whale ON notification_preferences (whale_threshold_usd) WHERE notifications_enabled AND whale_alerts_enabled`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.PreferenceModel{})
			},
		},
		{
			ID: "000004_create_kol_follows",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.FollowModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.FollowModel{})
			},
		},
		{
			ID: "000005_create_delivery_records",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryRecordModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_records_recipient_unread ON delivery_records (recipient_id) WHERE NOT read`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryRecordModel{})
			},
		},
	})

	return m.Migrate()
}
