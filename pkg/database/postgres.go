package database

import (
	"fmt"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the service, in migration order.
var Models = []any{
	&models.User{},
	&models.CaregiverProfile{},
	&models.VideoCallRequest{},
	&models.ChatSession{},
	&models.Booking{},
	&models.BookingHistory{},
	&models.BookingNote{},
	&models.Notification{},
	&models.ConsumedEvent{},
}

func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables plus the Postgres-only constraints backing the
// no-double-booking guarantee.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply constraint: %w", err)
		}
	}
	return nil
}

var constraints = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,

	// Blocking bookings of one caregiver may never overlap.
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'prevent_caregiver_double_booking') THEN
			ALTER TABLE bookings ADD CONSTRAINT prevent_caregiver_double_booking
			EXCLUDE USING gist (
				caregiver_id WITH =,
				tstzrange(scheduled_date, ends_at, '[)') WITH &&
			) WHERE (status IN ('requested', 'accepted', 'confirmed', 'in_progress'));
		END IF;
	END $$`,

	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_valid_window') THEN
			ALTER TABLE bookings ADD CONSTRAINT bookings_valid_window
			CHECK (duration_hours > 0 AND duration_hours <= 24 AND ends_at > scheduled_date);
		END IF;
	END $$`,

	VideoCallBookingIndex,
}

// VideoCallBookingIndex allows one booking per video call, so find-or-create
// cannot duplicate. The statement is portable to SQLite.
const VideoCallBookingIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_video_call
	ON bookings (video_call_request_id)
	WHERE video_call_request_id IS NOT NULL`
