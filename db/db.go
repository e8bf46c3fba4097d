package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Gin_postgres_redis_asset_loan/clock"
	"Gin_postgres_redis_asset_loan/models"
)

// Open connects to Postgres and migrates the schema. The caller owns the
// handle and must Close it.
func Open(dsn string, clk clock.Clock) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), GormConfig(clk))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

// GormConfig makes gorm stamp created_at/updated_at from clk so row
// timestamps and loan timestamps agree.
func GormConfig(clk clock.Clock) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return clk.Now() },
		TranslateError: true,
	}
}

func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Office{}, &models.Category{}, &models.User{}, &models.Asset{}, &models.Loan{}); err != nil {
		return err
	}

	// At most one BORROWED loan per asset.
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_borrowed_per_asset
	  ON %s (asset_id)
	  WHERE status = 'BORROWED';
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_asset_loandate_desc
	  ON %s (asset_id, loan_date DESC);
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	return nil
}
