package db

import (
	"errors"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"storefront/internal/config"
)

// TransactionSeq allocates checkout transaction ids.
const TransactionSeq = "transaction_id_seq"

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL).
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&User{}, &Session{}, &Item{}, &CartLine{}, &Event{}, &ItemStat{}); err != nil {
		return nil, err
	}
	if err := db.Exec("CREATE SEQUENCE IF NOT EXISTS " + TransactionSeq).Error; err != nil {
		return nil, err
	}

	return db, nil
}

// Store is the storefront's data access layer. Every method scopes its
// queries to the caller's context.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for workers.
func (s *Store) DB() *gorm.DB { return s.db }
