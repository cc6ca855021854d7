package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/database/dbutil"
	"github.com/mrlokans/librarian/internal/database/history"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/entities"
)

type Database struct {
	DB     *gorm.DB
	Driver string
}

// Stores bundles the repositories bound to one connection or transaction.
type Stores struct {
	Books   *books.Repository
	Users   *users.Repository
	History *history.Repository
	Audit   *audit.Repository
}

func NewStores(db *gorm.DB) Stores {
	return Stores{
		Books:   books.NewRepository(db),
		Users:   users.NewRepository(db),
		History: history.NewRepository(db),
		Audit:   audit.NewRepository(db),
	}
}

func NewDatabase(cfg config.Database) (*Database, error) {
	level := logger.Warn
	if cfg.LogQueries {
		level = logger.Info
	}
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
		db, err = gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	case config.DriverSQLite, "":
		db, err = gorm.Open(sqlite.Open(SQLiteDSN(cfg.Path, cfg.BusyTimeout)), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.History{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}
	if driver == config.DriverSQLite {
		log.Printf("Database initialized successfully at %s", cfg.Path)
	} else {
		log.Printf("Database initialized successfully (%s)", driver)
	}

	return &Database{DB: db, Driver: driver}, nil
}

// SQLiteDSN builds a DSN for the mattn driver. Transactions start with
// BEGIN IMMEDIATE so concurrent writers queue on the busy timeout instead of
// failing on lock upgrade, and WAL keeps readers off the writer's lock.
func SQLiteDSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprint(busyTimeout.Milliseconds()))
	params.Set("_txlock", "immediate")
	params.Set("_journal_mode", "WAL")
	params.Set("_foreign_keys", "on")
	return "file:" + path + "?" + params.Encode()
}

// Stores returns repositories bound to the main connection pool.
func (d *Database) Stores() Stores {
	return NewStores(d.DB)
}

// WithinTx runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise, including
// when ctx is cancelled.
func (d *Database) WithinTx(ctx context.Context, fn func(Stores) error) error {
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStores(tx))
	})
	if err != nil {
		return dbutil.MapError(err, "transaction", "")
	}
	return nil
}

// Ping checks that the store is reachable.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
