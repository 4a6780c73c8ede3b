package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clothes-shop/internal/database"

	"go.uber.org/zap"
)

// ErrTxAborted is returned when a transaction kept losing lock or
// serialization conflicts and was given up. The caller may retry the request.
var ErrTxAborted = errors.New("transaction aborted after repeated conflicts")

// DBTX is the query surface shared by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repositories groups every repository bound to the same connection or
// transaction
type Repositories struct {
	Users          UserRepository
	RefreshTokens  RefreshTokenRepository
	Categories     CategoryRepository
	Products       ProductRepository
	PaymentMethods PaymentMethodRepository
	Carts          CartRepository
	Orders         OrderRepository
	Settings       SettingsRepository
}

// NewRepositories binds all repositories to db
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Users:          NewUserRepository(db),
		RefreshTokens:  NewRefreshTokenRepository(db),
		Categories:     NewCategoryRepository(db),
		Products:       NewProductRepository(db),
		PaymentMethods: NewPaymentMethodRepository(db),
		Carts:          NewCartRepository(db),
		Orders:         NewOrderRepository(db),
		Settings:       NewSettingsRepository(db),
	}
}

// Store runs units of work against the database
type Store interface {
	// Repos returns repositories that run outside any transaction.
	Repos() Repositories

	// WithinTx runs fn in a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise; nothing fn wrote survives a
	// failure. fn may be invoked more than once when the database reports a
	// serialization failure or deadlock, so it must not have side effects
	// outside the repositories it is given.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// DefaultTxAttempts is how often a conflicting transaction is tried
const DefaultTxAttempts = 3

type sqlStore struct {
	db       *sql.DB
	logger   *zap.Logger
	attempts int
}

// NewStore creates a Store backed by db
func NewStore(db *sql.DB, logger *zap.Logger) Store {
	return &sqlStore{db: db, logger: logger, attempts: DefaultTxAttempts}
}

func (s *sqlStore) Repos() Repositories {
	return NewRepositories(s.db)
}

func (s *sqlStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !database.IsRetryable(err) {
			return err
		}

		lastErr = err
		s.logger.Warn("Transaction conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	return fmt.Errorf("%w: %v", ErrTxAborted, lastErr)
}

func (s *sqlStore) runOnce(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
