// Package session bounds every sequence of reads and writes inside one
// transaction drawn from the shared connection pool. A unit of work commits or
// rolls back atomically, exactly once, on every exit path.
package session

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bookstore/internal/logger"
	"bookstore/internal/storeerr"
)

// State tracks the lifecycle of a unit of work: Idle until a pooled connection
// is acquired, Active while the caller's function runs, then exactly one of
// Committed or RolledBack.
type State string

const (
	StateIdle       State = "idle"
	StateActive     State = "active"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// UnitOfWork is the handle passed to the caller's function. The ID exists only
// for log correlation; entity keys are unrelated.
type UnitOfWork struct {
	id    uuid.UUID
	tx    *gorm.DB
	state State
}

func (u *UnitOfWork) ID() uuid.UUID { return u.id }

// DB returns the transaction all reads and writes of this unit of work must
// go through.
func (u *UnitOfWork) DB() *gorm.DB { return u.tx }

func (u *UnitOfWork) State() State { return u.state }

type Config struct {
	PoolSize          int
	MaxOverflow       int
	AcquireTimeout    time.Duration
	UnitOfWorkTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MaxOverflow < 0 {
		c.MaxOverflow = 0
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 5 * time.Second
	}
	if c.UnitOfWorkTimeout <= 0 {
		c.UnitOfWorkTimeout = 30 * time.Second
	}
}

// Manager owns the pooled *gorm.DB and opens units of work against it. It is
// created once at startup; there is no other process-wide mutable state.
type Manager struct {
	db  *gorm.DB
	cfg Config
	log *logger.Logger
}

func NewManager(db *gorm.DB, cfg Config, log *logger.Logger) (*Manager, error) {
	cfg.applyDefaults()

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Manager{db: db, cfg: cfg, log: log.With("component", "session")}, nil
}

// DB exposes the pooled handle for wiring repositories. Mutations must not use
// it directly; they go through Run.
func (m *Manager) DB() *gorm.DB { return m.db }

// Run opens a unit of work and invokes fn inside it. The connection is
// acquired from the pool within AcquireTimeout (failure surfaces as
// ResourceExhausted); fn then runs under a UnitOfWorkTimeout deadline. A nil
// return from fn commits every buffered mutation atomically; any error — or a
// cancelled caller context — discards them all and returns the connection to
// the pool unchanged.
func (m *Manager) Run(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	uow := &UnitOfWork{id: uuid.New(), state: StateIdle}

	acquireCtx, cancelAcquire := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancelAcquire()

	began := false
	err := m.db.WithContext(acquireCtx).Connection(func(conn *gorm.DB) error {
		uowCtx, cancel := context.WithTimeout(ctx, m.cfg.UnitOfWorkTimeout)
		defer cancel()

		return conn.WithContext(uowCtx).Transaction(func(tx *gorm.DB) error {
			began = true
			uow.tx = tx
			uow.state = StateActive
			return fn(uow)
		})
	})

	if err != nil {
		if began {
			uow.state = StateRolledBack
		}
		err = m.classify(err, began)
		m.log.Warn("unit of work rolled back", "uow_id", uow.id, "acquired", began, "error", err)
		return err
	}

	uow.state = StateCommitted
	m.log.Debug("unit of work committed", "uow_id", uow.id)
	return nil
}

// classify maps infrastructure failures onto the error taxonomy; business
// errors and already-classified constraint violations pass through unchanged.
func (m *Manager) classify(err error, began bool) error {
	if _, ok := storeerr.AsConstraintViolation(err); ok {
		return err
	}
	switch {
	case errors.Is(err, storeerr.ErrNotFound),
		errors.Is(err, storeerr.ErrStockUnavailable),
		errors.Is(err, storeerr.ErrDiscountInactive),
		errors.Is(err, storeerr.ErrDiscountExpired),
		errors.Is(err, storeerr.ErrOrderStateConflict),
		errors.Is(err, storeerr.ErrResourceExhausted),
		errors.Is(err, storeerr.ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		if began {
			return fmt.Errorf("%w: unit of work exceeded its deadline: %v", storeerr.ErrResourceExhausted, err)
		}
		return fmt.Errorf("%w: no pooled connection within acquire timeout: %v", storeerr.ErrResourceExhausted, err)
	case errors.Is(err, context.Canceled):
		return err
	case isUnreachable(err):
		return fmt.Errorf("%w: %v", storeerr.ErrUnavailable, err)
	case storeerr.IsUniqueViolation(err), storeerr.IsForeignKeyViolation(err):
		return storeerr.Classify(err, "")
	}
	return err
}

func isUnreachable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "connection reset")
}
