// Package db persists hedging runs in PostgreSQL.
package db

//go:generate mockgen -package mockdb -destination mock/store.go github.com/banachtech/pathpricer/db Store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/banachtech/pathpricer/logging"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("hedging run not found")

// Store provides all functions to persist and query hedging runs
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uint) (*Run, error)
}

// SQLStore provides all functions to execute db queries and transactions
type SQLStore struct {
	db *gorm.DB
}

// Open connects to the PostgreSQL database at dsn, logging queries through l.
func Open(dsn string, l *slog.Logger, slowThreshold time.Duration) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logging.NewGormLogger(l, slowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	return gdb, nil
}

func NewStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates or updates the run and state tables.
func (store *SQLStore) Migrate() error {
	return store.db.AutoMigrate(&Run{}, &State{})
}

// execTx executes a function within a database transaction
func (store *SQLStore) execTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return store.db.WithContext(ctx).Transaction(fn)
}

// CreateRun inserts the run and its states in one transaction and sets their ids.
func (store *SQLStore) CreateRun(ctx context.Context, run *Run) error {
	for i := range run.States {
		run.States[i].Seq = i
	}
	return store.execTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
}

func (store *SQLStore) GetRun(ctx context.Context, id uint) (*Run, error) {
	var run Run
	err := store.db.WithContext(ctx).
		Preload("States", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
