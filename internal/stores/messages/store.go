// Package messages persists chat turn batches in an append-only table.
//
// The gorm handle is owned by a single worker goroutine. Every public
// operation is sent to that worker as a closure and executed one at a time in
// the order the worker receives them, so the handle is never used
// concurrently even though the store itself is shared by every request.
package messages

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethanbaker/vulnassist/pkg/chat"
	"github.com/ethanbaker/vulnassist/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options select and locate the backing database
type Options struct {
	Driver string // utils.DriverSQLite or utils.DriverMySQL
	Path   string // sqlite file, created if absent
	DSN    string // mysql data source name
}

// OptionsFromSettings builds store options from the process settings
func OptionsFromSettings(s *utils.Settings) Options {
	return Options{
		Driver: s.DatabaseDriver,
		Path:   s.DatabasePath,
		DSN:    s.DSN(),
	}
}

// operation is a unit of work executed by the worker against the handle
type operation struct {
	fn    func(db *gorm.DB) error
	reply chan error
}

// Store is the serialized message store
type Store struct {
	driver string
	ops    chan operation
	done   chan struct{}
	logger *zap.Logger

	mu       sync.RWMutex
	closed   bool
	closeErr error
}

// Open starts the worker, which opens the database and creates the schema if
// needed. It returns once the worker is ready to accept operations.
func Open(opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		driver: opts.Driver,
		ops:    make(chan operation),
		done:   make(chan struct{}),
		logger: logger.Named("messages"),
	}

	ready := make(chan error, 1)
	go s.run(opts, ready)

	if err := <-ready; err != nil {
		return nil, &StoreError{Kind: KindIO, Op: "open", Err: err}
	}

	s.logger.Info("message store opened", zap.String("driver", opts.Driver))
	return s, nil
}

// run is the worker loop. It is the only code that touches the handle.
func (s *Store) run(opts Options, ready chan<- error) {
	defer close(s.done)

	db, err := connect(opts)
	if err != nil {
		ready <- err
		return
	}
	ready <- nil

	for op := range s.ops {
		op.reply <- op.fn(db)
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	s.closeErr = err
}

// connect opens the handle, pins it to a single connection and migrates
func connect(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case utils.DriverSQLite, "":
		if opts.Path == "" {
			return nil, errors.New("sqlite path must not be empty")
		}
		dialector = sqlite.Open(opts.Path)
	case utils.DriverMySQL:
		dialector = mysql.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if opts.Driver != utils.DriverMySQL {
		// Commits must reach disk before Append returns
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=FULL"} {
			if err := db.Exec(pragma).Error; err != nil {
				sqlDB.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	if err := db.AutoMigrate(&Batch{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return db, nil
}

// submit hands fn to the worker and waits for its result. If ctx ends before
// the worker accepts the operation it is never run; if ctx ends after, the
// operation still completes but its result is discarded.
func (s *Store) submit(ctx context.Context, fn func(db *gorm.DB) error) error {
	op := operation{fn: fn, reply: make(chan error, 1)}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	select {
	case s.ops <- op:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-op.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Append durably writes one turn batch. The insert runs in its own
// transaction and is committed before Append returns.
func (s *Store) Append(ctx context.Context, batch []byte) error {
	if len(batch) == 0 {
		return &StoreError{Kind: KindIO, Op: "append", Err: errors.New("empty batch")}
	}

	row := &Batch{Data: string(batch)}
	err := s.submit(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(row).Error
		})
	})
	if err != nil {
		return &StoreError{Kind: KindIO, Op: "append", Err: err}
	}

	return nil
}

// ReadAll returns every stored message, batch by batch in write order
func (s *Store) ReadAll(ctx context.Context) ([]chat.Message, error) {
	var rows []Batch
	err := s.submit(ctx, func(db *gorm.DB) error {
		return db.Order("id ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, &StoreError{Kind: KindIO, Op: "read", Err: err}
	}

	messages := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		decoded, err := chat.DecodeBatch([]byte(row.Data))
		if err != nil {
			return nil, &StoreError{Kind: KindCorrupt, Op: "read", Batch: row.ID, Err: err}
		}
		messages = append(messages, decoded...)
	}

	return messages, nil
}

// Count returns the number of stored batches
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.submit(ctx, func(db *gorm.DB) error {
		return db.Model(&Batch{}).Count(&count).Error
	})
	if err != nil {
		return 0, &StoreError{Kind: KindIO, Op: "count", Err: err}
	}

	return count, nil
}

// Checkpoint folds the sqlite write-ahead log back into the database file.
// It is a no-op for mysql.
func (s *Store) Checkpoint(ctx context.Context) error {
	if s.driver == utils.DriverMySQL {
		return nil
	}

	err := s.submit(ctx, func(db *gorm.DB) error {
		return db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error
	})
	if err != nil {
		return &StoreError{Kind: KindIO, Op: "checkpoint", Err: err}
	}

	return nil
}

// Close stops accepting operations, lets the worker finish every operation it
// already accepted, then closes the handle. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ops)
	}
	s.mu.Unlock()

	<-s.done

	if s.closeErr != nil {
		return &StoreError{Kind: KindIO, Op: "close", Err: s.closeErr}
	}

	s.logger.Info("message store closed")
	return nil
}
