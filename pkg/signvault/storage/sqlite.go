//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/SignVault/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const errDBClientNil = "db client is nil"

var (
	// ErrClipNotFound is returned when no catalog row exists for an ID.
	ErrClipNotFound = errors.New("clip not found in catalog")

	// ErrCatalogLocked is returned when another process already has the
	// catalog open. The label index and user counters are rebuilt from the
	// catalog only at startup, so a second writer would go unseen.
	ErrCatalogLocked = errors.New("catalog is in use by another process")
)

type DBClient struct {
	DB   *gorm.DB
	db   *sql.DB
	lock *os.File
}

// ClipRecord is the catalog row for one stored clip. The payload itself lives
// in the blob store under ID; Seq is the clip's submission order.
type ClipRecord struct {
	Seq         uint64 `gorm:"primaryKey;autoIncrement"`
	ID          string `gorm:"type:varchar(36);uniqueIndex:idx_clip_id"`
	Owner       string `gorm:"index:idx_owner"`
	Label       string `gorm:"index:idx_label"`
	RawLabel    string
	MimeType    string
	SizeBytes   int64
	Checksum    string `gorm:"type:char(64)"`
	BlobBackend string
	CreatedAt   time.Time
}

func (ClipRecord) TableName() string { return "clips" }

// Clip converts the row to a domain clip without payload.
func (r ClipRecord) Clip() models.Clip {
	return models.Clip{
		ID:        r.ID,
		Seq:       r.Seq,
		MimeType:  r.MimeType,
		Owner:     r.Owner,
		Label:     r.Label,
		RawLabel:  r.RawLabel,
		SizeBytes: r.SizeBytes,
		Checksum:  r.Checksum,
		CreatedAt: r.CreatedAt,
	}
}

// Options tunes the underlying connection pool.
type Options struct {
	// MaxOpenConns bounds concurrent connections. SQLite serialises writers,
	// so the default of 1 avoids SQLITE_BUSY under concurrent uploads.
	MaxOpenConns int
	BusyTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{MaxOpenConns: 1, BusyTimeout: 5 * time.Second}
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	return NewDBClientWithOptions(dbPath, DefaultOptions())
}

func NewDBClientWithOptions(dbPath string, opts Options) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 1
	}

	var lock *os.File
	if dbPath != ":memory:" {
		l, err := lockCatalog(dbPath)
		if err != nil {
			return nil, err
		}
		lock = l
	}

	gormConfig := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		dbPath, opts.BusyTimeout.Milliseconds())
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		unlockCatalog(lock)
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		unlockCatalog(lock)
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&ClipRecord{}); err != nil {
		sqlDB.Close()
		unlockCatalog(lock)
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB, lock: lock}, nil
}

// Close closes the database and releases the catalog lock.
func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	if uerr := unlockCatalog(c.lock); err == nil {
		err = uerr
	}
	c.lock = nil
	return err
}

func (c *DBClient) Ping(ctx context.Context) error {
	if c == nil || c.db == nil {
		return errors.New(errDBClientNil)
	}
	return c.db.PingContext(ctx)
}

// InsertClip stores rec and fills in its Seq.
func (c *DBClient) InsertClip(ctx context.Context, rec *ClipRecord) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if rec.ID == "" {
		return errors.New("clip id is required")
	}
	if err := c.DB.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("clip %s already exists: %w", rec.ID, err)
		}
		return fmt.Errorf("inserting clip: %w", err)
	}
	return nil
}

func (c *DBClient) GetClip(ctx context.Context, id string) (*ClipRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rec ClipRecord
	err := c.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClipNotFound, id)
		}
		return nil, fmt.Errorf("querying clip: %w", err)
	}
	return &rec, nil
}

// EachClip calls fn for every catalog row in ascending Seq order, reading
// batchSize rows at a time. Iteration stops at the first error from fn.
func (c *DBClient) EachClip(ctx context.Context, batchSize int, fn func(ClipRecord) error) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	var rows []ClipRecord
	result := c.DB.WithContext(ctx).FindInBatches(&rows, batchSize, func(tx *gorm.DB, batch int) error {
		for _, r := range rows {
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	})
	if result.Error != nil {
		return fmt.Errorf("iterating clips: %w", result.Error)
	}
	return nil
}

func (c *DBClient) CountClips(ctx context.Context) (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var n int64
	if err := c.DB.WithContext(ctx).Model(&ClipRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting clips: %w", err)
	}
	return n, nil
}
