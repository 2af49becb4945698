package signvault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/himanishpuri/SignVault/pkg/logger"
	"github.com/himanishpuri/SignVault/pkg/models"
	"github.com/himanishpuri/SignVault/pkg/signvault/blob"
	"github.com/himanishpuri/SignVault/pkg/signvault/broadcast"
	"github.com/himanishpuri/SignVault/pkg/signvault/counter"
	"github.com/himanishpuri/SignVault/pkg/signvault/index"
	"github.com/himanishpuri/SignVault/pkg/signvault/storage"
	"golang.org/x/sync/singleflight"
)

// service is the default implementation of the Service interface.
type service struct {
	config  *Config
	log     Logger
	catalog Catalog
	blobs   blob.Store
	content *ContentStore

	index    *index.Index
	counters *counter.Table
	accel    *broadcast.Channel

	cache *expirable.LRU[string, *cachedClip]
	group singleflight.Group

	ownsCatalog bool
	closeOnce   sync.Once
	closeErr    error
}

// NewService opens the catalog and blob store and rebuilds the label index
// and user counters from the stored clips.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.ConsumerQueue <= 0 {
		cfg.ConsumerQueue = DefaultConsumerQueue
	}
	if cfg.DefaultMimeType == "" {
		cfg.DefaultMimeType = DefaultMimeType
	}

	blobs := cfg.BlobStore
	if blobs == nil {
		fs, err := blob.NewFileSystemStore(cfg.BlobRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob store: %w", err)
		}
		blobs = fs
	}

	catalog := cfg.Catalog
	ownsCatalog := false
	if catalog == nil {
		db, err := storage.NewDBClientWithPath(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog: %w", err)
		}
		catalog = db
		ownsCatalog = true
	}

	s := &service{
		config:      cfg,
		log:         cfg.Logger,
		catalog:     catalog,
		blobs:       blobs,
		content:     NewContentStore(catalog, blobs, cfg.Logger),
		index:       index.New(),
		counters:    counter.New(),
		accel:       broadcast.New(broadcast.Options{HistorySize: cfg.HistorySize, QueueSize: cfg.ConsumerQueue}),
		ownsCatalog: ownsCatalog,
	}
	if cfg.LookupCacheSize > 0 {
		s.cache = expirable.NewLRU[string, *cachedClip](cfg.LookupCacheSize, nil, cfg.LookupCacheTTL)
	}

	if err := s.rebuild(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	return s, nil
}

func (s *service) rebuild(ctx context.Context) error {
	clips := 0
	err := s.content.Walk(ctx, func(c models.Clip) error {
		s.index.Record(c.Label, c.ID, c.Seq)
		s.counters.Increment(c.Owner)
		clips++
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Infof("loaded %d clips across %d labels and %d users", clips, s.index.Len(), s.counters.Len())
	return nil
}

func (s *service) Leaderboard() []models.UserCount {
	return s.counters.Snapshot()
}

func (s *service) UserCount(username string) int64 {
	return s.counters.Get(username)
}

func (s *service) Labels() []models.LabelCount {
	return s.index.Labels()
}

func (s *service) Acceleration() *broadcast.Channel {
	return s.accel
}

func (s *service) Stats(ctx context.Context) (Stats, error) {
	n, err := s.catalog.CountClips(ctx)
	if err != nil {
		return Stats{}, newError(ErrStorageFailure, "catalog unavailable", err)
	}
	return Stats{
		Clips:       n,
		Labels:      s.index.Len(),
		Users:       s.counters.Len(),
		Consumers:   s.accel.Consumers(),
		Published:   s.accel.Published(),
		BlobBackend: s.blobs.Name(),
	}, nil
}

func (s *service) Ping(ctx context.Context) error {
	if err := s.catalog.Ping(ctx); err != nil {
		return newError(ErrStorageFailure, "catalog unavailable", err)
	}
	return nil
}

// Close disconnects stream consumers and closes the catalog if the service
// opened it. It is safe to call more than once.
func (s *service) Close() error {
	s.closeOnce.Do(func() {
		s.accel.Close()
		if s.ownsCatalog {
			s.closeErr = s.catalog.Close()
		}
	})
	return s.closeErr
}
