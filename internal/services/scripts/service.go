package scripts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/healinghome/internal/platform/timeouts"
	"github.com/louisbranch/healinghome/internal/services/scripts/catalog"
	"github.com/louisbranch/healinghome/internal/services/scripts/session"
	"github.com/louisbranch/healinghome/internal/services/scripts/view"
	"golang.org/x/sync/errgroup"
)

// Service owns the data resource, the view-session store, and their
// background loops.
type Service struct {
	logger       *log.Logger
	resource     *catalog.Resource
	source       catalog.Source
	store        *session.Store
	dataFile     string
	watchData    bool
	sweepEvery   time.Duration
	fetchTimeout time.Duration

	closeOnce sync.Once
}

// NewService resolves the data source and builds an empty session store.
func NewService(cfg Config) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	dataFile := strings.TrimSpace(cfg.DataFile)
	if cfg.WatchData && dataFile == "" {
		return nil, errors.New("watch data requires a data file")
	}

	data := catalog.EmbeddedData()
	if dataFile != "" {
		fileData, err := os.ReadFile(dataFile)
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		data = fileData
	}
	resource, err := catalog.NewResource(data)
	if err != nil {
		return nil, fmt.Errorf("load situations resource: %w", err)
	}

	var source catalog.Source = resource
	if dataURL := strings.TrimSpace(cfg.DataURL); dataURL != "" {
		httpSource, err := catalog.NewHTTPSource(dataURL, nil)
		if err != nil {
			return nil, fmt.Errorf("configure data url: %w", err)
		}
		source = httpSource
	}
	if cfg.Source != nil {
		source = cfg.Source
	}

	store, err := session.NewStore(session.Config{
		NewController: func() *view.Controller {
			return view.NewController(view.Options{
				Source:       source,
				Logger:       logger,
				FetchTimeout: cfg.FetchTimeout,
			})
		},
		Idle:        cfg.SessionIdle,
		MaxSessions: cfg.MaxSessions,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build session store: %w", err)
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = timeouts.DataFetch
	}
	sweepEvery := cfg.SessionSweep
	if sweepEvery <= 0 {
		sweepEvery = timeouts.SessionSweep
	}
	return &Service{
		logger:       logger,
		resource:     resource,
		source:       source,
		store:        store,
		dataFile:     dataFile,
		watchData:    cfg.WatchData,
		sweepEvery:   sweepEvery,
		fetchTimeout: fetchTimeout,
	}, nil
}

// Run drives the idle sweeper and, when enabled, the data file watcher until
// ctx ends.
func (s *Service) Run(ctx context.Context) {
	if s == nil {
		return
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.store.Run(groupCtx, s.sweepEvery)
		return nil
	})
	if s.watchData {
		group.Go(func() error {
			err := catalog.Watch(groupCtx, catalog.WatchConfig{
				Path:     s.dataFile,
				Resource: s.resource,
				Logger:   s.logger,
			})
			if err != nil {
				s.logger.Printf("data file reload disabled path=%s: %v", s.dataFile, err)
			}
			return nil
		})
	}
	_ = group.Wait()
}

// Close unmounts every view session.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(s.store.Close)
}
