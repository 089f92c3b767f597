package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/face-verifier/internal/config"
	"github.com/kozaktomas/face-verifier/internal/database"
	"github.com/kozaktomas/face-verifier/internal/database/mariadb"
	"github.com/kozaktomas/face-verifier/internal/database/postgres"
	"github.com/kozaktomas/face-verifier/internal/embedding"
	"github.com/kozaktomas/face-verifier/internal/faceid"
	"github.com/kozaktomas/face-verifier/internal/logger"
	"github.com/kozaktomas/face-verifier/internal/metrics"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    database.IdentityWriter
	index    *database.HNSWIndex // nil unless FACE_INDEX=hnsw
	service  *faceid.Service
	model    string
	registry *prometheus.Registry

	closers []func()
}

// appOptions selects the optional parts of the wiring.
type appOptions struct {
	withStore     bool
	withExtractor bool // commands that only read the store skip the model
	withIndex     bool
}

// newApp loads the configuration and wires store, model, index and service.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      logger.New(cfg.Logging),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if opts.withStore {
		if err := a.openStore(ctx); err != nil {
			a.close()
			return nil, err
		}
	}

	if !opts.withExtractor {
		return a, nil
	}

	m := metrics.New(a.registry)

	detector, jpegOnly, err := a.openDetector(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.model = detector.Model()

	var extractor faceid.Extractor = faceid.NewModelExtractor(detector, nil, faceid.ExtractorOptions{
		Dim:                 cfg.Embedding.Dim,
		MaxImageSize:        cfg.Embedding.MaxImageSize,
		RejectMultipleFaces: cfg.Embedding.RejectMultipleFaces,
		JPEGOnly:            jpegOnly,
	})
	extractor = faceid.NewBoundedExtractor(extractor, faceid.PoolOptions{
		Concurrency:  cfg.Embedding.Concurrency,
		QueueTimeout: cfg.Embedding.QueueTimeout,
		CallTimeout:  cfg.Embedding.Timeout,
		Metrics:      m,
	})

	var faceIndex database.NearestFinder
	if opts.withStore && opts.withIndex {
		faceIndex, err = a.openIndex(ctx)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	creds, err := faceid.NewCredentialPolicy(cfg.Security.CredentialHashing, cfg.Security.BcryptCost)
	if err != nil {
		a.close()
		return nil, err
	}

	a.service = faceid.NewService(a.store, extractor, faceid.ServiceOptions{
		Matcher:            faceid.NewMatcher(cfg.Matching.Threshold),
		Credentials:        creds,
		FaceIndex:          faceIndex,
		DuplicateFaceCheck: cfg.Matching.DuplicateFaceCheck,
		Model:              a.model,
		Logger:             a.log,
		Metrics:            m,
	})

	a.log.Debug().
		Str("model", a.model).
		Int("dim", cfg.Embedding.Dim).
		Float64("threshold", cfg.Matching.Threshold).
		Str("credentials", creds.Name()).
		Msg("face verification service ready")

	return a, nil
}

// openStore connects to the configured identity store.
func (a *app) openStore(ctx context.Context) error {
	cfg := a.cfg
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	switch cfg.Database.Driver {
	case "mariadb":
		pool, err := mariadb.Open(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		a.closers = append(a.closers, func() { _ = pool.Close() })
		a.store = mariadb.NewIdentityRepository(pool, cfg.Embedding.Dim)
		a.log.Info().Msg("using MariaDB identity store")
	default:
		pool, applied, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, func() { _ = pool.Close() })
		for _, m := range applied {
			a.log.Info().Str("migration", m).Msg("applied migration")
		}
		a.store = postgres.NewIdentityRepository(pool, cfg.Embedding.Dim)
		a.log.Info().Msg("using PostgreSQL identity store")
	}
	return nil
}

// openDetector initializes the face model once. The bool reports whether the
// model only accepts JPEG input.
func (a *app) openDetector(ctx context.Context) (faceid.FaceDetector, bool, error) {
	cfg := a.cfg.Embedding

	switch cfg.Backend {
	case "dlib":
		a.log.Info().Str("models_dir", cfg.DlibModelsDir).Msg("loading dlib face recognition models")
		d, err := embedding.NewDlibDetector(cfg.DlibModelsDir, cfg.Model)
		if err != nil {
			return nil, false, err
		}
		a.closers = append(a.closers, d.Close)
		return d, true, nil
	default:
		client := embedding.NewClient(cfg.URL, cfg.Model)
		a.log.Info().Str("url", cfg.URL).Msg("waiting for embedding server")
		if err := client.WaitReady(ctx, cfg.StartupTimeout); err != nil {
			return nil, false, err
		}
		return client, false, nil
	}
}

// openIndex prepares the face index used by the duplicate-face check.
func (a *app) openIndex(ctx context.Context) (database.NearestFinder, error) {
	cfg := a.cfg.FaceIndex

	switch cfg.Backend {
	case "hnsw":
		idx, loaded, err := database.OpenHNSWIndex(ctx, a.store, a.cfg.Embedding.Dim, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to build face index: %w", err)
		}
		a.index = idx
		a.log.Info().Int("identities", idx.Count()).Bool("from_disk", loaded).Msg("face HNSW index ready")
		return idx, nil
	case "store":
		finder, ok := a.store.(database.NearestFinder)
		if !ok {
			return nil, fmt.Errorf("%s store does not support nearest-neighbour search", a.cfg.Database.Driver)
		}
		return finder, nil
	default:
		return nil, nil
	}
}

// saveIndex persists the HNSW index when a path is configured.
func (a *app) saveIndex() {
	if a.index == nil || a.cfg.FaceIndex.Path == "" {
		return
	}
	if err := a.index.SaveWithMetadata(a.cfg.FaceIndex.Path); err != nil {
		a.log.Warn().Err(err).Msg("failed to save face HNSW index")
		return
	}
	a.log.Info().Str("path", a.cfg.FaceIndex.Path).Int("identities", a.index.Count()).Msg("face HNSW index saved")
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
