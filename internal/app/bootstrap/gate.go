package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/telehealth-gate/internal/compliance"
	appconfig "github.com/wolfman30/telehealth-gate/internal/config"
	"github.com/wolfman30/telehealth-gate/internal/gate"
	"github.com/wolfman30/telehealth-gate/internal/knowledge"
	"github.com/wolfman30/telehealth-gate/internal/observability/metrics"
	"github.com/wolfman30/telehealth-gate/internal/records"
	"github.com/wolfman30/telehealth-gate/pkg/logging"
)

// Runtime holds the gate service and the connections it owns.
type Runtime struct {
	Service *gate.Service
	Pool    *pgxpool.Pool
	AuditDB *sql.DB
	Redis   *redis.Client
}

// Close releases every connection the runtime opened.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.AuditDB != nil {
		errs = append(errs, r.AuditDB.Close())
	}
	if r.Pool != nil {
		r.Pool.Close()
	}
	return errors.Join(errs...)
}

// BuildCorpus loads the knowledge corpus from path, or the embedded corpus
// when path is empty.
func BuildCorpus(path string, logger *logging.Logger) (*knowledge.Corpus, error) {
	if logger == nil {
		logger = logging.Default()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		c := knowledge.DefaultCorpus()
		logger.Info("using embedded knowledge corpus", "documents", c.Len(), "fingerprint", c.Fingerprint())
		return c, nil
	}
	c, err := knowledge.LoadCorpusFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load corpus %s: %w", path, err)
	}
	logger.Info("loaded knowledge corpus", "path", path, "documents", c.Len(), "fingerprint", c.Fingerprint())
	return c, nil
}

// BuildGate wires the gate service: records backend, corpus, audit trail,
// search cache and metrics. On error every connection opened so far is
// closed.
func BuildGate(ctx context.Context, cfg *appconfig.Config, reg prometheus.Registerer, logger *logging.Logger) (_ *Runtime, err error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	rt := &Runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	corpus, err := BuildCorpus(cfg.KnowledgeCorpusPath, logger)
	if err != nil {
		return nil, err
	}

	margin := cfg.AmbiguityMargin
	opts := gate.Options{
		Corpus:           corpus,
		Metrics:          metrics.NewDecisionMetrics(reg),
		Logger:           logger,
		AmbiguityMargin:  &margin,
		DefaultTopK:      cfg.RetrievalTopK,
		BatchConcurrency: cfg.BatchConcurrency,
	}

	switch cfg.RecordsBackend {
	case appconfig.RecordsBackendPostgres:
		rt.Pool, err = BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if rt.Pool == nil {
			return nil, errors.New("bootstrap: postgres records backend requires DATABASE_URL")
		}
		opts.Records = records.NewPostgresRepository(rt.Pool)
	default:
		logger.Info("using seeded in-memory records")
		opts.Records = records.NewSeededRepository()
	}

	if cfg.AuditEnabled && cfg.DatabaseURL != "" {
		rt.AuditDB, err = BuildAuditDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		opts.Audit = compliance.NewAuditService(rt.AuditDB)
	} else {
		logger.Warn("decision audit trail disabled")
	}

	if rt.Redis = BuildRedisClient(ctx, cfg, logger, true); rt.Redis != nil {
		opts.Cache = gate.NewRedisSearchCache(rt.Redis, cfg.SearchCacheTTL)
	}

	rt.Service = gate.New(opts)
	return rt, nil
}
