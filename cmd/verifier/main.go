package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"medverify/internal/audit"
	"medverify/internal/common/config"
	"medverify/internal/common/crypto"
	"medverify/internal/common/database"
	"medverify/internal/common/logger"
	"medverify/internal/common/observability"
	"medverify/internal/models"
	"medverify/internal/store"
	"medverify/internal/verification/identity"
	"medverify/internal/verification/identity/civilregistry"
	"medverify/internal/verification/pipeline"
	"medverify/internal/verification/rnpi"
	"medverify/internal/verification/rnpi/supersalud"
)

// retryWithBackoff attempts an operation with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting verifier",
		zap.String("environment", cfg.App.Environment),
		zap.String("identityProvider", cfg.Providers.Identity.Name),
		zap.String("professionalProvider", cfg.Providers.Professional.Name),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Postgres ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()
	if err := retryWithBackoff(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pg.Ping(pingCtx)
	}, 5, 2*time.Second, zapLog, "postgres connection"); err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}

	// --- Redis (registry cache; optional) ---
	rds, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	defer rds.Close()
	if err := rds.Ping(ctx); err != nil {
		zapLog.Warn("redis unavailable, registry caching disabled", zap.Error(err))
		rds = nil
	}

	// --- Elasticsearch audit trail (optional) ---
	var auditIndexer *audit.Indexer
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Warn("elasticsearch init failed, audit indexing disabled", zap.Error(err))
		} else if err := es.Ping(); err != nil {
			zapLog.Warn("elasticsearch unavailable, audit indexing disabled", zap.Error(err))
		} else {
			auditIndexer = audit.NewIndexer(es.Client, cfg.Database.Elasticsearch.AuditIndex, log)
		}
	}

	// --- Evidence encryption (mandatory in production) ---
	var encryptor *crypto.EvidenceEncryptor
	if cfg.Security.EvidenceKeyHex != "" {
		encryptor, err = crypto.NewEvidenceEncryptor(cfg.Security.EvidenceKeyHex)
		if err != nil {
			zapLog.Fatal("evidence encryptor init failed", zap.Error(err))
		}
	} else if cfg.App.IsProduction() {
		zapLog.Fatal("refusing to start in production without an evidence key")
	}

	// --- Providers (startup-time strategy selection) ---
	identityRegistry := identity.NewRegistry()
	identityRegistry.Register(civilregistry.NewClient(
		cfg.Providers.Identity.BaseURL,
		cfg.Providers.Identity.APIKey,
		time.Duration(cfg.Providers.Identity.TimeoutMS)*time.Millisecond,
	))

	identityProvider, err := identityRegistry.Get(cfg.Providers.Identity.Name)
	if err != nil {
		zapLog.Fatal("identity provider selection failed", zap.Error(err))
	}

	var registryCache *redis.Client
	if rds != nil {
		registryCache = rds.Client
	}
	professionalProvider := supersalud.NewClient(
		cfg.Providers.Professional.BaseURL,
		cfg.Providers.Professional.APIKey,
		time.Duration(cfg.Providers.Professional.TimeoutMS)*time.Millisecond,
		registryCache,
		time.Duration(cfg.Verification.RegistryCacheTTLS)*time.Second,
	)

	// --- Services and pipeline ---
	identityCfg := identity.DefaultConfig()
	identityCfg.Timeout = time.Duration(cfg.Providers.Identity.TimeoutMS) * time.Millisecond
	identityCfg.ProbeTimeout = time.Duration(cfg.Providers.Identity.ProbeTimeoutMS) * time.Millisecond
	if err := identityCfg.Validate(); err != nil {
		zapLog.Fatal("identity config invalid", zap.Error(err))
	}

	rnpiCfg := rnpi.DefaultConfig()
	rnpiCfg.Timeout = time.Duration(cfg.Providers.Professional.TimeoutMS) * time.Millisecond
	rnpiCfg.NameMatchThreshold = cfg.Verification.NameMatchThreshold
	if err := rnpiCfg.Validate(); err != nil {
		zapLog.Fatal("rnpi config invalid", zap.Error(err))
	}

	identityService := identity.NewService(identity.ServiceDependencies{
		Provider: identityProvider,
		Logger:   log,
	}, identityCfg)

	rnpiService := rnpi.NewService(rnpi.ServiceDependencies{
		Provider: professionalProvider,
		Logger:   log,
	}, rnpiCfg)

	verifyPipeline := pipeline.New(pipeline.Dependencies{
		Identity:      identityService,
		Professional:  rnpiService,
		Logger:        log,
		Observability: obs,
	})

	recordStore := store.New(pg.DB, encryptor, verifyPipeline, log)

	mux := newMux(cfg, verifyPipeline, recordStore, auditIndexer, log)

	server := &http.Server{
		Addr:    cfg.Server.ListenAddress,
		Handler: mux,
	}

	go func() {
		zapLog.Info("http server listening", zap.String("address", cfg.Server.ListenAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
}

// newMux builds the serving mux: metrics, health, the thin internal verify
// endpoints, and the pprof handlers (which would otherwise sit unreachable on
// the default mux).
func newMux(cfg *config.Config, p *pipeline.Pipeline, s *store.Store, auditIndexer *audit.Indexer, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.Server.MetricsPath, promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/internal/verify", verifyHandler(p, s, auditIndexer, log))
	mux.HandleFunc("/internal/status", statusHandler(s, log))
	mux.HandleFunc("/internal/rerun", rerunHandler(s, log))

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return mux
}

type verifyPayload struct {
	SubjectID string                      `json:"subjectId"`
	Request   *models.VerificationRequest `json:"request"`
}

func verifyHandler(p *pipeline.Pipeline, s *store.Store, auditIndexer *audit.Indexer, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var payload verifyPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Request == nil || payload.SubjectID == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		start := time.Now()
		result := p.VerifyDoctor(r.Context(), payload.Request)

		runID, err := s.Save(r.Context(), payload.SubjectID, payload.Request, result)
		if err != nil {
			log.WithError(err).Error("failed to persist verification result", map[string]interface{}{
				"subjectId": payload.SubjectID,
			})
			http.Error(w, "persistence failed", http.StatusInternalServerError)
			return
		}

		auditIndexer.Record(r.Context(), payload.SubjectID, runID, result, time.Since(start))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func statusHandler(s *store.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		subjectID := r.URL.Query().Get("subjectId")
		if subjectID == "" {
			http.Error(w, "subjectId is required", http.StatusBadRequest)
			return
		}

		result, err := s.Get(r.Context(), subjectID)
		if err != nil {
			if err == store.ErrNotFound {
				http.Error(w, "no verification record", http.StatusNotFound)
				return
			}
			log.WithError(err).Error("status lookup failed", map[string]interface{}{
				"subjectId": subjectID,
			})
			http.Error(w, "status lookup failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func rerunHandler(s *store.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		subjectID := r.URL.Query().Get("subjectId")
		if subjectID == "" {
			http.Error(w, "subjectId is required", http.StatusBadRequest)
			return
		}

		result, err := s.Rerun(r.Context(), subjectID)
		if err != nil {
			if err == store.ErrNotFound {
				http.Error(w, "no verification record", http.StatusNotFound)
				return
			}
			log.WithError(err).Error("rerun failed", map[string]interface{}{
				"subjectId": subjectID,
			})
			http.Error(w, "rerun failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}
