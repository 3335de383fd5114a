package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	"github.com/go-co-op/gocron"
	r "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/eip3074-protection/pkg/api"
	"github.com/ethpandaops/eip3074-protection/pkg/config"
	"github.com/ethpandaops/eip3074-protection/pkg/contracts"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum"
	"github.com/ethpandaops/eip3074-protection/pkg/leaderelection"
	"github.com/ethpandaops/eip3074-protection/pkg/observability"
	"github.com/ethpandaops/eip3074-protection/pkg/redis"
	"github.com/ethpandaops/eip3074-protection/pkg/report"
	"github.com/ethpandaops/eip3074-protection/pkg/runner"
)

// memoryStoreEntries bounds the in-process result store used without redis.
const memoryStoreEntries = 100

// Server runs the scenario on a schedule and exposes its results.
type Server struct {
	log       logrus.FieldLogger
	config    *config.Config
	namespace string

	redis     *r.Client
	session   *ethereum.Session
	runner    *runner.Runner
	store     report.Store
	scheduler *gocron.Scheduler
	elector   leaderelection.Elector

	pprofServer  *http.Server
	healthServer *http.Server
	apiServer    *http.Server
}

// NewServer wires the session, runner and result store. Gas ratio lines are
// written to out.
func NewServer(ctx context.Context, log logrus.FieldLogger, namespace string, cfg *config.Config, out io.Writer) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	set, err := contracts.Load(&cfg.Contracts)
	if err != nil {
		return nil, fmt.Errorf("failed to load contracts: %w", err)
	}

	session, err := ethereum.NewSession(log.WithField("component", "ethereum"), namespace, &cfg.Ethereum)
	if err != nil {
		return nil, fmt.Errorf("failed to create ethereum session: %w", err)
	}

	s := &Server{
		log:       log,
		config:    cfg,
		namespace: namespace,
		session:   session,
		runner:    runner.New(log, session, set, out),
		scheduler: gocron.NewScheduler(time.UTC),
	}

	if cfg.Redis != nil {
		redisClient, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}

		s.redis = redisClient
		s.store = report.NewRedisStore(log, redisClient, cfg.Redis.Prefix, cfg.Redis.MaxEntries)

		if cfg.Server.LeaderElection.Enabled {
			elector, err := leaderelection.NewRedisElector(redisClient, log, cfg.Redis.Prefix+":leader", cfg.Server.LeaderElection)
			if err != nil {
				return nil, fmt.Errorf("failed to create leader elector: %w", err)
			}

			s.elector = elector
		}
	} else {
		s.store = report.NewMemoryStore(memoryStoreEntries)
	}

	s.runner.AddRecorder(s.store)

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Start metrics server
	g.Go(func() error {
		return observability.StartMetricsServer(ctx, s.config.Server.MetricsAddr)
	})

	// Start pprof server if configured
	if s.config.Server.PProfAddr != nil {
		s.pprofServer = &http.Server{
			Addr:              *s.config.Server.PProfAddr,
			ReadHeaderTimeout: 120 * time.Second,
		}

		g.Go(func() error {
			return s.listen("pprof", s.pprofServer)
		})
	}

	// Start health check server if configured
	if s.config.Server.HealthCheckAddr != nil {
		s.healthServer = &http.Server{
			Addr:              *s.config.Server.HealthCheckAddr,
			Handler:           s.healthHandler(),
			ReadHeaderTimeout: 120 * time.Second,
		}

		g.Go(func() error {
			return s.listen("healthcheck", s.healthServer)
		})
	}

	// Start API server if configured
	if s.config.Server.APIAddr != nil {
		mux := http.NewServeMux()
		api.NewHandler(s.log.WithField("component", "api"), s.runner, s.store).RegisterRoutes(mux)

		s.apiServer = &http.Server{
			Addr:              *s.config.Server.APIAddr,
			Handler:           mux,
			ReadHeaderTimeout: 120 * time.Second,
		}

		g.Go(func() error {
			return s.listen("api", s.apiServer)
		})
	}

	if s.elector != nil {
		g.Go(func() error {
			return s.elector.Start(ctx)
		})
	}

	// Start the session, then the schedule
	g.Go(func() error {
		if err := s.session.Start(ctx); err != nil {
			return err
		}

		return s.schedule(ctx)
	})

	// Wait for shutdown signal
	g.Go(func() error {
		<-ctx.Done()

		return s.stop(ctx)
	})

	return g.Wait()
}

// Runner returns the scheduled runner.
func (s *Server) Runner() *runner.Runner {
	return s.runner
}

// Store returns the result store.
func (s *Server) Store() report.Store {
	return s.store
}

func (s *Server) schedule(ctx context.Context) error {
	s.scheduler.SingletonModeAll()

	job := s.scheduler.Every(s.config.Server.Interval)
	if !s.config.Server.RunOnStart {
		job = job.WaitForSchedule()
	}

	if _, err := job.Do(func() {
		if s.elector != nil && !s.elector.IsLeader() {
			s.log.Debug("Not the leader, skipping scheduled run")

			return
		}

		// Failures are logged and counted by the runner.
		_, _ = s.runner.Run(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule runs: %w", err)
	}

	s.log.WithField("interval", s.config.Server.Interval).Info("Scheduled runs")

	s.scheduler.StartAsync()

	return nil
}

func (s *Server) listen(name string, server *http.Server) error {
	s.log.WithField("addr", server.Addr).Infof("Starting %s server", name)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}

	return nil
}

func (s *Server) healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !s.session.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	})
}

func (s *Server) stop(ctx context.Context) error {
	// Create a timeout context for cleanup; ctx is already done here.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Server.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	s.scheduler.Stop()

	if s.elector != nil {
		if err := s.elector.Stop(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to stop leader election")
		}
	}

	if err := s.session.Stop(cleanupCtx); err != nil {
		s.log.WithError(err).Error("failed to stop ethereum session")
	}

	// Close Redis connection
	if s.redis != nil {
		s.log.Info("Closing Redis connection...")

		if err := s.redis.Close(); err != nil {
			s.log.WithError(err).Error("failed to close redis")
		}
	}

	// Shutdown HTTP servers
	for name, server := range map[string]*http.Server{
		"pprof":       s.pprofServer,
		"healthcheck": s.healthServer,
		"api":         s.apiServer,
	} {
		if server == nil {
			continue
		}

		if err := server.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Errorf("failed to shutdown %s server", name)
		}
	}

	if err := observability.StopMetricsServer(cleanupCtx); err != nil {
		s.log.WithError(err).Error("failed to stop metrics server")
	}

	s.log.Info("Server stopped gracefully")

	return nil
}
