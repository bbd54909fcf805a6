package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"msgdeck/internal/infrastructure/database"
	"msgdeck/internal/infrastructure/scheduler"
	"msgdeck/internal/interfaces/cli/bootstrap"
	httpRouter "msgdeck/internal/interfaces/http"
	"msgdeck/internal/interfaces/http/middleware"
	"msgdeck/internal/shared/logger"
)

const stopTimeout = 30 * time.Second

var (
	env         string
	configPath  string
	once        bool
	jobName     string
	metricsAddr string
)

func NewCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduled billing jobs",
		Long: `Run subscription expiry, the monthly usage reset and plan cache warming on their cron schedules.
With --once every job (or the one named by --job) runs immediately and the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), version)
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().BoolVar(&once, "once", false, "Run jobs once and exit")
	cmd.Flags().StringVar(&jobName, "job", "", "Limit --once to a single job")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics on this address while running (e.g. :9090)")

	return cmd
}

func run(ctx context.Context, version string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env = bootstrap.ResolveEnv(env)

	cfg, log, err := bootstrap.LoadRuntime(env, configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()
	log = log.Named("worker")

	if err := bootstrap.OpenDatabase(ctx, cfg); err != nil {
		return err
	}
	defer database.Close()

	container, err := httpRouter.NewContainer(ctx, database.Get(), cfg, version, log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer container.Shutdown()

	sched := scheduler.NewSchedulerManager(log)
	if err := container.RegisterJobs(sched); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	if once {
		return runOnce(ctx, sched, log)
	}

	var metricsSrv *http.Server
	if metricsAddr != "" {
		gin.SetMode(cfg.Server.Mode)
		metricsSrv = serveMetrics(metricsAddr, container.Metrics().Handler(), log)
	}

	sched.Start()
	log.Infow("worker started", "environment", env, "version", version)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	<-quit

	log.Infow("stopping worker")
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	sched.Stop(stopCtx)
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(stopCtx); err != nil {
			log.Warnw("metrics server shutdown failed", "error", err)
		}
	}

	log.Infow("worker exited gracefully")
	return nil
}

func runOnce(ctx context.Context, sched *scheduler.SchedulerManager, log logger.Interface) error {
	names := sched.Jobs()
	if jobName != "" {
		names = []string{jobName}
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		n, err := sched.RunNow(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		log.Infow("job finished", "job", name, "count", n)
	}
	return errors.Join(errs...)
}

// metricsRouter exposes only the Prometheus scrape endpoint.
func metricsRouter(h http.Handler, log logger.Interface) *gin.Engine {
	e := gin.New()
	e.Use(middleware.Recovery(log))
	e.GET("/metrics", gin.WrapH(h))
	return e
}

func serveMetrics(addr string, h http.Handler, log logger.Interface) *http.Server {
	srv := &http.Server{Addr: addr, Handler: metricsRouter(h, log), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Infow("metrics listener starting", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics listener failed", "error", err)
		}
	}()
	return srv
}
