// Command jobsystemdemo runs one or more scripted job graphs through the
// scheduler and reports basic timing, useful for manual smoke-testing and
// as a worked usage example.
package main

import (
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/go-foundations/jobsystem"
	"github.com/go-foundations/jobsystem/internal/config"
	"github.com/go-foundations/jobsystem/internal/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	var scenario string

	root := &cobra.Command{
		Use:   "jobsystemdemo",
		Short: "Run a scripted fork-join job graph through the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runScenario(scenario, cfg)
		},
	}

	flags := root.Flags()
	config.BindFlags(flags)
	flags.StringVar(&configFile, "config", "", "optional YAML/TOML/JSON config file")
	flags.StringVar(&scenario, "scenario", "fanout", "scenario to run: fanout, chain, or affinity")

	return root
}

func runScenario(scenario string, cfg config.Config) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("jobsystemdemo: building logger: %w", err)
	}
	defer logger.Sync()

	promReg := prometheus.NewRegistry()
	reg := metrics.New(promReg)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}
	s := jobsystem.New(jobsystem.Config{
		NumWorkers:   cfg.NumWorkers,
		PoolCapacity: cfg.PoolCapacity,
		StealWait:    cfg.StealWait(),
		Logger:       logger,
		Metrics:      reg,
	})
	s.Init()
	defer s.Stop()

	start := time.Now()
	switch scenario {
	case "fanout":
		runFanOut(s, logger)
	case "chain":
		runChain(s, logger)
	case "affinity":
		runAffinity(s, logger)
	default:
		return fmt.Errorf("jobsystemdemo: unknown scenario %q", scenario)
	}
	logger.Info("scenario complete", zap.String("scenario", scenario), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func runFanOut(s *jobsystem.Scheduler, logger *zap.Logger) {
	const n = 256
	var total int64
	s.RunJob(func(w *jobsystem.Worker) {
		for i := 0; i < n; i++ {
			w.Schedule(func(w *jobsystem.Worker) {
				atomic.AddInt64(&total, 1)
			})
		}
	})
	logger.Info("fanout finished", zap.Int64("children_ran", total))
}

func runChain(s *jobsystem.Scheduler, logger *zap.Logger) {
	s.RunJob(func(w *jobsystem.Worker) {
		logger.Info("stage", zap.String("name", "update"))
		w.Continuation(func(w *jobsystem.Worker) {
			logger.Info("stage", zap.String("name", "render"))
			w.Continuation(func(w *jobsystem.Worker) {
				logger.Info("stage", zap.String("name", "present"))
			})
		})
	})
}

func runAffinity(s *jobsystem.Scheduler, logger *zap.Logger) {
	const n = 32
	s.RunJob(func(w *jobsystem.Worker) {
		for i := 0; i < n; i++ {
			w.ScheduleForThread(0, func(w *jobsystem.Worker) {
				logger.Debug("pinned job ran", zap.Int("worker", w.Index()))
			})
		}
	})
}
