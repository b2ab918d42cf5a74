package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/clinicio/docflow/internal/api_server"
	"github.com/clinicio/docflow/internal/config"
	"github.com/clinicio/docflow/internal/extraction"
	"github.com/clinicio/docflow/internal/resolver"
	"github.com/clinicio/docflow/internal/scheduler"
	"github.com/clinicio/docflow/internal/service"
	"github.com/clinicio/docflow/internal/store"
	"github.com/clinicio/docflow/pkg/log"
	"github.com/clinicio/docflow/pkg/migrations"
)

func main() {
	root := &cobra.Command{
		Use:          "docflow-api",
		Short:        "Clinical document intake and resolution service",
		SilenceUsage: true,
	}
	root.AddCommand(runCommand(), migrateCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogger(level string) func() {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger := log.InitLog(lvl)
	undo := zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
		undo()
	}
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the API server, metrics server and resolution workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}

			restoreLogger := initLogger(cfg.Service.LogLevel)
			defer restoreLogger()

			logger := zap.S().Named("docflow")
			logger.Info("starting docflow")

			db, err := store.InitDB(cfg)
			if err != nil {
				return err
			}
			st := store.NewStore(db)
			defer st.Close()

			if cfg.Service.MigrationFolder != "" {
				if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder); err != nil {
					return err
				}
			} else if err := st.InitialMigration(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
			defer cancel()

			extractor := extraction.NewPlainTextExtractor()
			res := resolver.New(buildScorer(cfg), resolver.Thresholds{
				AutoAssign: cfg.Pipeline.AutoAssignThreshold,
				Review:     cfg.Pipeline.ReviewThreshold,
			})
			docSrv := service.NewDocumentService(st, extractor, res, cfg.Pipeline.MaxRetries)

			sched := scheduler.New(st, extractor, res, scheduler.Config{
				Workers:        cfg.Pipeline.Workers,
				MaxRetries:     cfg.Pipeline.MaxRetries,
				BackoffBase:    cfg.Pipeline.BackoffBase,
				BackoffCap:     cfg.Pipeline.BackoffCap,
				PollInterval:   cfg.Pipeline.PollInterval,
				ResolveTimeout: cfg.Pipeline.ResolveTimeout,
			})
			sched.RegisterHandler(service.JobTypeSmartProcess, docSrv.ProcessJob)
			go sched.Run(ctx)

			go func() {
				listener, err := newListener(cfg.Service.MetricsAddress)
				if err != nil {
					logger.Fatalf("creating metrics listener: %s", err)
				}
				if err := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener).Run(ctx); err != nil {
					logger.Errorf("running metrics server: %s", err)
				}
				cancel()
			}()

			go func() {
				listener, err := newListener(cfg.Service.Address)
				if err != nil {
					logger.Fatalf("creating listener: %s", err)
				}
				if err := apiserver.New(cfg, st, listener, docSrv).Run(ctx); err != nil {
					logger.Errorf("running api server: %s", err)
				}
				cancel()
			}()

			<-ctx.Done()
			logger.Info("docflow stopped")
			return nil
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}

			restoreLogger := initLogger(cfg.Service.LogLevel)
			defer restoreLogger()

			db, err := store.InitDB(cfg)
			if err != nil {
				return err
			}
			st := store.NewStore(db)
			defer st.Close()

			if cfg.Service.MigrationFolder != "" {
				return migrations.MigrateStore(db, cfg.Service.MigrationFolder)
			}
			return st.InitialMigration()
		},
	}
}

// buildScorer wires the optional scoring oracle. The default heuristic
// mode returns nil: the resolver then relies on its own name-scan
// evidence.
func buildScorer(cfg *config.Config) extraction.Scorer {
	switch cfg.Pipeline.Scorer {
	case string(extraction.ProviderOpenAI), string(extraction.ProviderOllama):
		scorer, err := extraction.NewLLMScorer(extraction.LLMScorerConfig{
			Provider:  extraction.LLMScorerProvider(cfg.Pipeline.Scorer),
			Model:     cfg.Pipeline.ScorerModel,
			APIKey:    cfg.Pipeline.ScorerAPIKey,
			ServerURL: cfg.Pipeline.ScorerServerURL,
		})
		if err != nil {
			zap.S().Named("docflow").Warnf("scoring oracle disabled: %s", err)
			return nil
		}
		return scorer
	default:
		return nil
	}
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
