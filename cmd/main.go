package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edupulse/edusync/internal/adapters/checkpoint"
	"github.com/edupulse/edusync/internal/adapters/destination"
	"github.com/edupulse/edusync/internal/adapters/http/health"
	"github.com/edupulse/edusync/internal/adapters/source"
	app "github.com/edupulse/edusync/internal/app"
	"github.com/edupulse/edusync/internal/config"
	"github.com/edupulse/edusync/pkg/logger"
)

// Exit codes.
const (
	exitOK          = 0
	exitFatal       = 1
	exitInterrupted = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	err := root.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, app.ErrInterrupted):
		return exitInterrupted
	default:
		return exitFatal
	}
}

type flags struct {
	live        bool
	dryRun      bool
	resume      bool
	limit       int
	rateLimitMS int
	configPath  string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "edusync",
		Short: "Synchronize source assessment data into the reporting database",
		Long: `edusync performs one checkpointed synchronization run: it walks the
paginated source streams, transforms the records into canonical
entities and upserts them into PostgreSQL, then reconciles and
recomputes statistics for every partition it touched.

Runs are dry by default; pass --live to write.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), f)
		},
	}

	cmd.Flags().BoolVar(&f.live, "live", false, "write to the destination instead of recording a dry run")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", true, "record what a run would write without touching the destination")
	cmd.Flags().BoolVar(&f.resume, "resume", false, "continue from the checkpoint of an interrupted run")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "cap records processed per stream (0 = no cap)")
	cmd.Flags().IntVar(&f.rateLimitMS, "rate-limit-ms", 0, "override the delay between source requests")
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to the YAML config file")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "override the configured log level")
	cmd.MarkFlagsMutuallyExclusive("live", "dry-run")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cmd.SetContext(ctx)
	cobra.OnFinalize(stop)

	return cmd
}

func runSync(ctx context.Context, f flags) error {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		log.Error(ctx, "configuration invalid", logger.Error(err))
		return err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	pageDelay := cfg.PageDelay()
	if f.rateLimitMS > 0 {
		pageDelay = time.Duration(f.rateLimitMS) * time.Millisecond
	}

	pool, err := destination.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error(ctx, "database connect failed", logger.Error(err))
		return err
	}
	defer pool.Close()

	live := f.live || !f.dryRun

	pg := destination.NewPGStore(pool,
		destination.WithWriteRetries(cfg.WriteRetries),
		destination.WithLogger(logger.Named("destination")))
	if live {
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error(ctx, "schema setup failed", logger.Error(err))
			return err
		}
	}

	store, err := selectStore(ctx, pg, live)
	if err != nil {
		log.Error(ctx, "store setup failed", logger.Error(err))
		return err
	}

	client := source.NewClient(cfg.SourceBaseURL, cfg.SourceAppID, cfg.SourceAPIKey,
		source.WithPageSize(cfg.PageSize),
		source.WithPageDelay(pageDelay),
		source.WithMaxRetries(cfg.FetchRetries))

	svc := app.New(client, store, checkpoint.NewStore(cfg.CheckpointPath), cfg.Fields,
		app.WithBatchSize(cfg.BatchSize),
		app.WithStatsMinSampleSize(cfg.StatsMinSampleSize),
		app.WithDryRun(!live),
		app.WithResume(f.resume),
		app.WithRecordLimit(f.limit),
		app.WithLogger(log))

	var healthSrv *health.Server
	if cfg.HealthAddr != "" {
		healthSrv = health.NewServer(func() health.Status {
			runID, stage := svc.Status()
			return health.Status{RunID: runID, Stage: stage}
		}, health.WithAddr(cfg.HealthAddr))
		healthSrv.Start(ctx)
		defer healthSrv.Shutdown(context.Background())
	}

	rep, err := svc.Run(ctx)
	if rep != nil {
		rep.Render(os.Stdout)
	}
	return err
}

// selectStore returns the live store or a recording store seeded from
// it, so a dry run resolves the same establishments and students a
// live run would and reconciles against the same stored cycles.
func selectStore(ctx context.Context, pg *destination.PGStore, live bool) (destination.Store, error) {
	if live {
		return pg, nil
	}
	bySource, convByID, err := pg.EstablishmentMaps(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed establishments: %w", err)
	}
	students, err := pg.StudentMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed students: %w", err)
	}
	mem := destination.NewMemoryStore(destination.WithCycleSource(pg))
	mem.Seed(bySource, convByID, students)
	return mem, nil
}
