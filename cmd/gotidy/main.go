package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gotidy/adapters/coercer"
	"gotidy/adapters/postgres"
	"gotidy/adapters/render"
	"gotidy/adapters/source"
	"gotidy/app"
	"gotidy/internal/cleaning"
	"gotidy/internal/config"
	"gotidy/internal/logging"
	"gotidy/internal/migration"
	"gotidy/ports"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "gotidy",
		Short:         "Load, clean, aggregate and chart tabular datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newDescribeCmd(),
		newServeCmd(),
		newPresetsCmd(),
		newMigrateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// environment is everything a command needs once configuration is loaded
type environment struct {
	cfg     *config.Config
	logger  *logging.Logger
	service *app.PipelineService
	results ports.ResultRepository
	db      *sqlx.DB
}

func (e *environment) Close() {
	if e.db != nil {
		e.db.Close()
	}
	e.logger.Sync()
}

func newEnvironment(ctx context.Context, overrides func(*config.Config)) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if overrides != nil {
		overrides(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	env := &environment{cfg: cfg, logger: logger}

	if cfg.Database.Enabled() {
		if err := env.openDatabase(ctx); err != nil {
			return nil, err
		}
	}

	coercion := coercer.DefaultCoercionConfig()
	coercion.DecimalComma = cfg.Source.DecimalComma
	c := coercer.NewTypeCoercer(coercion)

	loader := source.NewLoader(c,
		source.WithHTTPClient(&http.Client{Timeout: cfg.Source.HTTPTimeout}),
		source.WithInferSample(cfg.Source.InferSample),
		source.WithLogger(logger),
	)

	env.service = app.NewPipelineService(
		loader,
		cleaning.NewCleaner(c, logger),
		render.NewHTMLRenderer(cfg.Output.PlotlyURL),
		env.results,
		app.Settings{
			OutputDir: cfg.Output.Dir,
			TopN:      cfg.Pipeline.TopN,
			Decimals:  cfg.Pipeline.Decimals,
			Excel:     cfg.Output.Excel,
		},
		logger,
	)
	return env, nil
}

func (e *environment) openDatabase(ctx context.Context) error {
	if err := postgres.ValidateTableName(e.cfg.Database.ResultsTable); err != nil {
		return err
	}
	db, err := postgres.Open(ctx, e.cfg.Database.URL)
	if err != nil {
		return err
	}
	e.db = db

	if e.cfg.Database.Migrate {
		if err := migration.NewRunner(e.cfg.Database.ResultsTable, e.logger).Run(ctx, db); err != nil {
			db.Close()
			return err
		}
	}

	repo, err := postgres.NewResultRepository(db, e.cfg.Database.ResultsTable)
	if err != nil {
		db.Close()
		return err
	}
	e.results = repo
	return nil
}
