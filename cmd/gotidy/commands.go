package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gotidy/adapters/postgres"
	"gotidy/app"
	"gotidy/internal/config"
	"gotidy/internal/errors"
	"gotidy/internal/jobs"
	"gotidy/internal/migration"
	"gotidy/ui"
)

// jobFlags are shared by every command that runs a pipeline
type jobFlags struct {
	file   string
	preset string
	input  string
	top    int
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "job", "j", "", "Path to a YAML job definition")
	cmd.Flags().StringVarP(&f.preset, "preset", "p", "", "Name of a built-in job (see 'gotidy presets')")
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Override the job's source location (path or URL)")
	cmd.Flags().IntVar(&f.top, "top", -1, "Keep only the N largest groups (unset keeps the job's own ranking)")
}

// resolve loads the job named by the flags and applies the overrides
func (f *jobFlags) resolve() (*jobs.Job, error) {
	var (
		job *jobs.Job
		err error
	)
	switch {
	case f.file != "" && f.preset != "":
		return nil, errors.InvalidInput("--job and --preset are mutually exclusive")
	case f.file != "":
		job, err = jobs.LoadFile(f.file)
	case f.preset != "":
		job, err = jobs.Preset(f.preset)
	default:
		return nil, errors.InvalidInput("one of --job or --preset is required")
	}
	if err != nil {
		return nil, err
	}

	if f.input != "" {
		job.Source.Location = f.input
	}
	if f.top >= 0 {
		top := f.top
		job.TopN = &top
	}
	return job, job.Validate()
}

func newRunCmd() *cobra.Command {
	var (
		flags  jobFlags
		outDir string
		excel  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a job and write its artifacts",
		Long: `Run a job end to end: load, clean, filter, aggregate, chart and report.

Example: gotidy run --preset liquor-store-share --input ./finance_liquor_sales.csv --top 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := flags.resolve()
			if err != nil {
				return err
			}
			env, err := newEnvironment(cmd.Context(), func(cfg *config.Config) {
				if outDir != "" {
					cfg.Output.Dir = outDir
				}
				if cmd.Flags().Changed("excel") {
					cfg.Output.Excel = excel
				}
			})
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.service.Run(cmd.Context(), job)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %d rows loaded, %d kept\n", res.RunID(), res.RowsLoaded, res.Cleaned.Len())
			for _, a := range res.Manifest.Artifacts {
				fmt.Fprintf(out, "  %s\n", a)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default from GOTIDY_OUTPUT_DIR)")
	cmd.Flags().BoolVar(&excel, "excel", false, "Also write an Excel workbook")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var flags jobFlags

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Process a job and print its report without writing artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := flags.resolve()
			if err != nil {
				return err
			}
			env, err := newEnvironment(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.service.Process(cmd.Context(), job)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), app.ReportMarkdown(res, nil))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		flags jobFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a job and serve its report, chart and results over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := flags.resolve()
			if err != nil {
				return err
			}
			env, err := newEnvironment(cmd.Context(), func(cfg *config.Config) {
				if addr != "" {
					cfg.Server.Addr = addr
				}
			})
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.service.Run(cmd.Context(), job)
			if err != nil {
				return err
			}

			server := ui.NewApp(ui.Config{
				Addr:      env.cfg.Server.Addr,
				RateLimit: env.cfg.Server.RateLimit,
				Burst:     env.cfg.Server.Burst,
			}, env.service, res, env.results, env.logger)
			return server.Start(cmd.Context())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from GOTIDY_SERVER_ADDR)")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "List built-in jobs, or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range jobs.Presets() {
					job, _ := jobs.Preset(name)
					fmt.Fprintf(out, "%-22s %s\n", name, job.Description)
				}
				return nil
			}

			job, err := jobs.Preset(args[0])
			if err != nil {
				return err
			}
			data, err := jobs.Marshal(job)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the aggregate results table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := postgres.ValidateTableName(cfg.Database.ResultsTable); err != nil {
				return err
			}
			if printOnly {
				for _, stmt := range migration.NewRunner(cfg.Database.ResultsTable, nil).Statements() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
				}
				return nil
			}
			if !cfg.Database.Enabled() {
				return errors.ConfigInvalid("GOTIDY_DB_URL is not set")
			}

			env, err := newEnvironment(cmd.Context(), func(c *config.Config) { c.Database.Migrate = true })
			if err != nil {
				return err
			}
			defer env.Close()
			fmt.Fprintf(cmd.ErrOrStderr(), "table %s is up to date\n", cfg.Database.ResultsTable)
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the DDL instead of executing it")
	return cmd
}
