package app

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"gotidy/adapters/sink"
	"gotidy/adapters/source"
	"gotidy/domain/core"
	"gotidy/domain/run"
	"gotidy/domain/table"
	"gotidy/internal/aggregation"
	"gotidy/internal/cleaning"
	"gotidy/internal/errors"
	"gotidy/internal/filtering"
	"gotidy/internal/jobs"
	"gotidy/internal/logging"
	"gotidy/internal/profiling"
	"gotidy/internal/report"
	"gotidy/ports"
)

// Settings are the run defaults a job does not carry itself
type Settings struct {
	OutputDir string
	TopN      int
	Decimals  int
	Excel     bool
}

// TableLoader reads a job's source into a raw table
type TableLoader interface {
	Load(ctx context.Context, src source.Source) (*table.Table, error)
}

// PipelineService runs load -> clean -> filter -> aggregate -> top-N -> emit.
// Each stage receives the previous stage's output; nothing is shared between
// runs.
type PipelineService struct {
	loader   TableLoader
	cleaner  *cleaning.Cleaner
	renderer ports.ChartRenderer
	results  ports.ResultRepository
	settings Settings
	logger   *logging.Logger
}

// RunResult holds every intermediate table of one run
type RunResult struct {
	Job         *jobs.Job
	Manifest    *run.Manifest
	RowsLoaded  int
	Cleaned     *table.Table
	CleanReport cleaning.Report
	Filtered    *table.Table
	Aggregate   *table.AggregateTable
	Summaries   []profiling.Summary
	Correlation *profiling.CorrelationMatrix
}

// RunID returns the identifier of the run
func (r *RunResult) RunID() core.RunID { return r.Manifest.RunID }

// NewPipelineService creates a pipeline service. renderer and results may be
// nil to skip charts and persistence.
func NewPipelineService(loader TableLoader, cleaner *cleaning.Cleaner, renderer ports.ChartRenderer, results ports.ResultRepository, settings Settings, logger *logging.Logger) *PipelineService {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	if settings.Decimals < 0 {
		settings.Decimals = aggregation.DefaultDecimals
	}
	return &PipelineService{
		loader:   loader,
		cleaner:  cleaner,
		renderer: renderer,
		results:  results,
		settings: settings,
		logger:   logger.Named("Pipeline"),
	}
}

// Run processes the job and writes its artifacts
func (s *PipelineService) Run(ctx context.Context, job *jobs.Job) (*RunResult, error) {
	res, err := s.Process(ctx, job)
	if err != nil {
		return nil, err
	}
	if err := s.Emit(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// Process runs every stage up to, but not including, emitting artifacts
func (s *PipelineService) Process(ctx context.Context, job *jobs.Job) (*RunResult, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	definition, err := jobs.Marshal(job)
	if err != nil {
		return nil, err
	}

	manifest := run.NewManifest(core.NewRunID(), job.Name, job.Source.Location, run.NewFingerprint(definition, job.Source.Location))
	res := &RunResult{Job: job, Manifest: manifest}
	s.logger.Info("run %s: job %s from %s", manifest.RunID, job.Name, job.Source.Location)

	started := time.Now()
	loaded, err := s.loader.Load(ctx, job.Source)
	if err != nil {
		return nil, errors.Wrapf(err, "job %s: load failed", job.Name)
	}
	res.RowsLoaded = loaded.Len()
	manifest.AddStage(run.NewStageResult(run.StageLoad, 0, loaded.Len(), started))

	started = time.Now()
	res.Cleaned, res.CleanReport, err = s.cleaner.Clean(loaded, job.Clean)
	if err != nil {
		return nil, errors.Wrapf(err, "job %s: clean failed", job.Name)
	}
	manifest.AddStage(run.NewStageResult(run.StageClean, loaded.Len(), res.Cleaned.Len(), started))

	res.Filtered = res.Cleaned
	if job.Filter != nil {
		started = time.Now()
		res.Filtered, err = filtering.FilterYears(res.Cleaned, *job.Filter)
		if err != nil {
			return nil, errors.Wrapf(err, "job %s: filter failed", job.Name)
		}
		manifest.AddStage(run.NewStageResult(run.StageFilter, res.Cleaned.Len(), res.Filtered.Len(), started))
		s.logger.Info("%s in [%d, %d]: %d of %d rows", job.Filter.Field, job.Filter.From, job.Filter.To, res.Filtered.Len(), res.Cleaned.Len())
	}

	if job.Aggregate != nil {
		if err := s.aggregate(res); err != nil {
			return nil, errors.Wrapf(err, "job %s: aggregate failed", job.Name)
		}
	}

	if job.Describe || job.Correlate {
		started = time.Now()
		if job.Describe {
			if res.Summaries, err = profiling.Describe(res.Filtered); err != nil {
				return nil, errors.Wrapf(err, "job %s: describe failed", job.Name)
			}
		}
		if job.Correlate {
			m := profiling.Correlate(res.Filtered)
			res.Correlation = &m
		}
		manifest.AddStage(run.NewStageResult(run.StageProfile, res.Filtered.Len(), res.Filtered.Len(), started))
	}
	return res, nil
}

func (s *PipelineService) aggregate(res *RunResult) error {
	spec := res.Job.Aggregate
	started := time.Now()

	var agg *table.AggregateTable
	var err error
	switch spec.Kind {
	case jobs.KindGroupSum:
		agg, err = aggregation.GroupSum(res.Filtered, spec.Keys, spec.Measure)
	case jobs.KindGroupPercentage:
		decimals := s.settings.Decimals
		if spec.Decimals != nil {
			decimals = *spec.Decimals
		}
		agg, err = aggregation.GroupPercentage(res.Filtered, spec.Keys[0], spec.Measure, decimals)
	default:
		err = errors.InvalidInputf("unknown aggregation %q", spec.Kind)
	}
	if err != nil {
		return err
	}
	res.Manifest.AddStage(run.NewStageResult(run.StageAggregate, res.Filtered.Len(), agg.Len(), started))
	s.logger.Info("%s of %s by %v: %d groups", spec.Kind, spec.Measure, spec.Keys, agg.Len())

	if n, ok := s.topN(res.Job); ok {
		started = time.Now()
		ranked := aggregation.TopN(agg, n)
		res.Manifest.AddStage(run.NewStageResult(run.StageTopN, agg.Len(), ranked.Len(), started))
		agg = ranked
	}
	res.Aggregate = agg
	return nil
}

// topN decides whether groups are ranked. An explicit top_n always ranks;
// percentage shares fall back to a positive configured default; plain sums
// keep key order.
func (s *PipelineService) topN(job *jobs.Job) (int, bool) {
	if job.TopN != nil {
		return *job.TopN, true
	}
	if job.Aggregate.Kind == jobs.KindGroupPercentage && s.settings.TopN > 0 {
		return s.settings.TopN, true
	}
	return 0, false
}

// Emit writes the run's tables, chart, report, manifest and persisted rows
// under <output dir>/<job name>
func (s *PipelineService) Emit(ctx context.Context, res *RunResult) error {
	started := time.Now()
	job := res.Job
	dir := filepath.Join(s.settings.OutputDir, job.Name)

	csvWriter, err := sink.NewCSVWriter(dir, sink.WithCSVLogger(s.logger))
	if err != nil {
		return err
	}
	writers := []ports.TableWriter{csvWriter}
	var workbook *sink.ExcelWriter
	if s.settings.Excel {
		workbook = sink.NewExcelWriter(filepath.Join(dir, "run.xlsx"), s.logger)
		writers = append(writers, workbook)
	}

	for _, w := range writers {
		if err := s.writeTables(ctx, w, res); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}

	artifacts := csvWriter.Paths()
	if workbook != nil {
		artifacts = append(artifacts, workbook.Path())
	}

	if job.Chart != nil && s.renderer != nil {
		path := filepath.Join(dir, "chart.html")
		if err := s.writeChart(path, res); err != nil {
			return err
		}
		artifacts = append(artifacts, path)
	}

	if job.Outputs.Report {
		paths, err := s.writeReport(dir, res, artifacts)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, paths...)
	}

	if s.results != nil && res.Aggregate != nil {
		if err := s.results.SaveAggregate(ctx, res.RunID(), job.Name, res.Aggregate); err != nil {
			return err
		}
		s.logger.Info("persisted %d rows for run %s", res.Aggregate.Len(), res.RunID())
	}

	manifestPath := filepath.Join(dir, "run.json")
	res.Manifest.Artifacts = append(artifacts, manifestPath)
	res.Manifest.AddStage(run.NewStageResult(run.StageEmit, res.Filtered.Len(), len(res.Manifest.Artifacts), started))
	res.Manifest.Finish()
	if err := writeJSON(manifestPath, res.Manifest); err != nil {
		return err
	}
	s.logger.Info("run %s finished in %dms, %d artifacts in %s", res.RunID(), res.Manifest.DurationMs, len(res.Manifest.Artifacts), dir)
	return nil
}

func (s *PipelineService) writeTables(ctx context.Context, w ports.TableWriter, res *RunResult) error {
	if res.Job.Outputs.Cleaned {
		if err := w.WriteTable(ctx, "cleaned", res.Cleaned); err != nil {
			return err
		}
	}
	if res.Job.Outputs.Filtered && res.Job.Filter != nil {
		if err := w.WriteTable(ctx, "filtered", res.Filtered); err != nil {
			return err
		}
	}
	if res.Aggregate != nil {
		if err := w.WriteAggregate(ctx, "result", res.Aggregate); err != nil {
			return err
		}
	}
	return nil
}

// RenderChart draws the job's chart for res onto w
func (s *PipelineService) RenderChart(w io.Writer, res *RunResult) error {
	if res.Job.Chart == nil {
		return errors.InvalidInputf("job %s has no chart", res.Job.Name)
	}
	if s.renderer == nil {
		return errors.InternalError("no chart renderer configured")
	}
	spec := *res.Job.Chart
	if res.Aggregate != nil && spec.X == "" {
		return s.renderer.RenderAggregate(w, res.Aggregate, spec)
	}
	return s.renderer.RenderScatter(w, res.Filtered, spec)
}

func (s *PipelineService) writeChart(path string, res *RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := s.RenderChart(f, res); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// ReportMarkdown renders the run summary as markdown
func ReportMarkdown(res *RunResult, artifacts []string) string {
	return report.Markdown(report.Input{
		Job:          res.Job.Name,
		Description:  res.Job.Description,
		RunID:        res.RunID(),
		Source:       res.Job.Source.Location,
		StartedAt:    res.Manifest.StartedAt,
		Duration:     time.Duration(res.Manifest.DurationMs) * time.Millisecond,
		RowsLoaded:   res.RowsLoaded,
		Clean:        res.CleanReport,
		Filter:       res.Job.Filter,
		RowsFiltered: res.Filtered.Len(),
		Summaries:    res.Summaries,
		Correlation:  res.Correlation,
		Aggregate:    res.Aggregate,
		Artifacts:    artifacts,
	})
}

func (s *PipelineService) writeReport(dir string, res *RunResult, artifacts []string) ([]string, error) {
	md := ReportMarkdown(res, artifacts)
	mdPath := filepath.Join(dir, "report.md")
	htmlPath := filepath.Join(dir, "report.html")
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s", mdPath)
	}
	if err := os.WriteFile(htmlPath, report.HTML(res.Job.Name, md), 0o644); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s", htmlPath)
	}
	return []string{mdPath, htmlPath}, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
