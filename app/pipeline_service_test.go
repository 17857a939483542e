package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotidy/adapters/coercer"
	"gotidy/adapters/render"
	"gotidy/adapters/source"
	"gotidy/domain/core"
	"gotidy/domain/run"
	"gotidy/domain/table"
	"gotidy/internal/cleaning"
	"gotidy/internal/errors"
	"gotidy/internal/jobs"
	"gotidy/internal/logging"
	"gotidy/ports"
)

const liquorCSV = `date,zip_code,item_number,store_name,bottles_sold,sale_dollars,county
2015-06-01,50001.0,A,S1,10,100,Story
2016-12-31,50001.0,A,S1,3,100,Story
2017-03-05,50001,A,S2,2,150,Story
2018-01-01,50002,B,S2,5,150,Polk
2019-06-01,50002,B,S1,1,,Polk
2020-01-01,50002,B,S1,7,50,Polk
2017-01-01,50003,C,S3,4,100,
`

const autoMPGData = `18.0   8   307.0      130.0      3504.      12.0   70  1    "chevrolet chevelle malibu"
15.0   8   350.0      165.0      3693.      11.5   70  1    "buick skylark 320"
25.0   4   98.00      ?          2046.      19.0   71  1    "ford pinto"
31.0   4   71.00      65.00      1773.      19.0   71  3    "toyota corolla 1200"
22.0   6   198.0      95.00      2833.      15.5   70  1    "plymouth duster"
`

type memoryResults struct {
	saved map[core.RunID][]ports.StoredAggregate
}

func (m *memoryResults) SaveAggregate(ctx context.Context, runID core.RunID, job string, agg *table.AggregateTable) error {
	if m.saved == nil {
		m.saved = map[core.RunID][]ports.StoredAggregate{}
	}
	for i, r := range agg.Rows {
		m.saved[runID] = append(m.saved[runID], ports.StoredAggregate{
			RunID: runID, Job: job, Rank: i + 1, Label: r.Label(), Measure: agg.Measure, Value: r.Value,
		})
	}
	return nil
}

func (m *memoryResults) ListByRun(ctx context.Context, runID core.RunID) ([]ports.StoredAggregate, error) {
	return m.saved[runID], nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newService(t *testing.T, results ports.ResultRepository, excel bool) (*PipelineService, string) {
	t.Helper()
	out := t.TempDir()
	c := coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	svc := NewPipelineService(
		source.NewLoader(c, source.WithLogger(logging.Nop())),
		cleaning.NewCleaner(c, logging.Nop()),
		render.NewHTMLRenderer(""),
		results,
		Settings{OutputDir: out, TopN: 15, Decimals: 2, Excel: excel},
		logging.Nop(),
	)
	return svc, out
}

func presetAt(t *testing.T, name, location string) *jobs.Job {
	t.Helper()
	job, err := jobs.Preset(name)
	require.NoError(t, err)
	job.Source.Location = location
	return job
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestLiquorTopItems(t *testing.T) {
	svc, out := newService(t, nil, false)
	job := presetAt(t, "liquor-top-items", writeFile(t, "sales.csv", liquorCSV))

	res, err := svc.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 7, res.RowsLoaded)
	assert.Equal(t, 5, res.Cleaned.Len(), "rows with any missing value are dropped")
	assert.Equal(t, 2, res.CleanReport.Dropped)
	assert.Equal(t, 3, res.Filtered.Len())

	dir := filepath.Join(out, "liquor-top-items")
	assert.Equal(t, [][]string{
		{"zip_code", "item_number", "bottles_sold"},
		{"50001", "A", "5"},
		{"50002", "B", "5"},
	}, readCSV(t, filepath.Join(dir, "result.csv")))

	cleaned := readCSV(t, filepath.Join(dir, "cleaned.csv"))
	assert.Len(t, cleaned, 6)
	assert.Equal(t, []string{"2016-12-31", "50001", "A", "S1", "3", "100", "Story"}, cleaned[2])

	assert.FileExists(t, filepath.Join(dir, "filtered.csv"))
	assert.FileExists(t, filepath.Join(dir, "chart.html"))
	assert.FileExists(t, filepath.Join(dir, "report.html"))

	_, ranked := res.Manifest.Stage(run.StageTopN)
	assert.False(t, ranked, "plain sums keep key order")
}

func TestLiquorStoreShare(t *testing.T) {
	results := &memoryResults{}
	svc, out := newService(t, results, true)
	job := presetAt(t, "liquor-store-share", writeFile(t, "sales.csv", liquorCSV))

	res, err := svc.Run(context.Background(), job)
	require.NoError(t, err)

	require.NotNil(t, res.Aggregate)
	assert.Equal(t, []float64{25, 75}, res.Aggregate.Values())
	assert.Equal(t, "S1", res.Aggregate.Rows[0].Label())

	stored, err := results.ListByRun(context.Background(), res.RunID())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "S2", stored[1].Label)
	assert.Equal(t, 2, stored[1].Rank)

	dir := filepath.Join(out, "liquor-store-share")
	chart, err := os.ReadFile(filepath.Join(dir, "chart.html"))
	require.NoError(t, err)
	assert.Contains(t, string(chart), `"orientation":"h"`)
	assert.FileExists(t, filepath.Join(dir, "run.xlsx"))

	md, err := os.ReadFile(filepath.Join(dir, "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "| S2 | 75 |")

	var manifest run.Manifest
	data, err := os.ReadFile(filepath.Join(dir, "run.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, res.RunID(), manifest.RunID)
	require.NoError(t, manifest.Validate())

	var stages []run.StageName
	for _, s := range manifest.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []run.StageName{run.StageLoad, run.StageClean, run.StageFilter, run.StageAggregate, run.StageTopN, run.StageEmit}, stages)
	assert.Contains(t, manifest.Artifacts, filepath.Join(dir, "result.csv"))
}

func TestAutoMPG(t *testing.T) {
	svc, out := newService(t, nil, false)
	job := presetAt(t, "auto-mpg", writeFile(t, "auto-mpg.data", autoMPGData))

	res, err := svc.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Cleaned.Len())
	assert.Equal(t, 1, res.CleanReport.PlaceholderRewrites["horsepower"])

	hp, ok := res.Cleaned.Get(0, "horsepower")
	require.True(t, ok)
	assert.Equal(t, table.KindFloat, hp.Kind())
	assert.Equal(t, 130.0, hp.Float())

	require.Len(t, res.Summaries, 8, "car_name is not described")
	assert.Equal(t, "mpg", res.Summaries[0].Field)
	assert.Equal(t, 4, res.Summaries[0].Count)

	require.NotNil(t, res.Correlation)
	assert.NotContains(t, res.Correlation.Fields, "car_name")
	assert.Less(t, res.Correlation.At("weight", "mpg"), -0.9)

	page, err := os.ReadFile(filepath.Join(out, "auto-mpg", "chart.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "car_name: toyota corolla 1200")
	assert.NoFileExists(t, filepath.Join(out, "auto-mpg", "result.csv"))
}

func TestProcessErrors(t *testing.T) {
	svc, _ := newService(t, nil, false)
	ctx := context.Background()

	_, err := svc.Process(ctx, presetAt(t, "liquor-top-items", filepath.Join(t.TempDir(), "absent.csv")))
	assert.True(t, errors.IsLoadError(err))

	job := presetAt(t, "liquor-top-items", writeFile(t, "sales.csv", liquorCSV))
	job.Aggregate.Measure = "store_name"
	_, err = svc.Process(ctx, job)
	assert.True(t, errors.IsSchemaError(err))

	zero := &jobs.Job{
		Name:   "zero-share",
		Source: source.Source{Location: writeFile(t, "zero.csv", "date,store_name,sale_dollars\n2017-01-01,S1,0\n2017-02-01,S2,0\n")},
		Aggregate: &jobs.AggregateSpec{
			Kind:    jobs.KindGroupPercentage,
			Keys:    []string{"store_name"},
			Measure: "sale_dollars",
		},
	}
	_, err = svc.Process(ctx, zero)
	assert.True(t, errors.IsInvalidInput(err), "percentages of a zero total are rejected")
}

func TestStoreShareRankingFollowsTopN(t *testing.T) {
	data := writeFile(t, "sales.csv", liquorCSV)

	svc, _ := newService(t, nil, false)
	svc.settings.TopN = 0
	res, err := svc.Process(context.Background(), presetAt(t, "liquor-top-items", data))
	require.NoError(t, err)
	_, ranked := res.Manifest.Stage(run.StageTopN)
	assert.False(t, ranked)

	job := presetAt(t, "liquor-store-share", data)
	job.TopN = nil
	res, err = svc.Process(context.Background(), job)
	require.NoError(t, err)
	_, ranked = res.Manifest.Stage(run.StageTopN)
	assert.False(t, ranked, "a zero default leaves shares unranked")
	assert.Equal(t, 2, res.Aggregate.Len())

	zero := 0
	job.TopN = &zero
	res, err = svc.Process(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Aggregate.Len(), "an explicit top_n of 0 keeps no groups")
}

func TestWriteChart(t *testing.T) {
	svc, _ := newService(t, nil, false)
	res, err := svc.Process(context.Background(), presetAt(t, "liquor-store-share", writeFile(t, "sales.csv", liquorCSV)))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "chart.html")
	require.NoError(t, svc.writeChart(path, res))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "</html>")

	assert.Error(t, svc.writeChart(filepath.Join(t.TempDir(), "missing", "chart.html"), res))

	res.Job.Chart = nil
	assert.True(t, errors.IsInvalidInput(svc.writeChart(path, res)))
}
