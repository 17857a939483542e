package ui

import (
	"bytes"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"gotidy/app"
	"gotidy/domain/core"
	"gotidy/internal/aggregation"
	"gotidy/internal/errors"
	"gotidy/internal/report"
)

type aggregateRow struct {
	Key   []string `json:"key"`
	Label string   `json:"label"`
	Value float64  `json:"value"`
}

type aggregateResponse struct {
	RunID     core.RunID     `json:"run_id"`
	KeyFields []string       `json:"key_fields"`
	Measure   string         `json:"measure"`
	Rows      []aggregateRow `json:"rows"`
}

type summaryResponse struct {
	RunID       core.RunID   `json:"run_id"`
	Describe    interface{}  `json:"describe"`
	Fields      []string     `json:"correlation_fields,omitempty"`
	Correlation [][]*float64 `json:"correlation,omitempty"`
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	md := app.ReportMarkdown(a.run, a.run.Manifest.Artifacts)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(report.HTML(a.run.Job.Name, md))
}

func (a *App) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(app.ReportMarkdown(a.run, a.run.Manifest.Artifacts)))
}

func (a *App) handleChart(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := a.service.RenderChart(&buf, a.run); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, r, http.StatusOK, a.run.Manifest)
}

// handleAggregates returns the result rows in presentation order. ?top=n
// narrows them to the n largest.
func (a *App) handleAggregates(w http.ResponseWriter, r *http.Request) {
	agg := a.run.Aggregate
	if agg == nil {
		a.writeError(w, r, errors.InvalidInputf("job %s has no aggregate", a.run.Job.Name))
		return
	}

	if q := r.URL.Query().Get("top"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			a.writeError(w, r, errors.InvalidInputf("top must be a non-negative integer, got %q", q))
			return
		}
		agg = aggregation.TopN(agg, n)
	}

	resp := aggregateResponse{
		RunID:     a.run.RunID(),
		KeyFields: agg.KeyFields,
		Measure:   agg.Measure,
		Rows:      make([]aggregateRow, len(agg.Rows)),
	}
	for i, row := range agg.Rows {
		key := make([]string, len(row.Key))
		for j, k := range row.Key {
			key[j] = k.String()
		}
		resp.Rows[i] = aggregateRow{Key: key, Label: row.Label(), Value: row.Value}
	}
	a.writeJSON(w, r, http.StatusOK, resp)
}

func (a *App) handleSummary(w http.ResponseWriter, r *http.Request) {
	resp := summaryResponse{RunID: a.run.RunID(), Describe: a.run.Summaries}
	if m := a.run.Correlation; m != nil {
		resp.Fields = m.Fields
		resp.Correlation = make([][]*float64, len(m.Values))
		for i, row := range m.Values {
			resp.Correlation[i] = make([]*float64, len(row))
			for j := range row {
				// JSON has no NaN; undefined coefficients are null
				if !math.IsNaN(row[j]) {
					resp.Correlation[i][j] = &row[j]
				}
			}
		}
	}
	a.writeJSON(w, r, http.StatusOK, resp)
}

func (a *App) handleStoredResults(w http.ResponseWriter, r *http.Request) {
	if a.results == nil {
		http.Error(w, "result persistence is not configured", http.StatusNotFound)
		return
	}
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	rows, err := a.results.ListByRun(r.Context(), runID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, rows)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (a *App) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput, errors.CodeSchemaError:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("%v", err)
	}
	a.writeJSON(w, r, status, errorResponse{Error: err.Error(), Code: errors.GetCode(err)})
}
