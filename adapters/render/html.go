package render

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"

	"gotidy/domain/table"
	"gotidy/internal/errors"
	"gotidy/ports"
)

//go:embed templates/chart.html
var templateFS embed.FS

// DefaultPlotlyURL is the script the rendered pages load plotly.js from
const DefaultPlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

var chartTemplate = template.Must(template.ParseFS(templateFS, "templates/chart.html"))

// HTMLRenderer writes self-contained plotly.js pages
type HTMLRenderer struct {
	plotlyURL string
}

// NewHTMLRenderer creates a renderer; an empty URL selects DefaultPlotlyURL
func NewHTMLRenderer(plotlyURL string) *HTMLRenderer {
	if plotlyURL == "" {
		plotlyURL = DefaultPlotlyURL
	}
	return &HTMLRenderer{plotlyURL: plotlyURL}
}

var _ ports.ChartRenderer = (*HTMLRenderer)(nil)

func (r *HTMLRenderer) RenderAggregate(w io.Writer, agg *table.AggregateTable, spec ports.ChartSpec) error {
	fig, err := AggregateFigure(agg, spec)
	if err != nil {
		return err
	}
	return r.write(w, spec.Title, fig)
}

func (r *HTMLRenderer) RenderScatter(w io.Writer, t *table.Table, spec ports.ChartSpec) error {
	fig, err := ScatterFigure(t, spec)
	if err != nil {
		return err
	}
	return r.write(w, spec.Title, fig)
}

func (r *HTMLRenderer) write(w io.Writer, title string, fig Figure) error {
	payload, err := json.Marshal(fig)
	if err != nil {
		return errors.Wrap(err, "failed to encode figure")
	}
	data := struct {
		Title     string
		PlotlyURL string
		Figure    template.JS
	}{
		Title:     title,
		PlotlyURL: r.plotlyURL,
		Figure:    template.JS(payload),
	}
	if err := chartTemplate.Execute(w, data); err != nil {
		return errors.Wrap(err, "failed to render chart")
	}
	return nil
}
