// Package dashboard renders the irrigation dashboard page.
package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"sunpump/internal/i18n"
	"sunpump/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Input is everything the page needs for one render.
type Input struct {
	Language i18n.Language
	Records  []types.AlertRecord
	Summary  types.ForecastSummary
	Advisory types.Advisory
	Source   string
	LoadedAt time.Time
	// ExportURL is the link target for the CSV download button.
	ExportURL string
}

// Row is one line of the alert table.
type Row struct {
	Time     string
	GHI      string
	Alert    bool
	Decision string
}

// LanguageOption is an entry in the language selector.
type LanguageOption struct {
	Code     string
	Name     string
	Selected bool
}

type view struct {
	Lang      string
	Labels    i18n.Labels
	Languages []LanguageOption
	Summary   types.ForecastSummary
	Advisory  types.Advisory
	Rows      []Row
	Chart     Chart
	HasActual bool
	Source    string
	LoadedAt  string
	ExportURL string
}

// Renderer executes the embedded dashboard template. Timestamps are shown
// in the configured display location.
type Renderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// NewRenderer parses the embedded templates. A nil location means UTC.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	tmpl, err := template.New("dashboard.html").Funcs(template.FuncMap{
		"ghi": func(v float64) string { return fmt.Sprintf("%.0f W/m²", v) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, loc: loc}, nil
}

// Render writes the page for in. The page is buffered so a template error
// never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, in Input) error {
	labels := i18n.For(in.Language)

	v := view{
		Lang:      in.Language.Code(),
		Labels:    labels,
		Summary:   in.Summary,
		Advisory:  in.Advisory,
		Chart:     buildChart(in.Records, r.loc),
		Source:    in.Source,
		ExportURL: in.ExportURL,
	}
	if !in.LoadedAt.IsZero() {
		v.LoadedAt = in.LoadedAt.In(r.loc).Format("2006-01-02 15:04 MST")
	}
	for _, l := range i18n.Languages() {
		v.Languages = append(v.Languages, LanguageOption{Code: l.Code(), Name: l.Name(), Selected: l == in.Language})
	}

	v.Rows = make([]Row, len(in.Records))
	for i, rec := range in.Records {
		decision := labels.PumpOff
		if rec.IrrigationAlert {
			decision = labels.PumpOn
		}
		v.Rows[i] = Row{
			Time:     rec.Timestamp.In(r.loc).Format("2006-01-02 15:04"),
			GHI:      fmt.Sprintf("%.1f", rec.ForecastedGHI),
			Alert:    rec.IrrigationAlert,
			Decision: decision,
		}
		if rec.ActualGHI != nil {
			v.HasActual = true
		}
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
