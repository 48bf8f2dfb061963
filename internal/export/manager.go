package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-reports/internal/locale"
)

var (
	// ErrInvalidOptions wraps option validation failures.
	ErrInvalidOptions = errors.New("export: invalid options")
	// ErrInvalidTable wraps table validation failures.
	ErrInvalidTable = errors.New("export: invalid table")
)

// Artifact is a fully built export file.
type Artifact struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Format      Format `json:"format"`
	Data        []byte `json:"-"`
	// Fallback is set when a PDF could not be produced and the HTML document
	// was returned instead.
	Fallback bool `json:"fallback"`
}

// Recorder receives export outcomes.
type Recorder interface {
	ObserveExport(format, outcome string, elapsed time.Duration)
}

// ManagerParams wires the manager's collaborators.
type ManagerParams struct {
	Formatter *Formatter
	Documents DocumentRenderer
	PDF       PDFRenderer
	Defaults  Defaults
	Logger    *slog.Logger
	Metrics   Recorder
	Clock     func() time.Time
}

// Manager dispatches a table to the serializer selected by Options.Format.
type Manager struct {
	formatter *Formatter
	documents DocumentRenderer
	pdf       PDFRenderer
	defaults  Defaults
	validate  *validator.Validate
	logger    *slog.Logger
	metrics   Recorder
	now       func() time.Time
}

// NewManager constructs an export manager. A nil PDF renderer makes every
// PDF export fall back to HTML.
func NewManager(p ManagerParams) (*Manager, error) {
	if p.Documents == nil {
		return nil, fmt.Errorf("export: document renderer required")
	}
	if p.Formatter == nil {
		p.Formatter = NewFormatter(locale.NewEngine())
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.Defaults.Language == "" {
		p.Defaults.Language = locale.Arabic
	}
	return &Manager{
		formatter: p.Formatter,
		documents: p.Documents,
		pdf:       p.PDF,
		defaults:  p.Defaults,
		validate:  validator.New(),
		logger:    p.Logger,
		metrics:   p.Metrics,
		now:       p.Clock,
	}, nil
}

// Formatter returns the cell formatter used by the manager.
func (m *Manager) Formatter() *Formatter {
	return m.formatter
}

// Export builds the artifact for opts.Format. Nothing partial is returned on error.
func (m *Manager) Export(ctx context.Context, table TableData, opts Options) (*Artifact, error) {
	if err := m.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if err := m.validate.Struct(table); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	r := opts.resolve(m.defaults)
	started := m.now()

	var (
		art *Artifact
		err error
	)
	switch r.Format {
	case FormatPDF:
		art, err = m.exportPDF(ctx, table, r, started)
	case FormatExcel:
		art, err = m.exportExcel(table, r, started)
	case FormatCSV:
		art, err = m.exportCSV(table, r, started)
	case FormatHTML:
		art, err = m.exportHTML(table, r, started)
	case FormatJSON:
		art, err = m.exportJSON(table, r, started)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, r.Format)
	}

	elapsed := m.now().Sub(started)
	if err != nil {
		m.observe(r.Format, "error", elapsed)
		m.logger.Error("export failed", slog.String("format", string(r.Format)), slog.String("title", r.Title), slog.Any("error", err))
		return nil, err
	}
	art.ID = uuid.NewString()
	outcome := "ok"
	if art.Fallback {
		outcome = "fallback"
	}
	m.observe(r.Format, outcome, elapsed)
	m.logger.Info("export completed",
		slog.String("id", art.ID),
		slog.String("format", string(r.Format)),
		slog.String("filename", art.Filename),
		slog.Int("bytes", len(art.Data)),
		slog.Int("rows", len(table.Rows)),
		slog.Bool("fallback", art.Fallback),
	)
	return art, nil
}

// ExportPDF exports table as a PDF, falling back to HTML when rendering fails.
func (m *Manager) ExportPDF(ctx context.Context, table TableData, opts Options) (*Artifact, error) {
	opts.Format = FormatPDF
	return m.Export(ctx, table, opts)
}

// ExportExcel exports table as an .xlsx workbook.
func (m *Manager) ExportExcel(ctx context.Context, table TableData, opts Options) (*Artifact, error) {
	opts.Format = FormatExcel
	return m.Export(ctx, table, opts)
}

// ExportCSV exports table as UTF-8 CSV with a byte-order mark.
func (m *Manager) ExportCSV(ctx context.Context, table TableData, opts Options) (*Artifact, error) {
	opts.Format = FormatCSV
	return m.Export(ctx, table, opts)
}

// ExportHTML exports table as a self-contained HTML document.
func (m *Manager) ExportHTML(ctx context.Context, table TableData, opts Options) (*Artifact, error) {
	opts.Format = FormatHTML
	return m.Export(ctx, table, opts)
}

// ExportJSON exports table as a pretty-printed JSON document.
func (m *Manager) ExportJSON(ctx context.Context, table TableData, opts Options) (*Artifact, error) {
	opts.Format = FormatJSON
	return m.Export(ctx, table, opts)
}

func (m *Manager) observe(f Format, outcome string, elapsed time.Duration) {
	if m.metrics != nil {
		m.metrics.ObserveExport(string(f), outcome, elapsed)
	}
}

func newArtifact(r resolved, at time.Time, f Format, data []byte) *Artifact {
	return &Artifact{
		Filename:    Filename(r.Title, at, f),
		ContentType: f.ContentType(),
		Format:      f,
		Data:        data,
	}
}
