package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/report"
)

// DocumentTemplate is the template name of the printable table document.
const DocumentTemplate = "reports/export_table"

// ReadyExpression becomes true once the document's fonts are loaded.
const ReadyExpression = "window.reportReady === true"

// DocumentRenderer executes named HTML templates.
type DocumentRenderer interface {
	Execute(w io.Writer, name string, data any) error
}

// PDFRenderer converts a self-contained HTML document into a PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string, page report.Page) ([]byte, error)
}

// Document is the data handed to the document template. Cell text is
// already escaped by the formatter.
type Document struct {
	Lang        string
	Dir         string
	Title       string
	Subtitle    string
	GeneratedAt string
	EmptyLabel  string
	PageCSS     template.CSS
	MarginCSS   template.CSS
	FontSize    template.CSS
	Headers     []DocumentCell
	Rows        [][]DocumentCell
	Summary     []DocumentCell
}

// DocumentCell is one rendered cell.
type DocumentCell struct {
	Text  template.HTML
	Align Align
}

func (m *Manager) buildDocument(table TableData, r resolved, target Format, at time.Time) Document {
	ctx := r.context(target)
	p := m.prepare(table, ctx)

	dir := "ltr"
	if r.rtl {
		dir = "rtl"
	}
	doc := Document{
		Lang:        string(r.Language),
		Dir:         dir,
		Title:       m.formatter.text.StripControls(r.Title),
		Subtitle:    m.formatter.text.StripControls(r.Subtitle),
		GeneratedAt: m.formatter.FormatLongDate(at, r.Language, ctx.UseArabicNumerals),
		EmptyLabel:  "لا توجد بيانات",
		PageCSS:     template.CSS(fmt.Sprintf("%s %s", r.PageSize, r.Orientation)),
		MarginCSS:   template.CSS(r.Margins.CSS()),
		FontSize:    template.CSS(fmt.Sprintf("%dpt", r.FontSize)),
		Headers:     make([]DocumentCell, len(p.columns)),
		Rows:        make([][]DocumentCell, 0, len(p.rows)),
	}
	if r.Language == locale.English {
		doc.EmptyLabel = "No data"
	}
	for i, c := range p.columns {
		doc.Headers[i] = DocumentCell{Text: template.HTML(p.headers[i]), Align: c.Alignment()}
	}
	for _, cells := range p.rows {
		doc.Rows = append(doc.Rows, documentCells(p.columns, cells))
	}
	if p.summary != nil {
		doc.Summary = documentCells(p.columns, p.summary)
	}
	return doc
}

func documentCells(cols []Column, cells []Cell) []DocumentCell {
	out := make([]DocumentCell, len(cells))
	for i, c := range cells {
		// The formatter returns markup-safe Display for html and pdf targets.
		out[i] = DocumentCell{Text: template.HTML(c.Display), Align: cols[i].Alignment()}
	}
	return out
}

func (m *Manager) renderDocument(table TableData, r resolved, target Format, at time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.documents.Execute(&buf, DocumentTemplate, m.buildDocument(table, r, target, at)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Manager) exportHTML(table TableData, r resolved, at time.Time) (*Artifact, error) {
	data, err := m.renderDocument(table, r, FormatHTML, at)
	if err != nil {
		return nil, fmt.Errorf("export: html: %w", err)
	}
	return newArtifact(r, at, FormatHTML, data), nil
}

// exportPDF renders the document and prints it. Any rendering failure is
// logged and answered with the HTML document instead.
func (m *Manager) exportPDF(ctx context.Context, table TableData, r resolved, at time.Time) (*Artifact, error) {
	html, err := m.renderDocument(table, r, FormatPDF, at)
	if err != nil {
		return nil, fmt.Errorf("export: pdf: %w", err)
	}
	fallback := func(cause error) *Artifact {
		m.logger.Warn("pdf rendering unavailable, returning html", slog.String("title", r.Title), slog.Any("error", cause))
		art := newArtifact(r, at, FormatHTML, html)
		art.Fallback = true
		return art
	}
	if m.pdf == nil {
		return fallback(fmt.Errorf("no pdf renderer configured")), nil
	}
	width, height := r.PageSize.Dimensions()
	pdf, err := m.pdf.RenderHTML(ctx, string(html), report.Page{
		PaperWidth:        width,
		PaperHeight:       height,
		Landscape:         r.Orientation == Landscape,
		MarginTop:         r.Margins.Top,
		MarginRight:       r.Margins.Right,
		MarginBottom:      r.Margins.Bottom,
		MarginLeft:        r.Margins.Left,
		PreferCSSPageSize: true,
		PrintBackground:   true,
		WaitForExpression: ReadyExpression,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("export: pdf: %w", ctx.Err())
		}
		return fallback(err), nil
	}
	return newArtifact(r, at, FormatPDF, pdf), nil
}
