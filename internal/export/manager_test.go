package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/view"
	"github.com/odyssey-erp/odyssey-reports/report"
)

var fixedNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type recordedExport struct {
	format  string
	outcome string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedExport
}

func (r *fakeRecorder) ObserveExport(format, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedExport{format: format, outcome: outcome})
}

type fakePDF struct {
	page report.Page
	html string
	out  []byte
	err  error
}

func (f *fakePDF) RenderHTML(_ context.Context, html string, page report.Page) ([]byte, error) {
	f.page = page
	f.html = html
	return f.out, f.err
}

func newTestManager(t *testing.T, pdf PDFRenderer) (*Manager, *fakeRecorder) {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	rec := &fakeRecorder{}
	m, err := NewManager(ManagerParams{
		Formatter: NewFormatter(locale.NewEngine()),
		Documents: engine,
		PDF:       pdf,
		Defaults:  Defaults{Language: locale.Arabic, UseArabicNumerals: true},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   rec,
		Clock:     func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return m, rec
}

func boolPtr(v bool) *bool { return &v }

func sampleTable() TableData {
	return TableData{
		Columns: []Column{
			{Key: "code", Header: "Code", Type: TypeText},
			{Key: "name", Header: "Name", Type: TypeText},
			{Key: "debit", Header: "Debit", Type: TypeCurrency},
			{Key: "rate", Header: "Rate", Type: TypePercentage},
			{Key: "posted", Header: "Posted", Type: TypeDate},
			{Key: "active", Header: "Active", Type: TypeBoolean},
			{Key: "secret", Header: "Secret", Visible: boolPtr(false)},
		},
		Rows: []map[string]any{
			{"code": "1000", "name": "Cash, \"Main\"\nVault", "debit": 1234.5, "rate": 0.5, "posted": "2026-01-31", "active": true, "secret": "x"},
			{"code": "2000", "name": "<script>alert(1)</script>", "debit": nil, "rate": 0.25, "posted": "bad", "active": false, "secret": "y"},
		},
		Summary: map[string]any{"code": "Total", "debit": 1234.5},
		Metadata: Metadata{PrependRows: [][]any{
			{"Company", "Acme"},
			{"Period", "2026-01"},
		}},
	}
}

func TestExportCSV(t *testing.T) {
	m, rec := newTestManager(t, nil)
	art, err := m.ExportCSV(context.Background(), sampleTable(), Options{Title: "Trial Balance"})
	require.NoError(t, err)

	assert.Equal(t, "trial_balance_2026-10-18.csv", art.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", art.ContentType)
	assert.NotEmpty(t, art.ID)
	require.True(t, bytes.HasPrefix(art.Data, []byte("\ufeff")))

	body := strings.TrimPrefix(string(art.Data), "\ufeff")
	assert.True(t, strings.HasPrefix(body, "Company,Acme\nPeriod,2026-01\nCode,Name,Debit"))
	assert.NotContains(t, body, "\r\n")
	assert.NotContains(t, body, "Secret")

	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"Code", "Name", "Debit", "Rate", "Posted", "Active"}, records[2])
	assert.Equal(t, "Cash, \"Main\"\nVault", records[3][1])
	assert.Equal(t, "1,234.50 ر.س", records[3][2], "csv forces western digits")
	assert.Equal(t, "50.00%", records[3][3])
	assert.Equal(t, "31/01/2026", records[3][4])
	assert.Equal(t, "نعم", records[3][5])
	assert.Equal(t, NullPlaceholder, records[4][2])
	assert.Equal(t, DatePlaceholder, records[4][4])
	assert.Equal(t, "Total", records[5][0])

	assert.Equal(t, []recordedExport{{format: "csv", outcome: "ok"}}, rec.events)
}

func TestExportExcel(t *testing.T) {
	m, _ := newTestManager(t, nil)
	art, err := m.ExportExcel(context.Background(), sampleTable(), Options{
		Title: "Trial Balance",
		Excel: ExcelOptions{AutoFilter: true, FreezeHeader: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "trial_balance_2026-10-18.xlsx", art.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(art.Data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	require.Equal(t, []string{"تقرير"}, sheets)
	sheet := sheets[0]

	raw := excelize.Options{RawCellValue: true}
	get := func(cell string) string {
		v, err := f.GetCellValue(sheet, cell, raw)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Company", get("A1"))
	assert.Equal(t, "Acme", get("B1"))
	assert.Equal(t, "Code", get("A3"))
	assert.Equal(t, "Active", get("F3"))
	assert.Equal(t, "", get("G3"), "hidden column is dropped")
	assert.Equal(t, "Cash, \"Main\"\nVault", get("B4"))
	assert.Equal(t, "1234.5", get("C4"))
	assert.Equal(t, "0.5", get("D4"))
	assert.Equal(t, "", get("C5"), "null currency becomes an empty cell")
	assert.Equal(t, "Total", get("A6"))

	sv, err := f.GetSheetView(sheet, 0)
	require.NoError(t, err)
	require.NotNil(t, sv.RightToLeft)
	assert.True(t, *sv.RightToLeft)

	panes, err := f.GetPanes(sheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 3, panes.YSplit)
}

func TestExportHTMLDocument(t *testing.T) {
	m, _ := newTestManager(t, nil)
	art, err := m.ExportHTML(context.Background(), sampleTable(), Options{Title: "ميزان المراجعة", Orientation: Landscape})
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", art.ContentType)

	html := string(art.Data)
	assert.Contains(t, html, `dir="rtl"`)
	assert.Contains(t, html, `lang="ar"`)
	assert.Contains(t, html, "fonts.googleapis.com")
	assert.Contains(t, html, "A4 landscape")
	assert.Contains(t, html, "window.reportReady")
	assert.Contains(t, html, "١,٢٣٤.٥٠")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.NotContains(t, html, "Secret")
	assert.Contains(t, html, "الأحد، ١٨ أكتوبر ٢٠٢٦")
}

func TestExportPDFUsesRendererWithReadiness(t *testing.T) {
	pdf := &fakePDF{out: []byte("%PDF-1.7 fake")}
	m, rec := newTestManager(t, pdf)
	art, err := m.ExportPDF(context.Background(), sampleTable(), Options{Title: "Trial Balance", Orientation: Landscape, PageSize: PageA3})
	require.NoError(t, err)

	assert.Equal(t, FormatPDF, art.Format)
	assert.False(t, art.Fallback)
	assert.Equal(t, "trial_balance_2026-10-18.pdf", art.Filename)
	assert.Equal(t, pdf.out, art.Data)
	assert.Equal(t, ReadyExpression, pdf.page.WaitForExpression)
	assert.True(t, pdf.page.Landscape)
	assert.True(t, pdf.page.PreferCSSPageSize)
	assert.Equal(t, 11.7, pdf.page.PaperWidth)
	assert.Contains(t, pdf.html, "A3 landscape")
	assert.Equal(t, []recordedExport{{format: "pdf", outcome: "ok"}}, rec.events)
}

func TestExportPDFFallsBackToHTML(t *testing.T) {
	m, rec := newTestManager(t, &fakePDF{err: errors.New("renderer down")})
	art, err := m.ExportPDF(context.Background(), sampleTable(), Options{Title: "Trial Balance"})
	require.NoError(t, err)
	assert.True(t, art.Fallback)
	assert.Equal(t, FormatHTML, art.Format)
	assert.Equal(t, "trial_balance_2026-10-18.html", art.Filename)
	assert.Contains(t, string(art.Data), "<table>")
	assert.Equal(t, []recordedExport{{format: "pdf", outcome: "fallback"}}, rec.events)

	m, _ = newTestManager(t, nil)
	art, err = m.ExportPDF(context.Background(), sampleTable(), Options{})
	require.NoError(t, err)
	assert.True(t, art.Fallback)
}

func TestExportPDFFallsBackWhenGotenbergFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	client, err := report.NewClient(server.URL, report.Options{Timeout: time.Second, Retries: 0})
	require.NoError(t, err)

	m, _ := newTestManager(t, client)
	art, err := m.ExportPDF(context.Background(), sampleTable(), Options{Title: "TB"})
	require.NoError(t, err)
	assert.True(t, art.Fallback)
	assert.Equal(t, "text/html; charset=utf-8", art.ContentType)
}

func TestExportJSON(t *testing.T) {
	m, _ := newTestManager(t, nil)
	art, err := m.ExportJSON(context.Background(), sampleTable(), Options{Title: "Trial Balance"})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(art.Data, &doc))
	assert.Equal(t, "Trial Balance", doc["title"])
	assert.Equal(t, "2026-10-18T10:00:00Z", doc["exportDate"])
	assert.Len(t, doc["columns"], 6)

	rows := doc["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, 1234.5, first["debit"])
	assert.Equal(t, true, first["active"])
	assert.Equal(t, "2026-01-31T00:00:00Z", first["posted"])
	assert.NotContains(t, first, "secret")
	second := rows[1].(map[string]any)
	assert.Nil(t, second["debit"])
	assert.Equal(t, "<script>alert(1)</script>", second["name"])

	summary := doc["summary"].(map[string]any)
	assert.Equal(t, 1234.5, summary["debit"])
	assert.True(t, strings.Contains(string(art.Data), "\n  \"title\""), "pretty printed")
}

func TestExportRejectsInvalidInput(t *testing.T) {
	m, rec := newTestManager(t, nil)

	_, err := m.Export(context.Background(), sampleTable(), Options{Format: "docx"})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = m.ExportCSV(context.Background(), TableData{}, Options{})
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = m.ExportCSV(context.Background(), sampleTable(), Options{FontSize: 200})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	var table TableData
	err = json.Unmarshal([]byte(`{"columns":[{"key":"a","type":"money"}]}`), &table)
	assert.ErrorIs(t, err, ErrUnknownColumnType)
	assert.Empty(t, rec.events)
}

func TestExportEmptyRows(t *testing.T) {
	m, _ := newTestManager(t, nil)
	table := TableData{Columns: []Column{{Key: "a", Header: "A"}}}
	for _, f := range Formats {
		art, err := m.Export(context.Background(), table, Options{Format: f, Language: locale.English})
		require.NoError(t, err, "format %s", f)
		assert.NotEmpty(t, art.Data, "format %s", f)
	}
}

func TestExportDocumentEscapesCurrencySymbol(t *testing.T) {
	const hostile = "<img src=x onerror=alert(1)>"
	table := TableData{
		Columns: []Column{
			{Key: "amt", Header: "Amount", Type: TypeCurrency, CurrencySymbol: hostile},
			{Key: "net", Header: "Net", Type: TypeCurrency},
		},
		Rows: []map[string]any{{"amt": 10, "net": 5}},
	}
	opts := Options{Title: "TB", CurrencySymbol: "<script>x()</script>", Language: locale.English}

	m, _ := newTestManager(t, nil)
	art, err := m.ExportHTML(context.Background(), table, opts)
	require.NoError(t, err)
	doc := string(art.Data)
	assert.NotContains(t, doc, "<img")
	assert.NotContains(t, doc, "<script>x()")
	assert.Contains(t, doc, "&lt;img src=x onerror=alert(")
	assert.Contains(t, doc, "&lt;script&gt;x()&lt;/script&gt;")

	pdf := &fakePDF{out: []byte("%PDF")}
	m, _ = newTestManager(t, pdf)
	_, err = m.ExportPDF(context.Background(), table, opts)
	require.NoError(t, err)
	assert.NotContains(t, pdf.html, "<img")
	assert.NotContains(t, pdf.html, "<script>x()")
}

func TestExportKeepsRawNumericPrecision(t *testing.T) {
	table := TableData{
		Columns: []Column{{Key: "rate", Header: "Rate", Type: TypeNumber}},
		Rows:    []map[string]any{{"rate": 3.7525}, {"rate": nil}},
	}
	m, _ := newTestManager(t, nil)

	art, err := m.ExportExcel(context.Background(), table, Options{Title: "Rates"})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(art.Data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue("تقرير", "A2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "3.7525", v)
	v, err = f.GetCellValue("تقرير", "A3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "", v, "missing values stay blank in the sheet")

	art, err = m.ExportJSON(context.Background(), table, Options{Title: "Rates"})
	require.NoError(t, err)
	var doc struct {
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(art.Data, &doc))
	assert.Equal(t, 3.7525, doc.Rows[0]["rate"])

	art, err = m.ExportCSV(context.Background(), table, Options{Title: "Rates", Language: locale.English})
	require.NoError(t, err)
	assert.Contains(t, string(art.Data), "\n3.75\n")
}
