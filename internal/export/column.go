// Package export turns tabular report data into PDF, Excel, CSV, HTML and
// JSON artifacts with Arabic-aware cell formatting.
package export

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat is returned when an export format selector is not supported.
var ErrUnknownFormat = errors.New("export: unknown format")

// ErrUnknownColumnType is returned when a column declares an unsupported type.
var ErrUnknownColumnType = errors.New("export: unknown column type")

// ColumnType declares how a column's cells are formatted.
type ColumnType string

const (
	TypeText       ColumnType = "text"
	TypeNumber     ColumnType = "number"
	TypeCurrency   ColumnType = "currency"
	TypeDate       ColumnType = "date"
	TypeBoolean    ColumnType = "boolean"
	TypePercentage ColumnType = "percentage"
)

// ParseColumnType validates a column type. An empty value means text.
func ParseColumnType(v string) (ColumnType, error) {
	switch t := ColumnType(strings.ToLower(strings.TrimSpace(v))); t {
	case "":
		return TypeText, nil
	case TypeText, TypeNumber, TypeCurrency, TypeDate, TypeBoolean, TypePercentage:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownColumnType, v)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ColumnType) UnmarshalText(b []byte) error {
	parsed, err := ParseColumnType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Format selects the serializer.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
	FormatCSV   Format = "csv"
	FormatHTML  Format = "html"
	FormatJSON  Format = "json"
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatPDF, FormatExcel, FormatCSV, FormatHTML, FormatJSON}

// ParseFormat validates a format selector. "xlsx" is accepted for excel.
func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case FormatPDF, FormatExcel, FormatCSV, FormatHTML, FormatJSON:
		return f, nil
	case "xlsx":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, v)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	parsed, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatExcel:
		return "xlsx"
	case FormatCSV:
		return "csv"
	case FormatHTML:
		return "html"
	case FormatJSON:
		return "json"
	}
	return "bin"
}

// ContentType returns the MIME type of the serialized artifact.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

// Align is the horizontal alignment of a column.
type Align string

const (
	AlignStart  Align = "start"
	AlignCenter Align = "center"
	AlignEnd    Align = "end"
)

// Column describes one exported column.
type Column struct {
	Key            string     `json:"key" validate:"required"`
	Header         string     `json:"header"`
	Type           ColumnType `json:"type" validate:"omitempty,oneof=text number currency date boolean percentage"`
	Visible        *bool      `json:"visible,omitempty"`
	Align          Align      `json:"align,omitempty" validate:"omitempty,oneof=start center end"`
	CurrencySymbol string     `json:"currency_symbol,omitempty"`
	Locale         string     `json:"locale,omitempty"`
	Format         string     `json:"format,omitempty"`
	ShowTime       bool       `json:"show_time,omitempty"`
	Width          float64    `json:"width,omitempty" validate:"gte=0"`
}

// IsVisible reports whether the column is exported. Columns are visible by default.
func (c Column) IsVisible() bool {
	return c.Visible == nil || *c.Visible
}

// Alignment returns the explicit alignment or the type default.
func (c Column) Alignment() Align {
	if c.Align != "" {
		return c.Align
	}
	switch c.Type {
	case TypeNumber, TypeCurrency, TypePercentage:
		return AlignEnd
	case TypeDate, TypeBoolean:
		return AlignCenter
	}
	return AlignStart
}

// Metadata carries raw rows placed above the header in spreadsheet and CSV outputs.
type Metadata struct {
	PrependRows [][]any `json:"prepend_rows,omitempty"`
}

// TableData is the input of every exporter.
type TableData struct {
	Columns  []Column         `json:"columns" validate:"required,min=1,dive"`
	Rows     []map[string]any `json:"rows"`
	Summary  map[string]any   `json:"summary,omitempty"`
	Metadata Metadata         `json:"metadata"`
}

// VisibleColumns returns the columns that are exported, in order.
func (t TableData) VisibleColumns() []Column {
	out := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.IsVisible() {
			out = append(out, c)
		}
	}
	return out
}
