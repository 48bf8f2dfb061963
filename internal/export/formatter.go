package export

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/locale"
)

const (
	// DatePlaceholder replaces missing or malformed dates.
	DatePlaceholder = "--/--/----"
	// DateTimePlaceholder replaces missing or malformed date-times.
	DateTimePlaceholder = "--/--/---- - --:--"
	// NullPlaceholder replaces missing values of every other type.
	NullPlaceholder = "-"

	currencyArabic  = "ر.س"
	currencyEnglish = "SAR"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Context carries the per-export flags that drive cell formatting.
type Context struct {
	Format            Format
	UseArabicNumerals bool
	Language          locale.Language
	RTL               bool
	CleanText         bool
	CurrencySymbol    string
}

// Cell is a formatted value. Display is what text outputs print; Value is
// the typed value kept by Excel and JSON; NumFmt is the Excel number format.
type Cell struct {
	Display string
	Value   any
	NumFmt  string
}

// Formatter converts raw values into locale-correct cells.
type Formatter struct {
	text *locale.Engine
}

// NewFormatter constructs a Formatter backed by the given text engine.
func NewFormatter(text *locale.Engine) *Formatter {
	if text == nil {
		text = locale.NewEngine()
	}
	return &Formatter{text: text}
}

// Format converts value according to the column type. It never panics:
// nil or malformed input yields a placeholder.
func (f *Formatter) Format(value any, col Column, ctx Context) (cell Cell) {
	defer func() {
		if r := recover(); r != nil {
			cell = f.missing(col, ctx)
		}
	}()
	if isNil(value) {
		return f.missing(col, ctx)
	}
	switch col.Type {
	case TypeCurrency, TypeNumber:
		return f.formatNumber(value, col, ctx)
	case TypePercentage:
		return f.formatPercentage(value, col, ctx)
	case TypeDate:
		return f.formatDate(value, col, ctx)
	case TypeBoolean:
		return f.formatBoolean(value, col, ctx)
	case TypeText, "":
		return f.formatText(value, ctx)
	}
	return f.formatText(value, ctx)
}

// FormatHeader cleans a header label for the target format.
func (f *Formatter) FormatHeader(header string, ctx Context) string {
	return f.formatText(header, ctx).Display
}

func (f *Formatter) missing(col Column, ctx Context) Cell {
	if col.Type == TypeDate {
		if col.ShowTime {
			return Cell{Display: DateTimePlaceholder}
		}
		return Cell{Display: DatePlaceholder}
	}
	// Excel leaves the cell blank: Value stays nil.
	return Cell{Display: NullPlaceholder}
}

func (f *Formatter) language(col Column, ctx Context) locale.Language {
	if col.Locale != "" {
		return locale.ParseLanguage(col.Locale)
	}
	if ctx.Language == "" {
		return locale.Arabic
	}
	return ctx.Language
}

func (f *Formatter) currencySymbol(col Column, ctx Context) string {
	if col.CurrencySymbol != "" {
		return col.CurrencySymbol
	}
	if ctx.CurrencySymbol != "" {
		return ctx.CurrencySymbol
	}
	if f.language(col, ctx) == locale.English {
		return currencyEnglish
	}
	return currencyArabic
}

func (f *Formatter) formatNumber(value any, col Column, ctx Context) Cell {
	d, ok := toDecimal(f.text, value)
	if !ok {
		return f.missing(col, ctx)
	}
	// Value keeps full precision; only the display is rounded.
	raw, _ := d.Float64()
	shown := d.Round(2)
	if ctx.Format == FormatExcel {
		return Cell{Display: shown.String(), Value: raw, NumFmt: f.excelNumberFormat(shown, col, ctx)}
	}
	var s string
	if col.Type == TypeCurrency {
		s = groupDigits(shown.StringFixed(2))
		if sym := f.currencySymbol(col, ctx); sym != "" {
			s += " " + sym
		}
	} else {
		s = groupDigits(shown.String())
	}
	s = f.shapeNumber(s, shown.IsNegative(), ctx)
	return Cell{Display: markupSafe(s, ctx), Value: raw}
}

func (f *Formatter) formatPercentage(value any, col Column, ctx Context) Cell {
	d, ok := toDecimal(f.text, value)
	if !ok {
		return f.missing(col, ctx)
	}
	raw, _ := d.Float64()
	if ctx.Format == FormatExcel {
		numFmt := col.Format
		if numFmt == "" {
			numFmt = "0.00%"
		}
		return Cell{Display: d.String(), Value: raw, NumFmt: numFmt}
	}
	pct := d.Mul(decimal.NewFromInt(100)).Round(2)
	return Cell{Display: f.shapeNumber(pct.StringFixed(2)+"%", pct.IsNegative(), ctx), Value: raw}
}

// shapeNumber applies digit shaping and the LRM mark for negative values in
// right-to-left documents.
func (f *Formatter) shapeNumber(s string, negative bool, ctx Context) string {
	if ctx.UseArabicNumerals && ctx.Format != FormatCSV {
		s = f.text.ToArabicDigits(s)
	}
	if negative && ctx.RTL && (ctx.Format == FormatHTML || ctx.Format == FormatPDF) {
		s = locale.LRM + s
	}
	return s
}

func (f *Formatter) excelNumberFormat(d decimal.Decimal, col Column, ctx Context) string {
	if col.Format != "" {
		return col.Format
	}
	prefix := "[$-401]"
	if f.language(col, ctx) == locale.English {
		prefix = "[$-409]"
	}
	switch col.Type {
	case TypeCurrency:
		format := "#,##0.00"
		if sym := f.currencySymbol(col, ctx); sym != "" {
			format += ` "` + strings.ReplaceAll(sym, `"`, "") + `"`
		}
		return prefix + format
	case TypeNumber:
		if d.IsInteger() {
			return prefix + "#,##0"
		}
		return prefix + "#,##0.00"
	}
	return ""
}

func (f *Formatter) formatDate(value any, col Column, ctx Context) Cell {
	t, ok := parseDate(f.text, value)
	if !ok {
		return f.missing(col, ctx)
	}
	lang := f.language(col, ctx)
	if ctx.Format == FormatExcel {
		numFmt := col.Format
		if numFmt == "" {
			numFmt = excelDateFormat(lang, col.ShowTime)
		}
		return Cell{Display: t.Format(dateLayout(lang, col.ShowTime)), Value: t, NumFmt: numFmt}
	}
	s := t.Format(dateLayout(lang, col.ShowTime))
	if ctx.UseArabicNumerals && ctx.Format != FormatCSV {
		s = f.text.ToArabicDigits(s)
	}
	return Cell{Display: s, Value: t}
}

func dateLayout(lang locale.Language, withTime bool) string {
	layout := "02/01/2006"
	if lang == locale.English {
		layout = "01/02/2006"
	}
	if withTime {
		layout += " - 15:04"
	}
	return layout
}

func excelDateFormat(lang locale.Language, withTime bool) string {
	format := "dd/mm/yyyy"
	if lang == locale.English {
		format = "mm/dd/yyyy"
	}
	if withTime {
		format += " hh:mm"
	}
	return format
}

// FormatDate renders a date-only value or DatePlaceholder.
func (f *Formatter) FormatDate(value any, lang locale.Language) string {
	return f.Format(value, Column{Type: TypeDate}, Context{Format: FormatHTML, Language: lang}).Display
}

// FormatDateTime renders a date-time value or DateTimePlaceholder.
func (f *Formatter) FormatDateTime(value any, lang locale.Language) string {
	return f.Format(value, Column{Type: TypeDate, ShowTime: true}, Context{Format: FormatHTML, Language: lang}).Display
}

// FormatLongDate renders t with weekday and month names, e.g. for document headers.
func (f *Formatter) FormatLongDate(t time.Time, lang locale.Language, arabicNumerals bool) string {
	if t.IsZero() {
		return DatePlaceholder
	}
	var s string
	if lang == locale.English {
		s = fmt.Sprintf("%s, %s %d, %d", f.text.WeekdayName(lang, t.Weekday()), f.text.MonthName(lang, t.Month()), t.Day(), t.Year())
	} else {
		s = fmt.Sprintf("%s، %d %s %d", f.text.WeekdayName(lang, t.Weekday()), t.Day(), f.text.MonthName(lang, t.Month()), t.Year())
	}
	if arabicNumerals {
		s = f.text.ToArabicDigits(s)
	}
	return s
}

func (f *Formatter) formatBoolean(value any, col Column, ctx Context) Cell {
	b, ok := toBool(f.text, value)
	if !ok {
		return f.missing(col, ctx)
	}
	return Cell{Display: f.text.YesNo(f.language(col, ctx), b), Value: b}
}

func (f *Formatter) formatText(value any, ctx Context) Cell {
	s := stringify(value)
	s = f.text.StripControls(s)
	if ctx.CleanText {
		s = f.text.Clean(s)
	}
	return Cell{Display: markupSafe(s, ctx), Value: s}
}

// markupSafe escapes s for targets whose Display is embedded in HTML as is.
func markupSafe(s string, ctx Context) string {
	if ctx.Format == FormatHTML || ctx.Format == FormatPDF {
		return html.EscapeString(s)
	}
	return s
}

// EscapeCSV quotes s when it contains a comma, a double quote or a line break.
func EscapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func groupDigits(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	out := sign + b.String()
	if hasFrac {
		out += "." + frac
	}
	return out
}

func isNil(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *string:
		return x == nil
	case *time.Time:
		return x == nil
	case *decimal.Decimal:
		return x == nil
	case *bool:
		return x == nil
	case *float64:
		return x == nil
	case *int64:
		return x == nil
	case decimal.NullDecimal:
		return !x.Valid
	}
	return false
}

func toDecimal(text *locale.Engine, v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case *decimal.Decimal:
		return *x, true
	case decimal.NullDecimal:
		return x.Decimal, x.Valid
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case *int64:
		return decimal.NewFromInt(*x), true
	case uint32:
		return decimal.NewFromInt(int64(x)), true
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case *float64:
		return fromFloat(*x)
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		return parseDecimalString(text, x)
	case *string:
		return parseDecimalString(text, *x)
	}
	return decimal.Decimal{}, false
}

func fromFloat(v float64) (decimal.Decimal, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(v), true
}

func parseDecimalString(text *locale.Engine, s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(text.ToWesternDigits(text.StripControls(s)))
	s = strings.NewReplacer(",", "", "٬", "", "٫", ".").Replace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseDate(text *locale.Engine, v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		return *x, !x.IsZero()
	case string:
		return parseDateString(text, x)
	case *string:
		return parseDateString(text, *x)
	}
	return time.Time{}, false
}

func parseDateString(text *locale.Engine, s string) (time.Time, bool) {
	s = strings.TrimSpace(text.ToWesternDigits(text.StripControls(s)))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toBool(text *locale.Engine, v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case *bool:
		return *x, true
	case int:
		return x != 0, true
	case int64:
		return x != 0, true
	case float64:
		return x != 0, true
	case string:
		s := strings.ToLower(strings.TrimSpace(text.StripControls(x)))
		switch s {
		case "نعم":
			return true, true
		case "لا":
			return false, true
		}
		b, err := strconv.ParseBool(s)
		if err == nil {
			return b, true
		}
		switch s {
		case "yes", "y":
			return true, true
		case "no", "n":
			return false, true
		}
	}
	return false, false
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case *string:
		return *x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}
	return fmt.Sprint(v)
}
