package export

import (
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-reports/internal/locale"
)

var allTypes = []ColumnType{TypeText, TypeNumber, TypeCurrency, TypeDate, TypeBoolean, TypePercentage}

func TestFormatNeverPanicsAndAlwaysPlaceholders(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	var nilTime *time.Time
	var nilString *string
	inputs := []any{nil, nilTime, nilString, "", "not-a-number", math.NaN(), math.Inf(1), struct{}{}, []int{1, 2}, map[string]int{}}
	for _, typ := range allTypes {
		for _, format := range Formats {
			for _, in := range inputs {
				var cell Cell
				require.NotPanics(t, func() {
					cell = f.Format(in, Column{Key: "k", Type: typ}, Context{Format: format, UseArabicNumerals: true, Language: locale.Arabic})
				})
				if in == "" && typ == TypeText {
					continue
				}
				assert.NotEmpty(t, cell.Display, "type=%s format=%s input=%#v", typ, format, in)
			}
		}
	}
}

func TestDatePlaceholders(t *testing.T) {
	f := NewFormatter(nil)
	for _, in := range []any{"", nil, "not-a-date", time.Time{}} {
		assert.Equal(t, "--/--/----", f.FormatDate(in, locale.English))
		assert.Equal(t, "--/--/---- - --:--", f.FormatDateTime(in, locale.English))
	}
}

func TestFormatCurrencyArabicNumerals(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	cell := f.Format(1234.5, Column{Type: TypeCurrency}, Context{Format: FormatHTML, UseArabicNumerals: true, Language: locale.Arabic})
	assert.Contains(t, cell.Display, "١,٢٣٤.٥٠")
	assert.Contains(t, cell.Display, "ر.س")
	assert.Equal(t, 1234.5, cell.Value)

	cell = f.Format(1234.5, Column{Type: TypeCurrency}, Context{Format: FormatHTML, Language: locale.English})
	assert.Equal(t, "1,234.50 SAR", cell.Display)

	cell = f.Format(1234.5, Column{Type: TypeCurrency, CurrencySymbol: "USD"}, Context{Format: FormatCSV, UseArabicNumerals: true, Language: locale.Arabic})
	assert.Equal(t, "1,234.50 USD", cell.Display, "csv keeps western digits")
}

func TestFormatNumbers(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	ctx := Context{Format: FormatHTML, Language: locale.English}

	assert.Equal(t, "1,234,567.89", f.Format(1234567.891, Column{Type: TypeNumber}, ctx).Display)
	assert.Equal(t, "1,000", f.Format(1000, Column{Type: TypeNumber}, ctx).Display)
	assert.Equal(t, "12", f.Format(decimal.RequireFromString("12.00"), Column{Type: TypeNumber}, ctx).Display)
	assert.Equal(t, "1,234.5", f.Format("١٢٣٤٫٥", Column{Type: TypeNumber}, ctx).Display)

	rtl := Context{Format: FormatPDF, Language: locale.Arabic, RTL: true}
	assert.Equal(t, locale.LRM+"-1,234.5", f.Format(-1234.5, Column{Type: TypeNumber}, rtl).Display)
	assert.Equal(t, "-1,234.5", f.Format(-1234.5, Column{Type: TypeNumber}, Context{Format: FormatCSV, RTL: true}).Display)
}

func TestFormatExcelKeepsTypes(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	ctx := Context{Format: FormatExcel, UseArabicNumerals: true, Language: locale.Arabic}

	cell := f.Format(decimal.RequireFromString("1500.25"), Column{Type: TypeCurrency}, ctx)
	assert.Equal(t, 1500.25, cell.Value)
	assert.Equal(t, `[$-401]#,##0.00 "ر.س"`, cell.NumFmt)

	cell = f.Format(42, Column{Type: TypeNumber, Locale: "en"}, ctx)
	assert.Equal(t, float64(42), cell.Value)
	assert.Equal(t, "[$-409]#,##0", cell.NumFmt)

	cell = f.Format(42, Column{Type: TypeNumber, Format: "0.000"}, ctx)
	assert.Equal(t, "0.000", cell.NumFmt)

	cell = f.Format(0.125, Column{Type: TypePercentage}, ctx)
	assert.Equal(t, 0.125, cell.Value)
	assert.Equal(t, "0.00%", cell.NumFmt)

	when := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	cell = f.Format(when, Column{Type: TypeDate}, ctx)
	assert.Equal(t, when, cell.Value)
	assert.Equal(t, "dd/mm/yyyy", cell.NumFmt)

	cell = f.Format(true, Column{Type: TypeBoolean}, ctx)
	assert.Equal(t, true, cell.Value)

	assert.Equal(t, Cell{Display: NullPlaceholder}, f.Format(nil, Column{Type: TypeCurrency}, ctx))
	assert.Equal(t, Cell{Display: DatePlaceholder}, f.Format("bad", Column{Type: TypeDate}, ctx))
}

func TestFormatPercentageAndBoolean(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	en := Context{Format: FormatHTML, Language: locale.English}
	ar := Context{Format: FormatHTML, Language: locale.Arabic, UseArabicNumerals: true}

	assert.Equal(t, "12.34%", f.Format(0.1234, Column{Type: TypePercentage}, en).Display)
	assert.Equal(t, "٥٠.٠٠%", f.Format("0.5", Column{Type: TypePercentage}, ar).Display)

	assert.Equal(t, "نعم", f.Format(true, Column{Type: TypeBoolean}, ar).Display)
	assert.Equal(t, "No", f.Format("false", Column{Type: TypeBoolean}, en).Display)
	assert.Equal(t, "Yes", f.Format(1, Column{Type: TypeBoolean}, en).Display)
}

func TestFormatDates(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	assert.Equal(t, "05/03/2024", f.Format("2024-03-05", Column{Type: TypeDate}, Context{Format: FormatHTML, Language: locale.Arabic}).Display)
	assert.Equal(t, "03/05/2024", f.Format("2024-03-05", Column{Type: TypeDate}, Context{Format: FormatHTML, Language: locale.English}).Display)
	assert.Equal(t, "05/03/2024 - 14:07", f.Format("2024-03-05T14:07:00Z", Column{Type: TypeDate, ShowTime: true}, Context{Format: FormatHTML, Language: locale.Arabic}).Display)
	assert.Equal(t, "٠٥/٠٣/٢٠٢٤", f.Format("2024-03-05", Column{Type: TypeDate}, Context{Format: FormatPDF, Language: locale.Arabic, UseArabicNumerals: true}).Display)
	assert.Equal(t, "05/03/2024", f.Format("2024-03-05", Column{Type: TypeDate}, Context{Format: FormatCSV, Language: locale.Arabic, UseArabicNumerals: true}).Display)
}

func TestFormatLongDate(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	day := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "Sunday, October 18, 2026", f.FormatLongDate(day, locale.English, false))
	assert.Equal(t, "الأحد، 18 أكتوبر 2026", f.FormatLongDate(day, locale.Arabic, false))
	assert.Equal(t, "الأحد، ١٨ أكتوبر ٢٠٢٦", f.FormatLongDate(day, locale.Arabic, true))
	assert.Equal(t, DatePlaceholder, f.FormatLongDate(time.Time{}, locale.Arabic, false))
}

func TestFormatText(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	col := Column{Type: TypeText}

	cell := f.Format(`<b>&'"`, col, Context{Format: FormatHTML})
	assert.Equal(t, "&lt;b&gt;&amp;&#39;&#34;", cell.Display)
	assert.Equal(t, `<b>&'"`, cell.Value)

	cell = f.Format(`<b>&'"`, col, Context{Format: FormatCSV})
	assert.Equal(t, `<b>&'"`, cell.Display)

	assert.Equal(t, "abc", f.Format("a\u200fb\u200bc", col, Context{Format: FormatCSV}).Display)

	withMarks := "\u0645\u064f\u062d\u0640\u0645\u0651\u062f"
	assert.Equal(t, withMarks, f.Format(withMarks, col, Context{Format: FormatCSV}).Display)
	assert.Equal(t, "محمد", f.Format(withMarks, col, Context{Format: FormatCSV, CleanText: true}).Display)
}

func TestEscapeCSVRoundTrip(t *testing.T) {
	for _, in := range []string{"plain", `a,b`, `say "hi"`, "two\nlines", "all, \"of\"\nthem"} {
		escaped := EscapeCSV(in)
		records, err := csv.NewReader(strings.NewReader(escaped + "\n")).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Len(t, records[0], 1)
		assert.Equal(t, in, records[0][0])
	}
	assert.Equal(t, "plain", EscapeCSV("plain"))
}

func TestParseFormatAndColumnType(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatExcel, f)
	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	ct, err := ParseColumnType("")
	require.NoError(t, err)
	assert.Equal(t, TypeText, ct)
	_, err = ParseColumnType("money")
	assert.ErrorIs(t, err, ErrUnknownColumnType)
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "trial_balance_2026-10-18.csv", Filename("Trial Balance", at, FormatCSV))
	assert.Equal(t, "ميزان_المراجعة_2026-10-18.xlsx", Filename("ميزان المراجعة", at, FormatExcel))
	assert.Equal(t, "report_2026-10-18.pdf", Filename("  !! ", at, FormatPDF))
}

func TestFormatNumberKeepsRawPrecision(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	col := Column{Type: TypeNumber}

	cell := f.Format("3.7525", col, Context{Format: FormatExcel})
	assert.Equal(t, 3.7525, cell.Value)
	assert.Equal(t, "3.75", cell.Display)
	assert.Equal(t, "[$-401]#,##0.00", cell.NumFmt)

	cell = f.Format(3.7525, Column{Type: TypeCurrency, CurrencySymbol: "SAR"}, Context{Format: FormatCSV})
	assert.Equal(t, 3.7525, cell.Value)
	assert.Equal(t, "3.75 SAR", cell.Display)
}

func TestFormatCurrencySymbolIsEscapedForMarkup(t *testing.T) {
	f := NewFormatter(locale.NewEngine())
	col := Column{Type: TypeCurrency, CurrencySymbol: `<img src=x onerror="alert(1)">`}

	for _, format := range []Format{FormatHTML, FormatPDF} {
		cell := f.Format(10, col, Context{Format: format})
		assert.Equal(t, "10.00 &lt;img src=x onerror=&#34;alert(1)&#34;&gt;", cell.Display, format)
	}
	cell := f.Format(10, Column{Type: TypeCurrency}, Context{Format: FormatHTML, CurrencySymbol: "<b>"})
	assert.Equal(t, "10.00 &lt;b&gt;", cell.Display)

	cell = f.Format(10, col, Context{Format: FormatCSV})
	assert.Equal(t, `10.00 <img src=x onerror="alert(1)">`, cell.Display)
}
