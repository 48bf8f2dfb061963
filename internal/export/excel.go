package export

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	excelDefaultSheet = "Sheet1"
	excelMaxWidth     = 60
)

func (m *Manager) exportExcel(table TableData, r resolved, at time.Time) (*Artifact, error) {
	data, err := m.writeExcel(table, r)
	if err != nil {
		return nil, fmt.Errorf("export: excel: %w", err)
	}
	return newArtifact(r, at, FormatExcel, data), nil
}

func (m *Manager) writeExcel(table TableData, r resolved) ([]byte, error) {
	p := m.prepare(table, r.context(FormatExcel))

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	sheet := r.Excel.SheetName
	if err := f.SetSheetName(excelDefaultSheet, sheet); err != nil {
		return nil, err
	}
	if r.rtl {
		rtl := true
		if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
			return nil, err
		}
	}

	row := 1
	for _, values := range table.Metadata.PrependRows {
		values := values
		if len(values) > 0 {
			if err := f.SetSheetRow(sheet, cellName(1, row), &values); err != nil {
				return nil, err
			}
		}
		row++
	}

	headerRow := row
	if len(p.columns) == 0 {
		return writeWorkbook(f)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#8EA9DB", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	for i, h := range p.headers {
		if err := f.SetCellValue(sheet, cellName(i+1, headerRow), h); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheet, cellName(1, headerRow), cellName(len(p.columns), headerRow), headerStyle); err != nil {
		return nil, err
	}

	styles := newExcelStyles(f)
	row = headerRow + 1
	for _, cells := range p.rows {
		if err := writeExcelRow(f, sheet, row, cells, styles, false); err != nil {
			return nil, err
		}
		row++
	}
	lastDataRow := row - 1
	if p.summary != nil {
		if err := writeExcelRow(f, sheet, row, p.summary, styles, true); err != nil {
			return nil, err
		}
	}

	for i, c := range p.columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, name, name, columnWidth(c, p.headers[i])); err != nil {
			return nil, err
		}
	}
	if r.Excel.AutoFilter && lastDataRow > headerRow {
		ref := cellName(1, headerRow) + ":" + cellName(len(p.columns), lastDataRow)
		if err := f.AutoFilter(sheet, ref, nil); err != nil {
			return nil, err
		}
	}
	if r.Excel.FreezeHeader {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      headerRow,
			TopLeftCell: cellName(1, headerRow+1),
			ActivePane:  "bottomLeft",
		}); err != nil {
			return nil, err
		}
	}
	return writeWorkbook(f)
}

func writeWorkbook(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeExcelRow(f *excelize.File, sheet string, row int, cells []Cell, styles *excelStyles, bold bool) error {
	for i, c := range cells {
		name := cellName(i+1, row)
		if c.Value == nil {
			continue
		}
		if err := f.SetCellValue(sheet, name, c.Value); err != nil {
			return err
		}
		if c.NumFmt == "" && !bold {
			continue
		}
		style, err := styles.get(c.NumFmt, bold)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, name, name, style); err != nil {
			return err
		}
	}
	return nil
}

type excelStyleKey struct {
	numFmt string
	bold   bool
}

// excelStyles caches one style id per number format so large sheets do not
// create a style per cell.
type excelStyles struct {
	file  *excelize.File
	cache map[excelStyleKey]int
}

func newExcelStyles(f *excelize.File) *excelStyles {
	return &excelStyles{file: f, cache: make(map[excelStyleKey]int)}
}

func (s *excelStyles) get(numFmt string, bold bool) (int, error) {
	key := excelStyleKey{numFmt: numFmt, bold: bold}
	if id, ok := s.cache[key]; ok {
		return id, nil
	}
	style := &excelize.Style{}
	if numFmt != "" {
		format := numFmt
		style.CustomNumFmt = &format
	}
	if bold {
		style.Font = &excelize.Font{Bold: true}
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F2F2F2"}}
	}
	id, err := s.file.NewStyle(style)
	if err != nil {
		return 0, err
	}
	s.cache[key] = id
	return id, nil
}

// columnWidth estimates a width from the column type and header length.
func columnWidth(c Column, header string) float64 {
	if c.Width > 0 {
		return c.Width
	}
	var base float64
	switch c.Type {
	case TypeCurrency:
		base = 18
	case TypeNumber:
		base = 14
	case TypePercentage:
		base = 12
	case TypeDate:
		base = 14
		if c.ShowTime {
			base = 20
		}
	case TypeBoolean:
		base = 10
	default:
		base = 24
	}
	if w := float64(utf8.RuneCountInString(header) + 4); w > base {
		base = w
	}
	if base > excelMaxWidth {
		base = excelMaxWidth
	}
	return base
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A1"
	}
	return name
}
