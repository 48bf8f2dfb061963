package export

// prepared is a table after column filtering and cell formatting.
type prepared struct {
	columns []Column
	headers []string
	rows    [][]Cell
	summary []Cell
}

func (m *Manager) prepare(table TableData, ctx Context) prepared {
	cols := table.VisibleColumns()
	p := prepared{
		columns: cols,
		headers: make([]string, len(cols)),
		rows:    make([][]Cell, 0, len(table.Rows)),
	}
	for i, c := range cols {
		p.headers[i] = m.formatter.FormatHeader(c.Header, ctx)
	}
	for _, row := range table.Rows {
		cells := make([]Cell, len(cols))
		for i, c := range cols {
			cells[i] = m.formatter.Format(row[c.Key], c, ctx)
		}
		p.rows = append(p.rows, cells)
	}
	if len(table.Summary) > 0 {
		p.summary = make([]Cell, len(cols))
		for i, c := range cols {
			v, ok := table.Summary[c.Key]
			if !ok {
				continue
			}
			p.summary[i] = m.formatter.Format(v, c, ctx)
		}
	}
	return p
}

// displayRows returns the display strings of every data row.
func (p prepared) displayRows() [][]string {
	out := make([][]string, len(p.rows))
	for i, row := range p.rows {
		out[i] = displays(row)
	}
	return out
}

func displays(cells []Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.Display
	}
	return out
}
