package export

import (
	"encoding/json"
	"fmt"
	"time"
)

type jsonDocument struct {
	Title      string           `json:"title"`
	ExportDate string           `json:"exportDate"`
	Columns    []Column         `json:"columns"`
	Rows       []map[string]any `json:"rows"`
	Summary    map[string]any   `json:"summary,omitempty"`
	Metadata   Metadata         `json:"metadata"`
}

func (m *Manager) exportJSON(table TableData, r resolved, at time.Time) (*Artifact, error) {
	p := m.prepare(table, r.context(FormatJSON))
	doc := jsonDocument{
		Title:      r.Title,
		ExportDate: at.Format(time.RFC3339),
		Columns:    p.columns,
		Rows:       make([]map[string]any, 0, len(p.rows)),
		Metadata:   table.Metadata,
	}
	for _, cells := range p.rows {
		doc.Rows = append(doc.Rows, typedRow(p.columns, cells))
	}
	if p.summary != nil {
		doc.Summary = typedRow(p.columns, p.summary)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: json: %w", err)
	}
	return newArtifact(r, at, FormatJSON, data), nil
}

// typedRow keeps numbers, booleans and dates typed; missing values become null.
func typedRow(cols []Column, cells []Cell) map[string]any {
	row := make(map[string]any, len(cols))
	for i, c := range cols {
		row[c.Key] = cells[i].Value
	}
	return row
}
