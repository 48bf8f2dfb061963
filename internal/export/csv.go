package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
	utf8BOM       = "\ufeff"
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = false
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

// writeRaw writes line verbatim, terminated by "\n". Pending records are
// flushed first so ordering is preserved.
func (s *csvStreamer) writeRaw(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	line = strings.TrimRight(line, "\r\n")
	if _, err := s.buf.WriteString(line + "\n"); err != nil {
		return err
	}
	return nil
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (m *Manager) exportCSV(table TableData, r resolved, at time.Time) (*Artifact, error) {
	var out bytes.Buffer
	if err := m.writeCSV(&out, table, r); err != nil {
		return nil, fmt.Errorf("export: csv: %w", err)
	}
	return newArtifact(r, at, FormatCSV, out.Bytes()), nil
}

func (m *Manager) writeCSV(w io.Writer, table TableData, r resolved) error {
	ctx := r.context(FormatCSV)
	p := m.prepare(table, ctx)

	streamer := newCSVStreamer(w)
	if _, err := streamer.buf.WriteString(utf8BOM); err != nil {
		return err
	}
	for _, row := range table.Metadata.PrependRows {
		if err := streamer.writeRaw(prependLine(row)); err != nil {
			return err
		}
	}
	if err := streamer.writeRow(p.headers); err != nil {
		return err
	}
	for _, row := range p.displayRows() {
		if err := streamer.writeRow(row); err != nil {
			return err
		}
	}
	if p.summary != nil {
		if err := streamer.writeRow(displays(p.summary)); err != nil {
			return err
		}
	}
	return streamer.Flush()
}

// prependLine joins a metadata row with commas, without quoting.
func prependLine(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		parts[i] = stringify(v)
	}
	return strings.Join(parts, ",")
}
