package bootstrap

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"

	"news-harvester/domain"
)

// CSVSeedSource streams seed candidates from a discovery export, one row
// per URL. The header row names the columns, so order does not matter;
// only url is required. Publish dates and tones that fail to parse are
// dropped rather than costing the row its URL.
type CSVSeedSource struct {
	file    *os.File
	reader  *csv.Reader
	columns map[string]int
}

// NewCSVSeedSource opens path and consumes its header row.
func NewCSVSeedSource(path string) (*CSVSeedSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read seed header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	if _, ok := columns["url"]; !ok {
		file.Close()
		return nil, fmt.Errorf("seed file %s has no url column", path)
	}

	return &CSVSeedSource{file: file, reader: reader, columns: columns}, nil
}

// Next implements domain.SeedSource. It returns io.EOF at end of file.
func (s *CSVSeedSource) Next(ctx context.Context) (*domain.SeedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row, err := s.reader.Read()
	if err != nil {
		return nil, err
	}

	record := &domain.SeedRecord{
		URL:    s.field(row, "url"),
		Source: s.field(row, "source"),
		Themes: s.field(row, "themes"),
	}

	if raw := s.field(row, "publish_date"); raw != "" {
		if parsed, err := dateparse.ParseAny(raw); err == nil {
			utc := parsed.UTC()
			record.PublishDate = &utc
		}
	}

	if raw := s.field(row, "tone"); raw != "" {
		if tone, err := strconv.ParseFloat(raw, 64); err == nil {
			record.Tone = &tone
		}
	}

	return record, nil
}

// Close releases the underlying file.
func (s *CSVSeedSource) Close() error {
	return s.file.Close()
}

func (s *CSVSeedSource) field(row []string, name string) string {
	idx, ok := s.columns[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
