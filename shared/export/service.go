package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Service builds admin Excel exports of the full database.
type Service struct {
	exporter TableExporter
	writer   func() ExcelWriter // factory, one writer per workbook
	logger   zerolog.Logger
}

// NewService creates an export service.
func NewService(exporter TableExporter, writerFactory func() ExcelWriter, logger zerolog.Logger) *Service {
	return &Service{
		exporter: exporter,
		writer:   writerFactory,
		logger:   logger.With().Str("component", "export").Logger(),
	}
}

// BuildWorkbook exports every table into one workbook, a sheet per table,
// and returns the file bytes plus a dated filename.
func (s *Service) BuildWorkbook(ctx context.Context) (*bytes.Buffer, string, error) {
	tables, err := s.exporter.GetTableNames(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list tables: %w", err)
	}

	w := s.writer()
	for _, table := range tables {
		rows, columns, err := s.exporter.GetTableData(ctx, table)
		if err != nil {
			return nil, "", fmt.Errorf("export table %s: %w", table, err)
		}

		if err := w.AddSheet(table); err != nil {
			return nil, "", err
		}
		if err := w.WriteHeader(columns); err != nil {
			return nil, "", err
		}
		for _, row := range rows {
			values := make([]interface{}, len(columns))
			for i, col := range columns {
				values[i] = row[col]
			}
			if err := w.WriteRow(values); err != nil {
				return nil, "", err
			}
		}

		s.logger.Debug().Str("table", table).Int("rows", len(rows)).Msg("table exported")
	}

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		return nil, "", fmt.Errorf("save workbook: %w", err)
	}

	filename := GenerateFilename(time.Now())
	s.logger.Info().Str("filename", filename).Int("tables", len(tables)).Msg("export built")
	return &buf, filename, nil
}
