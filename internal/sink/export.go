// internal/sink/export.go
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"formsync/internal/common/config"
	commonerrors "formsync/internal/common/errors"
	"formsync/internal/common/logger"
	"formsync/internal/tabular"
)

// ExportSink writes new rows to a file artifact under dir. Writes go
// through a temp file and a rename so the download endpoint never
// observes a half-written artifact.
type ExportSink struct {
	dir    string
	logger logger.Logger
}

func NewExportSink(dir string, log logger.Logger) *ExportSink {
	return &ExportSink{dir: dir, logger: log}
}

func (s *ExportSink) Name() string { return "export" }

func (s *ExportSink) Deliver(ctx context.Context, src config.SourceConfig, table tabular.Table) (Result, error) {
	fileName := src.FileName
	if src.SingleColumn != "" {
		fileName = src.TxtFileName
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Result{}, commonerrors.NewDeliveryFailedError("export", err)
	}

	path := filepath.Join(s.dir, fileName)

	var err error
	switch {
	case src.SingleColumn != "":
		// single-column artifacts are bare value lists
		err = s.writeDelimited(path, table, false)
	case src.ExportFormat == config.FormatSpreadsheetBinary:
		err = s.writeWorkbook(path, table)
	default:
		err = s.writeDelimited(path, table, true)
	}
	if err != nil {
		return Result{}, commonerrors.NewDeliveryFailedError("export", err)
	}

	s.logger.Info("wrote export artifact", map[string]interface{}{
		"source": src.ID,
		"path":   path,
		"rows":   len(table.Rows),
	})
	return Result{ArtifactPath: path, Rows: len(table.Rows)}, nil
}

// writeDelimited emits a tab-separated text table, optionally with a
// header row first.
func (s *ExportSink) writeDelimited(path string, table tabular.Table, header bool) error {
	return s.atomicWrite(path, func(tmp *os.File) error {
		w := csv.NewWriter(tmp)
		w.Comma = '\t'

		if header {
			if err := w.Write(table.Columns); err != nil {
				return err
			}
		}
		for r := range table.Rows {
			cells := make([]string, len(table.Columns))
			for i := range table.Columns {
				cells[i] = table.CellAt(r, i)
			}
			if err := w.Write(cells); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func (s *ExportSink) writeWorkbook(path string, table tabular.Table) error {
	return s.atomicWrite(path, func(tmp *os.File) error {
		f := excelize.NewFile()
		defer f.Close()

		sheet := f.GetSheetName(0)

		for i, col := range table.Columns {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, col); err != nil {
				return err
			}
		}
		for r := range table.Rows {
			for i := range table.Columns {
				cell, err := excelize.CoordinatesToCellName(i+1, r+2)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(sheet, cell, table.CellAt(r, i)); err != nil {
					return err
				}
			}
		}

		_, err := f.WriteTo(tmp)
		return err
	})
}

func (s *ExportSink) atomicWrite(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(s.dir, ".export-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish artifact: %w", err)
	}
	return nil
}
