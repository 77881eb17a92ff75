// Package export renders the change journal into xlsx reports.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kovorka/internal/domain"
	"kovorka/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const changeLogSheet = "Changes"

// Exporter builds Excel files from the change journal.
type Exporter struct {
	journal domain.Journal
	path    string
	logger  zerolog.Logger
}

func NewExporter(journal domain.Journal, path string, logger zerolog.Logger) *Exporter {
	return &Exporter{
		journal: journal,
		path:    path,
		logger:  logger.With().Str("component", "export").Logger(),
	}
}

// ExportChangeLog writes every change recorded at or after since into an xlsx
// file and returns the file path.
func (e *Exporter) ExportChangeLog(ctx context.Context, since time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	changes, err := e.journal.ListAllChanges(ctx, since)
	if err != nil {
		return "", fmt.Errorf("error listing changes: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(changeLogSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(changeLogSheet, "A1", fmt.Sprintf("Change log since %s", since.Format("02.01.2006")))
	_ = f.MergeCell(changeLogSheet, "A1", "H1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(changeLogSheet, "A1", "A1", titleStyle)

	e.writeHeaders(f)
	e.writeRows(f, changes)

	_ = f.SetColWidth(changeLogSheet, "A", "C", 14)
	_ = f.SetColWidth(changeLogSheet, "D", "H", 20)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("changelog_%s.xlsx", time.Now().Format("2006-01-02_150405"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("changes", len(changes)).Msg("change log exported")
	return filePath, nil
}

func (e *Exporter) writeHeaders(f *excelize.File) {
	headers := []string{"ID", "Booking", "Change", "Old Start", "Old End", "New Start", "New End", "Recorded At"}

	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(changeLogSheet, cell, header)
		_ = f.SetCellStyle(changeLogSheet, cell, cell, style)
	}
}

func (e *Exporter) writeRows(f *excelize.File, changes []*models.ChangeEntry) {
	for i, entry := range changes {
		row := i + 3
		values := []interface{}{
			entry.ID,
			entry.BookingID,
			entry.ChangeType,
			cellTime(entry.OldStart),
			cellTime(entry.OldEnd),
			cellTime(entry.NewStart),
			cellTime(entry.NewEnd),
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(changeLogSheet, cell, value)
		}
	}
}

func cellTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
