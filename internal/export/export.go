package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stolik/internal/audit"
	"stolik/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetTables   = "Tables"
	sheetWaitlist = "Waitlist"
	sheetEvents   = "Events"
)

// WriteFloorState writes the current seating plan, waitlist and recent
// allocation events into an xlsx workbook and returns its path.
func WriteFloorState(dir string, tables []models.Table, entries []models.WaitlistEntry, records []audit.Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeTablesSheet(f, tables); err != nil {
		return "", err
	}
	if err := writeWaitlistSheet(f, entries); err != nil {
		return "", err
	}
	if err := writeEventsSheet(f, records); err != nil {
		return "", err
	}

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("floor_%s.xlsx", time.Now().Format("2006-01-02_150405"))
	filePath := filepath.Join(dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

func writeTablesSheet(f *excelize.File, tables []models.Table) error {
	index, err := f.NewSheet(sheetTables)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Table", "Capacity", "Status", "Booked at"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetTables, cell, header)
	}

	for row, table := range tables {
		status := "free"
		bookedAt := ""
		if table.Booked {
			status = "booked"
			bookedAt = table.BookedAt.Format("02.01.2006 15:04")
		}
		values := []interface{}{table.ID, table.Capacity, status, bookedAt}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheetTables, cell, value)
		}
	}

	_ = f.SetColWidth(sheetTables, "A", "D", 18)

	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheetTables, "A1", "D1", style)
	return nil
}

func writeWaitlistSheet(f *excelize.File, entries []models.WaitlistEntry) error {
	if _, err := f.NewSheet(sheetWaitlist); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	headers := []string{"Position", "Customer", "Seats", "Waiting since"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetWaitlist, cell, header)
	}

	for row, entry := range entries {
		values := []interface{}{row + 1, entry.CustomerID, entry.RequiredSeats, entry.EnqueuedAt.Format("02.01.2006 15:04")}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheetWaitlist, cell, value)
		}
	}

	_ = f.SetColWidth(sheetWaitlist, "A", "D", 18)
	return nil
}

func writeEventsSheet(f *excelize.File, records []audit.Record) error {
	if _, err := f.NewSheet(sheetEvents); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	headers := []string{"Time", "Event", "Customer", "Table", "Seats", "Trigger"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetEvents, cell, header)
	}

	for row, record := range records {
		values := []interface{}{
			record.At.Format("02.01.2006 15:04:05"),
			record.Type,
			record.Payload.CustomerID,
			record.Payload.TableID,
			record.Payload.RequiredSeats,
			record.Payload.Trigger,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheetEvents, cell, value)
		}
	}

	_ = f.SetColWidth(sheetEvents, "A", "F", 20)
	return nil
}
