// Package report renders approval data into downloadable spreadsheets.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-approval/internal/application/service"
)

const historySheet = "Approval History"

var historyHeader = []string{
	"Step ID", "Expense ID", "Description", "Amount", "Currency",
	"Category", "Expense Date", "Submitter", "Step Order", "Rule Kind",
	"Action", "Decided At", "Comments",
}

// HistoryExporter renders a user's decision history as an xlsx workbook
type HistoryExporter struct {
	logger *zap.Logger
}

// NewHistoryExporter creates a new history exporter
func NewHistoryExporter(logger *zap.Logger) *HistoryExporter {
	return &HistoryExporter{logger: logger}
}

// Export builds the workbook in memory
func (e *HistoryExporter) Export(entries []*service.HistoryEntry) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(historySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, title := range historyHeader {
		e.setCell(f, cellName(col, 1), title)
	}

	for i, entry := range entries {
		row := i + 2
		e.setCell(f, cellName(0, row), entry.StepID)
		e.setCell(f, cellName(1, row), entry.Expense.ID)
		e.setCell(f, cellName(2, row), entry.Expense.Description)
		e.setCell(f, cellName(3, row), entry.Expense.Amount)
		e.setCell(f, cellName(4, row), entry.Expense.Currency)
		e.setCell(f, cellName(5, row), entry.Expense.Category)
		e.setCell(f, cellName(6, row), entry.Expense.ExpenseDate.Format("2006-01-02"))
		e.setCell(f, cellName(7, row), entry.SubmitterName)
		e.setCell(f, cellName(8, row), entry.StepOrder)
		e.setCell(f, cellName(9, row), entry.RuleKind)
		e.setCell(f, cellName(10, row), entry.ActionTaken)
		e.setCell(f, cellName(11, row), entry.DecidedAt.Format("2006-01-02 15:04:05"))
		e.setCell(f, cellName(12, row), entry.Comments)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	e.logger.Info("Approval history exported", zap.Int("entries", len(entries)))
	return buf, nil
}

// setCell sets a cell value, logging instead of failing on a bad cell
func (e *HistoryExporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(historySheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return ""
	}
	return name
}
