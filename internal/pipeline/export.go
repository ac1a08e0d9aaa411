package pipeline

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"metiz/internal"
)

var reportHeaders = []string{
	"№", "Поисковый запрос", "Исходная строка", "Кол-во", "Артикул",
	"Наименование", "Упаковка", "Ед.", "Вероятность, %", "Обоснование", "Статус",
}

// WriteReportXLSX renders the final report: one row per order line, in
// position order, with the sentinel SKU for lines that matched nothing.
func WriteReportXLSX(path string, rows []internal.ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Подбор"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("стиль заголовка: %w", err)
	}

	for col, h := range reportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.OrderPosition,
			row.SearchQuery,
			row.FullQuery,
			row.RequestedQuantity,
			row.SKU,
			row.Name,
			row.PackSize,
			row.Unit,
			row.ProbabilityPercent,
			row.MatchReason,
			row.Status,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	// wide columns for the query and name
	if err := f.SetColWidth(sheet, "B", "C", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "F", "F", 50); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "J", "J", 35); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("сохранение отчета %s: %w", path, err)
	}
	return nil
}
