package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"metiz/internal"
)

func TestWriteReportXLSX(t *testing.T) {
	rows := []internal.ReportRow{
		{
			OrderPosition: 1, SearchQuery: "болт m10x30", FullQuery: "Болт М10х30 цинк",
			RequestedQuantity: 100, SKU: "B-933-1030", Name: "Болт DIN 933 М10х30 цинк",
			PackSize: 100, Unit: "шт", ProbabilityPercent: 95,
			MatchReason: "совпадение по стандарту и размеру", Status: "APPROVED",
		},
		{
			OrderPosition: 2, SearchQuery: "нечто", FullQuery: "нечто",
			RequestedQuantity: 1, SKU: internal.NotFoundSKU, Name: internal.NotFoundName,
			Unit: "шт", ProbabilityPercent: 0,
			MatchReason: "не найдено в каталоге", Status: "NEEDS_CLARIFICATION",
		},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := WriteReportXLSX(path, rows); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	got, err := f.GetRows(sheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("строк в отчете %d, want 3 (заголовок + 2)", len(got))
	}
	if got[0][0] != "№" || got[0][4] != "Артикул" {
		t.Errorf("заголовок %v", got[0])
	}
	if got[1][4] != "B-933-1030" {
		t.Errorf("артикул первой строки %q", got[1][4])
	}
	if got[2][4] != internal.NotFoundSKU {
		t.Errorf("артикул второй строки %q, want %q", got[2][4], internal.NotFoundSKU)
	}
}
