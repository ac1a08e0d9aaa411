package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"metiz/internal"
)

// DetectSource guesses the input kind from the file extension.
func DetectSource(path string) internal.InputSource {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return internal.SourceHTMLTable
	case ".xlsx", ".xlsm":
		return internal.SourceXLSX
	case ".pdf":
		return internal.SourcePDF
	default:
		return internal.SourceText
	}
}

// ExtractOrder reads an order document and returns its text with one order
// line per row, ready for the normalizer.
func ExtractOrder(path string, source internal.InputSource) (string, error) {
	switch source {
	case internal.SourceHTMLTable:
		return extractHTML(path)
	case internal.SourceXLSX:
		return extractXLSX(path)
	case internal.SourcePDF:
		return extractPDF(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("чтение %s: %w", path, err)
		}
		return string(data), nil
	}
}

// extractHTML pulls order lines out of the first table; documents without
// a table fall back to the body text.
func extractHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("открытие %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("разбор HTML %s: %w", path, err)
	}

	var lines []string
	doc.Find("table").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, td *goquery.Selection) {
			if t := strings.TrimSpace(td.Text()); t != "" {
				cells = append(cells, t)
			}
		})
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " "))
		}
	})
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), nil
	}
	return strings.TrimSpace(doc.Find("body").Text()), nil
}

func extractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("открытие %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%s: нет листов", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("чтение %s: %w", path, err)
	}

	var lines []string
	for _, row := range rows {
		var cells []string
		for _, c := range row {
			if t := strings.TrimSpace(c); t != "" {
				cells = append(cells, t)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " "))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("открытие %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("текст из %s: %w", path, err)
	}
	if _, err := buf.ReadFrom(b); err != nil {
		return "", err
	}
	return buf.String(), nil
}
