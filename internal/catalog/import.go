package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"metiz/internal"
	"metiz/internal/util"
)

// Column mapping is inferred from the header row by keyword, so supplier
// spreadsheets with reordered or renamed columns still import.
var itemHeaderKeys = map[string][]string{
	"sku":      {"артикул", "код", "sku"},
	"name":     {"наименование", "название", "товар", "name"},
	"pack":     {"упаковка", "фасовка", "кол-во в уп", "pack"},
	"unit":     {"ед. изм", "ед.изм", "единица", "unit"},
	"price":    {"цена", "price"},
	"diameter": {"диаметр"},
	"length":   {"длина"},
	"material": {"материал"},
	"coating":  {"покрытие"},
	"standard": {"стандарт", "din", "гост"},
	"active":   {"активен", "в наличии", "active"},
}

var aliasHeaderKeys = map[string][]string{
	"alias": {"синоним", "запрос", "текст", "alias"},
	"sku":   {"артикул", "код", "sku"},
}

// ImportItemsXLSX reads a catalog spreadsheet: first sheet, first row is
// the header. Rows without SKU or name are skipped.
func ImportItemsXLSX(path string) ([]internal.CatalogItem, error) {
	rows, cols, err := readSheet(path, itemHeaderKeys)
	if err != nil {
		return nil, err
	}
	if _, ok := cols["sku"]; !ok {
		return nil, fmt.Errorf("%s: колонка с артикулом не найдена", path)
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("%s: колонка с наименованием не найдена", path)
	}

	var items []internal.CatalogItem
	for _, row := range rows {
		sku := strings.TrimSpace(cell(row, cols, "sku"))
		name := strings.TrimSpace(cell(row, cols, "name"))
		if sku == "" || name == "" {
			continue
		}
		it := internal.CatalogItem{
			SKU:      sku,
			Name:     name,
			PackSize: parseNum(cell(row, cols, "pack"), 1),
			Unit:     defaultStr(cell(row, cols, "unit"), "шт"),
			IsActive: parseActive(cell(row, cols, "active")),
			Attrs: internal.ItemAttributes{
				Diameter: attrPtr(cell(row, cols, "diameter")),
				Length:   attrPtr(cell(row, cols, "length")),
				Material: attrPtr(cell(row, cols, "material")),
				Coating:  attrPtr(cell(row, cols, "coating")),
				Standard: attrPtr(cell(row, cols, "standard")),
			},
		}
		if p := parseNum(cell(row, cols, "price"), 0); p > 0 {
			it.Price = util.FloatPtr(p)
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: нет строк каталога", path)
	}
	return items, nil
}

// ImportAliasesXLSX reads an alias spreadsheet mapping exact query text to
// SKU.
func ImportAliasesXLSX(path string) ([]internal.AliasEntry, error) {
	rows, cols, err := readSheet(path, aliasHeaderKeys)
	if err != nil {
		return nil, err
	}
	if _, ok := cols["alias"]; !ok {
		return nil, fmt.Errorf("%s: колонка с синонимом не найдена", path)
	}
	if _, ok := cols["sku"]; !ok {
		return nil, fmt.Errorf("%s: колонка с артикулом не найдена", path)
	}

	var out []internal.AliasEntry
	for _, row := range rows {
		alias := strings.TrimSpace(cell(row, cols, "alias"))
		sku := strings.TrimSpace(cell(row, cols, "sku"))
		if alias == "" || sku == "" {
			continue
		}
		out = append(out, internal.AliasEntry{Alias: alias, SKU: sku})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: нет синонимов", path)
	}
	return out, nil
}

func readSheet(path string, headerKeys map[string][]string) ([][]string, map[string]int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("открытие %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%s: нет листов", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("чтение %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("%s: нет данных после заголовка", path)
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		norm := util.NormalizeQuery(h)
		for field, keys := range headerKeys {
			if _, seen := cols[field]; seen {
				continue
			}
			for _, k := range keys {
				if strings.Contains(norm, k) {
					cols[field] = i
					break
				}
			}
		}
	}
	return rows[1:], cols, nil
}

func cell(row []string, cols map[string]int, field string) string {
	i, ok := cols[field]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseNum(s string, def float64) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func parseActive(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "да", "true", "yes", "активен", "в наличии":
		return true
	}
	return false
}

func defaultStr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func attrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
