// Package catalog provides the in-process catalog index used by the
// matcher, the XLSX import for catalog and alias tables, and the external
// search fallback client.
package catalog

import (
	"context"
	"fmt"

	"metiz/internal"
	"metiz/internal/storage"
	"metiz/internal/util"
)

// Index is a read-only in-memory view of the catalog plus the alias table,
// keyed for the two lookups the matcher needs: exact normalized alias and
// full scan over active items.
type Index struct {
	items   []internal.CatalogItem
	bySKU   map[string]internal.CatalogItem
	aliases map[string][]string
}

func NewIndex(items []internal.CatalogItem, aliases []internal.AliasEntry) *Index {
	ix := &Index{
		items:   items,
		bySKU:   make(map[string]internal.CatalogItem, len(items)),
		aliases: make(map[string][]string, len(aliases)),
	}
	for _, it := range items {
		ix.bySKU[it.SKU] = it
	}
	for _, a := range aliases {
		key := util.NormalizeQuery(a.Alias)
		if key == "" {
			continue
		}
		ix.aliases[key] = append(ix.aliases[key], a.SKU)
	}
	return ix
}

// Load builds the index from the database.
func Load(ctx context.Context, db *storage.DB) (*Index, error) {
	items, err := db.ActiveItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("чтение каталога: %w", err)
	}
	aliases, err := db.Aliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("чтение синонимов: %w", err)
	}
	return NewIndex(items, aliases), nil
}

func (ix *Index) Empty() bool { return len(ix.items) == 0 }

func (ix *Index) Items() []internal.CatalogItem { return ix.items }

// AliasLookup resolves an already-normalized query to catalog items through
// the exact alias table. Unknown aliases and aliases pointing at inactive
// SKUs yield nothing.
func (ix *Index) AliasLookup(normQuery string) []internal.CatalogItem {
	var out []internal.CatalogItem
	for _, sku := range ix.aliases[normQuery] {
		if it, ok := ix.bySKU[sku]; ok {
			out = append(out, it)
		}
	}
	return out
}
