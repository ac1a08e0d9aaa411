package catalog

import (
	"testing"

	"metiz/internal"
)

func TestIndexAliasLookup(t *testing.T) {
	items := []internal.CatalogItem{
		{SKU: "B-1", Name: "Болт М10х30", IsActive: true},
		{SKU: "B-2", Name: "Болт М12х40", IsActive: true},
	}
	aliases := []internal.AliasEntry{
		{Alias: "Болт десятка", SKU: "B-1"},
		{Alias: "болт на двенадцать", SKU: "B-2"},
		{Alias: "призрак", SKU: "NO-SUCH"},
	}
	ix := NewIndex(items, aliases)

	// lookup is performed on the normalized form
	if got := ix.AliasLookup("болт десятка"); len(got) != 1 || got[0].SKU != "B-1" {
		t.Errorf("AliasLookup = %+v", got)
	}
	if got := ix.AliasLookup("призрак"); got != nil {
		t.Errorf("синоним на отсутствующий SKU должен давать пусто, получено %+v", got)
	}
	if got := ix.AliasLookup("нет такого"); got != nil {
		t.Errorf("неизвестный синоним должен давать пусто, получено %+v", got)
	}
}

func TestIndexEmpty(t *testing.T) {
	if !NewIndex(nil, nil).Empty() {
		t.Error("пустой индекс должен сообщать Empty")
	}
	if NewIndex([]internal.CatalogItem{{SKU: "X"}}, nil).Empty() {
		t.Error("непустой индекс не должен сообщать Empty")
	}
}
