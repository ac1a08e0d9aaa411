package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"metiz/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "metiz.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestItemsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	price := 12.5
	diameter := "M10"
	items := []internal.CatalogItem{
		{SKU: "B-1", Name: "Болт М10х30", PackSize: 100, Unit: "шт", Price: &price, IsActive: true,
			Attrs: internal.ItemAttributes{Diameter: &diameter}},
		{SKU: "B-2", Name: "Болт М12х40", PackSize: 50, Unit: "шт", IsActive: false},
	}
	if err := db.UpsertItems(ctx, items); err != nil {
		t.Fatal(err)
	}

	active, err := db.ActiveItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("активных позиций %d, want 1", len(active))
	}
	got := active[0]
	if got.SKU != "B-1" || got.Name != "Болт М10х30" || got.PackSize != 100 {
		t.Errorf("позиция %+v", got)
	}
	if got.Price == nil || *got.Price != 12.5 {
		t.Errorf("price = %v", got.Price)
	}
	if got.Attrs.Diameter == nil || *got.Attrs.Diameter != "M10" {
		t.Errorf("attrs = %+v", got.Attrs)
	}
}

func TestUpsertItemsOverwrites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := []internal.CatalogItem{{SKU: "B-1", Name: "Старое имя", PackSize: 1, Unit: "шт", IsActive: true}}
	if err := db.UpsertItems(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := []internal.CatalogItem{{SKU: "B-1", Name: "Новое имя", PackSize: 200, Unit: "уп", IsActive: true}}
	if err := db.UpsertItems(ctx, second); err != nil {
		t.Fatal(err)
	}

	it, err := db.ItemBySKU(ctx, "B-1")
	if err != nil {
		t.Fatal(err)
	}
	if it.Name != "Новое имя" || it.PackSize != 200 || it.Unit != "уп" {
		t.Errorf("позиция после повторной загрузки %+v", it)
	}
}

func TestItemBySKUMissing(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.ItemBySKU(context.Background(), "NO-SUCH"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestAliasesRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.UpsertItems(ctx, []internal.CatalogItem{{SKU: "B-1", Name: "Болт", PackSize: 1, Unit: "шт", IsActive: true}}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertAliases(ctx, []internal.AliasEntry{{Alias: "болт десятка", SKU: "B-1"}}); err != nil {
		t.Fatal(err)
	}

	aliases, err := db.Aliases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 1 || aliases[0].SKU != "B-1" {
		t.Errorf("aliases = %+v", aliases)
	}
}

func TestRequestLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.SaveRequest(ctx, "trace-1", "text", "болт м10х30")
	if err != nil {
		t.Fatal(err)
	}

	results := []internal.RankedResult{
		{
			Line:               internal.OrderLine{Position: 1, RawText: "болт м10х30"},
			SearchQuery:        "болт m10x30",
			Chosen:             &internal.Candidate{SKU: "B-1"},
			ProbabilityPercent: 90,
			MatchReason:        "совпадение по размеру",
			Status:             internal.StatusApproved,
		},
		{
			Line:               internal.OrderLine{Position: 2, RawText: "нечто"},
			SearchQuery:        "нечто",
			ProbabilityPercent: 0,
			MatchReason:        "не найдено в каталоге",
			Status:             internal.StatusNeedsClarification,
		},
	}
	if err := db.SaveResults(ctx, id, results); err != nil {
		t.Fatal(err)
	}

	reqs, err := db.Requests(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 1 {
		t.Fatalf("запросов %d", len(reqs))
	}
	if reqs[0].Status != "done" {
		t.Errorf("status = %q, want done", reqs[0].Status)
	}
}
