// Package storage keeps the catalog, alias table and processed requests in
// a local SQLite database. The matching core only reads; writes belong to
// the import commands and the request logger.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"metiz/internal"
)

type DB struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS items (
	sku        TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	pack_size  REAL NOT NULL DEFAULT 1,
	unit       TEXT NOT NULL DEFAULT 'шт',
	price      REAL,
	is_active  INTEGER NOT NULL DEFAULT 1,
	attrs_json TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS aliases (
	alias TEXT PRIMARY KEY,
	sku   TEXT NOT NULL REFERENCES items(sku)
);
CREATE TABLE IF NOT EXISTS requests (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id   TEXT NOT NULL UNIQUE,
	source     TEXT NOT NULL,
	raw_text   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'new',
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS request_lines (
	request_id   INTEGER NOT NULL REFERENCES requests(id),
	position     INTEGER NOT NULL,
	raw_text     TEXT NOT NULL,
	search_query TEXT NOT NULL,
	sku          TEXT NOT NULL,
	probability  INTEGER NOT NULL,
	status       TEXT NOT NULL,
	match_reason TEXT NOT NULL,
	PRIMARY KEY (request_id, position)
);
CREATE INDEX IF NOT EXISTS idx_items_active ON items(is_active);
`

// Open opens (creating if needed) the database at path and applies the
// schema. WAL keeps concurrent read paths cheap.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("открытие базы: %w", err)
	}
	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("схема: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error { return d.conn.Close() }

// UpsertItems writes catalog rows, replacing existing SKUs.
func (d *DB) UpsertItems(ctx context.Context, items []internal.CatalogItem) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (sku, name, pack_size, unit, price, is_active, attrs_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
			name = excluded.name,
			pack_size = excluded.pack_size,
			unit = excluded.unit,
			price = excluded.price,
			is_active = excluded.is_active,
			attrs_json = excluded.attrs_json`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		attrs, err := json.Marshal(it.Attrs)
		if err != nil {
			return fmt.Errorf("атрибуты %s: %w", it.SKU, err)
		}
		if _, err := stmt.ExecContext(ctx, it.SKU, it.Name, it.PackSize, it.Unit, it.Price, boolInt(it.IsActive), string(attrs)); err != nil {
			return fmt.Errorf("запись %s: %w", it.SKU, err)
		}
	}
	return tx.Commit()
}

// ActiveItems loads every active catalog row for in-process matching.
func (d *DB) ActiveItems(ctx context.Context) ([]internal.CatalogItem, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT sku, name, pack_size, unit, price, attrs_json
		FROM items WHERE is_active = 1 ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CatalogItem
	for rows.Next() {
		var it internal.CatalogItem
		var price sql.NullFloat64
		var attrs string
		if err := rows.Scan(&it.SKU, &it.Name, &it.PackSize, &it.Unit, &price, &attrs); err != nil {
			return nil, err
		}
		if price.Valid {
			it.Price = &price.Float64
		}
		it.IsActive = true
		it.RawJSON = attrs
		if err := json.Unmarshal([]byte(attrs), &it.Attrs); err != nil {
			return nil, fmt.Errorf("атрибуты %s: %w", it.SKU, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpsertAliases writes exact-text alias mappings.
func (d *DB) UpsertAliases(ctx context.Context, aliases []internal.AliasEntry) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO aliases (alias, sku) VALUES (?, ?)
		ON CONFLICT(alias) DO UPDATE SET sku = excluded.sku`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range aliases {
		if _, err := stmt.ExecContext(ctx, a.Alias, a.SKU); err != nil {
			return fmt.Errorf("синоним %q: %w", a.Alias, err)
		}
	}
	return tx.Commit()
}

// Aliases loads the full alias table.
func (d *DB) Aliases(ctx context.Context) ([]internal.AliasEntry, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT alias, sku FROM aliases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.AliasEntry
	for rows.Next() {
		var a internal.AliasEntry
		if err := rows.Scan(&a.Alias, &a.SKU); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ItemBySKU fetches one catalog row; sql.ErrNoRows when absent.
func (d *DB) ItemBySKU(ctx context.Context, sku string) (internal.CatalogItem, error) {
	var it internal.CatalogItem
	var price sql.NullFloat64
	var active int
	var attrs string
	err := d.conn.QueryRowContext(ctx, `
		SELECT sku, name, pack_size, unit, price, is_active, attrs_json
		FROM items WHERE sku = ?`, sku).
		Scan(&it.SKU, &it.Name, &it.PackSize, &it.Unit, &price, &active, &attrs)
	if err != nil {
		return internal.CatalogItem{}, err
	}
	if price.Valid {
		it.Price = &price.Float64
	}
	it.IsActive = active == 1
	it.RawJSON = attrs
	if err := json.Unmarshal([]byte(attrs), &it.Attrs); err != nil {
		return internal.CatalogItem{}, err
	}
	return it, nil
}

// SaveRequest stores a new processing request and returns its row id.
func (d *DB) SaveRequest(ctx context.Context, traceID, source, rawText string) (int64, error) {
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO requests (trace_id, source, raw_text) VALUES (?, ?, ?)`,
		traceID, source, rawText)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SaveResults stores the per-line outcome of a processed request and marks
// the request done.
func (d *DB) SaveResults(ctx context.Context, requestID int64, results []internal.RankedResult) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO request_lines (request_id, position, raw_text, search_query, sku, probability, status, match_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id, position) DO UPDATE SET
			sku = excluded.sku,
			probability = excluded.probability,
			status = excluded.status,
			match_reason = excluded.match_reason`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		sku := internal.NotFoundSKU
		if r.Chosen != nil {
			sku = r.Chosen.SKU
		}
		if _, err := stmt.ExecContext(ctx, requestID, r.Line.Position, r.Line.RawText,
			r.SearchQuery, sku, r.ProbabilityPercent, string(r.Status), r.MatchReason); err != nil {
			return fmt.Errorf("строка %d: %w", r.Line.Position, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE requests SET status = 'done' WHERE id = ?`, requestID); err != nil {
		return err
	}
	return tx.Commit()
}

// Requests returns recent requests, newest first.
func (d *DB) Requests(ctx context.Context, limit int) ([]internal.RequestRow, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, trace_id, source, raw_text, status, created_at
		FROM requests ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RequestRow
	for rows.Next() {
		var r internal.RequestRow
		if err := rows.Scan(&r.ID, &r.TraceID, &r.Source, &r.RawText, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
