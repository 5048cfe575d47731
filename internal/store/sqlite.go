package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/logistix/vintedsync/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    name          TEXT NOT NULL,
    external_id   TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'online',
    selling_price REAL,
    sold          INTEGER NOT NULL DEFAULT 0,
    sold_at       TIMESTAMP,
    vinted_stats  TEXT NOT NULL DEFAULT '',
    enrichment    TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMP NOT NULL,
    updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_user ON products(user_id);
CREATE INDEX IF NOT EXISTS idx_products_external ON products(user_id, external_id);

CREATE TABLE IF NOT EXISTS market_analyses (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    search_text        TEXT NOT NULL,
    analysis_timestamp TIMESTAMP NOT NULL,
    analysis_data      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_search ON market_analyses(search_text, analysis_timestamp DESC);
`

// DB wraps the SQLite database and implements the repository interfaces.
type DB struct {
	db *sqlx.DB
}

var (
	_ ProductRepository  = (*DB)(nil)
	_ AnalysisRepository = (*DB)(nil)
)

// Open opens (creating if needed) the SQLite database at path and applies
// the schema.
func Open(path string) (*DB, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; one writer connection avoids
	// SQLITE_BUSY under concurrent request handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

type productRow struct {
	ID           string          `db:"id"`
	UserID       string          `db:"user_id"`
	Name         string          `db:"name"`
	ExternalID   string          `db:"external_id"`
	Status       string          `db:"status"`
	SellingPrice sql.NullFloat64 `db:"selling_price"`
	Sold         bool            `db:"sold"`
	SoldAt       sql.NullTime    `db:"sold_at"`
	VintedStats  string          `db:"vinted_stats"`
	Enrichment   string          `db:"enrichment"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (r *productRow) toModel() (*model.Product, error) {
	p := &model.Product{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		ExternalID: r.ExternalID,
		Status:     model.ProductStatus(r.Status),
		Sold:       r.Sold,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.SellingPrice.Valid {
		v := r.SellingPrice.Float64
		p.SellingPrice = &v
	}
	if r.SoldAt.Valid {
		t := r.SoldAt.Time
		p.SoldAt = &t
	}
	if r.VintedStats != "" {
		var stats model.VintedStats
		if err := json.Unmarshal([]byte(r.VintedStats), &stats); err != nil {
			return nil, fmt.Errorf("decode vinted_stats for %s: %w", r.ID, err)
		}
		p.VintedStats = &stats
	}
	if r.Enrichment != "" {
		var enr model.EnrichmentData
		if err := json.Unmarshal([]byte(r.Enrichment), &enr); err != nil {
			return nil, fmt.Errorf("decode enrichment for %s: %w", r.ID, err)
		}
		p.Enrichment = &enr
	}
	return p, nil
}

func toRow(p *model.Product) (*productRow, error) {
	r := &productRow{
		ID:         p.ID,
		UserID:     p.UserID,
		Name:       p.Name,
		ExternalID: p.ExternalID,
		Status:     string(p.Status),
		Sold:       p.Sold,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.SellingPrice != nil {
		r.SellingPrice = sql.NullFloat64{Float64: *p.SellingPrice, Valid: true}
	}
	if p.SoldAt != nil {
		r.SoldAt = sql.NullTime{Time: *p.SoldAt, Valid: true}
	}
	if p.VintedStats != nil {
		data, err := json.Marshal(p.VintedStats)
		if err != nil {
			return nil, fmt.Errorf("encode vinted_stats: %w", err)
		}
		r.VintedStats = string(data)
	}
	if p.Enrichment != nil {
		data, err := json.Marshal(p.Enrichment)
		if err != nil {
			return nil, fmt.Errorf("encode enrichment: %w", err)
		}
		r.Enrichment = string(data)
	}
	return r, nil
}

const productColumns = `
  id, user_id, name, external_id, status, selling_price, sold, sold_at,
  vinted_stats, enrichment, created_at, updated_at`

func (d *DB) GetByID(ctx context.Context, id, userID string) (*model.Product, error) {
	var row productRow
	err := d.db.GetContext(ctx, &row, `
  SELECT `+productColumns+`
  FROM products
  WHERE id = ? AND user_id = ?
`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return row.toModel()
}

func (d *DB) ListUnmapped(ctx context.Context, userID string) ([]*model.Product, error) {
	return d.list(ctx, `
  SELECT `+productColumns+`
  FROM products
  WHERE user_id = ? AND external_id = ''
  ORDER BY created_at
`, userID)
}

func (d *DB) ListLinked(ctx context.Context, userID string) ([]*model.Product, error) {
	return d.list(ctx, `
  SELECT `+productColumns+`
  FROM products
  WHERE user_id = ? AND external_id != ''
  ORDER BY created_at
`, userID)
}

func (d *DB) list(ctx context.Context, query, userID string) ([]*model.Product, error) {
	var rows []productRow
	if err := d.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products := make([]*model.Product, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (d *DB) Create(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = model.StatusOnline
	}

	row, err := toRow(p)
	if err != nil {
		return err
	}
	_, err = d.db.NamedExecContext(ctx, `
  INSERT INTO products
    (id, user_id, name, external_id, status, selling_price, sold, sold_at,
     vinted_stats, enrichment, created_at, updated_at)
  VALUES
    (:id, :user_id, :name, :external_id, :status, :selling_price, :sold, :sold_at,
     :vinted_stats, :enrichment, :created_at, :updated_at)
`, row)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (d *DB) Update(ctx context.Context, p *model.Product) error {
	p.UpdatedAt = time.Now().UTC()
	row, err := toRow(p)
	if err != nil {
		return err
	}
	res, err := d.db.NamedExecContext(ctx, `
  UPDATE products SET
    name = :name,
    external_id = :external_id,
    status = :status,
    selling_price = :selling_price,
    sold = :sold,
    sold_at = :sold_at,
    vinted_stats = :vinted_stats,
    enrichment = :enrichment,
    updated_at = :updated_at
  WHERE id = :id AND user_id = :user_id
`, row)
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) SaveAnalysis(ctx context.Context, searchText string, data json.RawMessage) error {
	_, err := d.db.ExecContext(ctx, `
  INSERT INTO market_analyses (search_text, analysis_timestamp, analysis_data)
  VALUES (?, ?, ?)
`, searchText, time.Now().UTC(), string(data))
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (d *DB) History(ctx context.Context, searchText string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []struct {
		Timestamp time.Time `db:"analysis_timestamp"`
		Data      string    `db:"analysis_data"`
	}
	err := d.db.SelectContext(ctx, &rows, `
  SELECT analysis_timestamp, analysis_data
  FROM market_analyses
  WHERE search_text = ?
  ORDER BY analysis_timestamp DESC
  LIMIT ?
`, searchText, limit)
	if err != nil {
		return nil, fmt.Errorf("load analysis history: %w", err)
	}

	records := make([]AnalysisRecord, len(rows))
	for i, r := range rows {
		records[i] = AnalysisRecord{
			SearchText: searchText,
			Timestamp:  r.Timestamp,
			Data:       json.RawMessage(r.Data),
		}
	}
	return records, nil
}
