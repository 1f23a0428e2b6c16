package quotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a quotation or item does not exist.
var ErrNotFound = errors.New("quotation: not found")

// Update carries the mutable quotation fields. Nil fields are untouched.
type Update struct {
	Title       *string
	Description *string
	Status      *string
	ExpiresAt   *time.Time
}

// SummarySupplier is the supplier slice needed by the summary computation.
type SummarySupplier struct {
	ID          int64
	CompanyName string
	SubmittedAt *time.Time
}

// QuoteRow is one stored supplier quote used by the summary computation.
type QuoteRow struct {
	SupplierID      int64
	QuotationItemID int64
	FinalPrice      float64
}

// ObservationRow is one supplier note attached to an item.
type ObservationRow struct {
	SupplierID      int64
	QuotationItemID int64
	Note            string
}

// Repo persists quotations and their items.
type Repo interface {
	Insert(ctx context.Context, q Quotation) error
	List(ctx context.Context) ([]Quotation, error)
	Get(ctx context.Context, id int64) (Quotation, error)
	Update(ctx context.Context, id int64, upd Update) error
	DeleteCascade(ctx context.Context, id int64) error

	InsertItems(ctx context.Context, items []Item) error
	Items(ctx context.Context, quotationID int64) ([]Item, error)
	GetItem(ctx context.Context, itemID int64) (Item, error)
	UpdateItemTarget(ctx context.Context, itemID int64, target float64, itemName *string) error
	UpdateItemQuantities(ctx context.Context, itemID int64, quantity, quantityToBuy *int) error

	Suppliers(ctx context.Context, quotationID int64) ([]SummarySupplier, error)
	Quotes(ctx context.Context, quotationID int64) ([]QuoteRow, error)
	Observations(ctx context.Context, quotationID int64) ([]ObservationRow, error)

	CloseExpired(ctx context.Context, now time.Time) ([]int64, error)
}

// PGRepo is the Postgres implementation of Repo.
type PGRepo struct {
	pool *pgxpool.Pool
}

func NewPGRepo(pool *pgxpool.Pool) *PGRepo {
	return &PGRepo{pool: pool}
}

func (r *PGRepo) Insert(ctx context.Context, q Quotation) error {
	const sql = `
		INSERT INTO quotations (id, title, description, status, expires_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.pool.Exec(ctx, sql, q.ID, q.Title, q.Description, q.Status, q.ExpiresAt); err != nil {
		return fmt.Errorf("insert quotation: %w", err)
	}
	return nil
}

func (r *PGRepo) List(ctx context.Context) ([]Quotation, error) {
	const sql = `
		SELECT id, title, description, status, expires_at, created_at, updated_at
		FROM quotations
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()

	var out []Quotation
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Status, &q.ExpiresAt, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan quotation: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *PGRepo) Get(ctx context.Context, id int64) (Quotation, error) {
	const sql = `
		SELECT id, title, description, status, expires_at, created_at, updated_at
		FROM quotations
		WHERE id = $1`
	var q Quotation
	err := r.pool.QueryRow(ctx, sql, id).Scan(&q.ID, &q.Title, &q.Description, &q.Status, &q.ExpiresAt, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, ErrNotFound
	}
	if err != nil {
		return Quotation{}, fmt.Errorf("get quotation %d: %w", id, err)
	}
	return q, nil
}

func (r *PGRepo) Update(ctx context.Context, id int64, upd Update) error {
	const sql = `
		UPDATE quotations
		SET title       = COALESCE($2, title),
		    description = COALESCE($3, description),
		    status      = COALESCE($4, status),
		    expires_at  = COALESCE($5, expires_at),
		    updated_at  = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, sql, id, upd.Title, upd.Description, upd.Status, upd.ExpiresAt)
	if err != nil {
		return fmt.Errorf("update quotation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCascade removes a quotation together with its items, suppliers,
// quotes, observations and archived history.
func (r *PGRepo) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete quotation %d: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	statements := []string{
		`DELETE FROM supplier_quotes WHERE quotation_id = $1`,
		`DELETE FROM supplier_observations WHERE quotation_id = $1`,
		`DELETE FROM quote_history WHERE quotation_id = $1`,
		`DELETE FROM suppliers WHERE quotation_id = $1`,
		`DELETE FROM quotation_items WHERE quotation_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete quotation %d children: %w", id, err)
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quotation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) InsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const sql = `
		INSERT INTO quotation_items (id, quotation_id, item_name, item_type, quantity, quantity_to_buy, target_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, it := range items {
		batch.Queue(sql, it.ID, it.QuotationID, it.ItemName, it.ItemType, it.Quantity, it.QuantityToBuy, it.TargetPrice)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert quotation items: %w", err)
		}
	}
	return nil
}

func (r *PGRepo) Items(ctx context.Context, quotationID int64) ([]Item, error) {
	const sql = `
		SELECT id, quotation_id, item_name, item_type, quantity, quantity_to_buy, target_price, created_at, updated_at
		FROM quotation_items
		WHERE quotation_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, sql, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list items for quotation %d: %w", quotationID, err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.ItemName, &it.ItemType, &it.Quantity, &it.QuantityToBuy, &it.TargetPrice, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetItem(ctx context.Context, itemID int64) (Item, error) {
	const sql = `
		SELECT id, quotation_id, item_name, item_type, quantity, quantity_to_buy, target_price, created_at, updated_at
		FROM quotation_items
		WHERE id = $1`
	var it Item
	err := r.pool.QueryRow(ctx, sql, itemID).Scan(&it.ID, &it.QuotationID, &it.ItemName, &it.ItemType, &it.Quantity, &it.QuantityToBuy, &it.TargetPrice, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("get item %d: %w", itemID, err)
	}
	return it, nil
}

func (r *PGRepo) UpdateItemTarget(ctx context.Context, itemID int64, target float64, itemName *string) error {
	const sql = `
		UPDATE quotation_items
		SET target_price = $2,
		    item_name    = COALESCE($3, item_name),
		    updated_at   = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, sql, itemID, target, itemName)
	if err != nil {
		return fmt.Errorf("update item %d target: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) UpdateItemQuantities(ctx context.Context, itemID int64, quantity, quantityToBuy *int) error {
	const sql = `
		UPDATE quotation_items
		SET quantity        = COALESCE($2, quantity),
		    quantity_to_buy = COALESCE($3, quantity_to_buy),
		    updated_at      = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, sql, itemID, quantity, quantityToBuy)
	if err != nil {
		return fmt.Errorf("update item %d quantities: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Suppliers(ctx context.Context, quotationID int64) ([]SummarySupplier, error) {
	const sql = `
		SELECT id, company_name, submitted_at
		FROM suppliers
		WHERE quotation_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, sql, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list suppliers for quotation %d: %w", quotationID, err)
	}
	defer rows.Close()

	var out []SummarySupplier
	for rows.Next() {
		var s SummarySupplier
		if err := rows.Scan(&s.ID, &s.CompanyName, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) Quotes(ctx context.Context, quotationID int64) ([]QuoteRow, error) {
	const sql = `
		SELECT supplier_id, quotation_item_id, final_price
		FROM supplier_quotes
		WHERE quotation_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, sql, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list quotes for quotation %d: %w", quotationID, err)
	}
	defer rows.Close()

	var out []QuoteRow
	for rows.Next() {
		var q QuoteRow
		if err := rows.Scan(&q.SupplierID, &q.QuotationItemID, &q.FinalPrice); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *PGRepo) Observations(ctx context.Context, quotationID int64) ([]ObservationRow, error) {
	const sql = `
		SELECT supplier_id, quotation_item_id, note
		FROM supplier_observations
		WHERE quotation_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, sql, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list observations for quotation %d: %w", quotationID, err)
	}
	defer rows.Close()

	var out []ObservationRow
	for rows.Next() {
		var o ObservationRow
		if err := rows.Scan(&o.SupplierID, &o.QuotationItemID, &o.Note); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CloseExpired flips active quotations whose deadline passed to closed and
// returns the affected ids.
func (r *PGRepo) CloseExpired(ctx context.Context, now time.Time) ([]int64, error) {
	const sql = `
		UPDATE quotations
		SET status = $1, updated_at = now()
		WHERE status = $2 AND expires_at < $3
		RETURNING id`
	rows, err := r.pool.Query(ctx, sql, StatusClosed, StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("close expired quotations: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan closed quotation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
