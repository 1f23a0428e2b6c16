package supplier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a supplier, quote or observation is absent.
var ErrNotFound = errors.New("supplier: not found")

// Repo persists suppliers, their quotes and observations.
type Repo interface {
	Insert(ctx context.Context, s Supplier) error
	GetByID(ctx context.Context, id int64) (Supplier, error)
	GetByCNPJForQuotation(ctx context.Context, cnpj string, quotationID int64) (Supplier, error)
	GetByCNPJAndPassword(ctx context.Context, cnpj, password string) (Supplier, error)
	UpdateCredentials(ctx context.Context, id int64, password string, expiresAt time.Time, companyName string) error
	ListByQuotation(ctx context.Context, quotationID int64) ([]Supplier, error)
	Delete(ctx context.Context, id int64) error
	MarkSubmitted(ctx context.Context, id int64, at time.Time) error

	UpsertQuote(ctx context.Context, q Quote) error
	QuotesBySupplier(ctx context.Context, quotationID, supplierID int64) ([]Quote, error)
	UpsertObservation(ctx context.Context, o Observation) error
	ObservationsBySupplier(ctx context.Context, quotationID, supplierID int64) ([]Observation, error)
	ArchiveQuotes(ctx context.Context, quotationID, supplierID int64, historyIDs []int64) error
}

// PGRepo is the Postgres implementation of Repo.
type PGRepo struct {
	pool *pgxpool.Pool
}

func NewPGRepo(pool *pgxpool.Pool) *PGRepo {
	return &PGRepo{pool: pool}
}

const supplierColumns = `id, cnpj, company_name, temporary_password, password_expires_at, is_active, quotation_id, submitted_at, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.CNPJ, &s.CompanyName, &s.TemporaryPassword, &s.PasswordExpiresAt,
		&s.IsActive, &s.QuotationID, &s.SubmittedAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	if err != nil {
		return Supplier{}, fmt.Errorf("scan supplier: %w", err)
	}
	return s, nil
}

func (r *PGRepo) Insert(ctx context.Context, s Supplier) error {
	const sql = `
		INSERT INTO suppliers (id, cnpj, company_name, temporary_password, password_expires_at, is_active, quotation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, sql, s.ID, s.CNPJ, s.CompanyName, s.TemporaryPassword, s.PasswordExpiresAt, s.IsActive, s.QuotationID)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
}

func (r *PGRepo) GetByCNPJForQuotation(ctx context.Context, cnpj string, quotationID int64) (Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE cnpj = $1 AND quotation_id = $2`, cnpj, quotationID))
}

func (r *PGRepo) GetByCNPJAndPassword(ctx context.Context, cnpj, password string) (Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE cnpj = $1 AND temporary_password = $2 ORDER BY id DESC LIMIT 1`,
		cnpj, password))
}

func (r *PGRepo) UpdateCredentials(ctx context.Context, id int64, password string, expiresAt time.Time, companyName string) error {
	const sql = `
		UPDATE suppliers
		SET temporary_password = $2, password_expires_at = $3, company_name = $4,
		    updated_at = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, sql, id, password, expiresAt, companyName)
	if err != nil {
		return fmt.Errorf("update supplier %d credentials: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) ListByQuotation(ctx context.Context, quotationID int64) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE quotation_id = $1 ORDER BY id`, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list suppliers for quotation %d: %w", quotationID, err)
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes the supplier together with its quotes and observations.
func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete supplier %d: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM supplier_quotes WHERE supplier_id = $1`, id); err != nil {
		return fmt.Errorf("delete supplier %d quotes: %w", id, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM supplier_observations WHERE supplier_id = $1`, id); err != nil {
		return fmt.Errorf("delete supplier %d observations: %w", id, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM quote_history WHERE supplier_id = $1`, id); err != nil {
		return fmt.Errorf("delete supplier %d history: %w", id, err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete supplier %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) MarkSubmitted(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE suppliers SET submitted_at = $2, updated_at = now() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark supplier %d submitted: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertQuote writes the price for one (quotation, supplier, item) triple.
// Re-submissions overwrite the previous row: the latest write wins.
func (r *PGRepo) UpsertQuote(ctx context.Context, q Quote) error {
	const sql = `
		INSERT INTO supplier_quotes
			(id, quotation_id, supplier_id, quotation_item_id,
			 price_in_real, price_in_dollar, exchange_rate, ipi_percentage, icms_percentage,
			 final_price, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (quotation_id, supplier_id, quotation_item_id) DO UPDATE SET
			price_in_real   = EXCLUDED.price_in_real,
			price_in_dollar = EXCLUDED.price_in_dollar,
			exchange_rate   = EXCLUDED.exchange_rate,
			ipi_percentage  = EXCLUDED.ipi_percentage,
			icms_percentage = EXCLUDED.icms_percentage,
			final_price     = EXCLUDED.final_price,
			submitted_at    = now(),
			updated_at      = now()`
	_, err := r.pool.Exec(ctx, sql, q.ID, q.QuotationID, q.SupplierID, q.QuotationItemID,
		q.PriceInReal, q.PriceInDollar, q.ExchangeRate, q.IPIPercentage, q.ICMSPercentage, q.FinalPrice)
	if err != nil {
		return fmt.Errorf("upsert quote: %w", err)
	}
	return nil
}

func (r *PGRepo) QuotesBySupplier(ctx context.Context, quotationID, supplierID int64) ([]Quote, error) {
	const sql = `
		SELECT id, quotation_id, supplier_id, quotation_item_id,
		       price_in_real, price_in_dollar, exchange_rate, ipi_percentage, icms_percentage,
		       final_price, submitted_at
		FROM supplier_quotes
		WHERE quotation_id = $1 AND supplier_id = $2
		ORDER BY quotation_item_id`
	rows, err := r.pool.Query(ctx, sql, quotationID, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list quotes for supplier %d: %w", supplierID, err)
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.QuotationID, &q.SupplierID, &q.QuotationItemID,
			&q.PriceInReal, &q.PriceInDollar, &q.ExchangeRate, &q.IPIPercentage, &q.ICMSPercentage,
			&q.FinalPrice, &q.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpsertObservation(ctx context.Context, o Observation) error {
	const sql = `
		INSERT INTO supplier_observations (id, quotation_id, supplier_id, quotation_item_id, note)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (quotation_id, supplier_id, quotation_item_id) DO UPDATE SET
			note       = EXCLUDED.note,
			updated_at = now()`
	_, err := r.pool.Exec(ctx, sql, o.ID, o.QuotationID, o.SupplierID, o.QuotationItemID, o.Note)
	if err != nil {
		return fmt.Errorf("upsert observation: %w", err)
	}
	return nil
}

func (r *PGRepo) ObservationsBySupplier(ctx context.Context, quotationID, supplierID int64) ([]Observation, error) {
	const sql = `
		SELECT id, quotation_id, supplier_id, quotation_item_id, note
		FROM supplier_observations
		WHERE quotation_id = $1 AND supplier_id = $2
		ORDER BY quotation_item_id`
	rows, err := r.pool.Query(ctx, sql, quotationID, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list observations for supplier %d: %w", supplierID, err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.QuotationID, &o.SupplierID, &o.QuotationItemID, &o.Note); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ArchiveQuotes copies the supplier's current quotes into quote_history.
// historyIDs provides one pre-allocated id per copied row.
func (r *PGRepo) ArchiveQuotes(ctx context.Context, quotationID, supplierID int64, historyIDs []int64) error {
	quotes, err := r.QuotesBySupplier(ctx, quotationID, supplierID)
	if err != nil {
		return err
	}
	if len(quotes) > len(historyIDs) {
		return fmt.Errorf("archive quotes: need %d history ids, got %d", len(quotes), len(historyIDs))
	}

	batch := &pgx.Batch{}
	const sql = `
		INSERT INTO quote_history
			(id, quotation_id, supplier_id, quotation_item_id,
			 price_in_real, price_in_dollar, exchange_rate, ipi_percentage, icms_percentage, final_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for i, q := range quotes {
		batch.Queue(sql, historyIDs[i], q.QuotationID, q.SupplierID, q.QuotationItemID,
			q.PriceInReal, q.PriceInDollar, q.ExchangeRate, q.IPIPercentage, q.ICMSPercentage, q.FinalPrice)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range quotes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("archive quotes: %w", err)
		}
	}
	return nil
}
