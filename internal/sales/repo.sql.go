package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/platform/db"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

func (r *PostgresRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const saleColumns = `s.id, s.sale_number, s.customer_id, s.customer_name, s.payment_method, s.status,
	s.subtotal, s.discount, s.tax, s.grand_total, s.refunded_amount, s.created_at`

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Sale, int, Summary, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.From != nil {
		argCount++
		where += ` AND s.created_at >= $` + strconv.Itoa(argCount)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		argCount++
		where += ` AND s.created_at < $` + strconv.Itoa(argCount)
		args = append(args, *filter.To)
	}
	if filter.CustomerID != nil {
		argCount++
		where += ` AND s.customer_id = $` + strconv.Itoa(argCount)
		args = append(args, *filter.CustomerID)
	}
	if filter.Status != "" {
		argCount++
		where += ` AND s.status = $` + strconv.Itoa(argCount)
		args = append(args, filter.Status)
	}
	if filter.PaymentMethod != "" {
		argCount++
		where += ` AND s.payment_method = $` + strconv.Itoa(argCount)
		args = append(args, filter.PaymentMethod)
	}
	if filter.MinAmount != nil {
		argCount++
		where += ` AND s.grand_total >= $` + strconv.Itoa(argCount)
		args = append(args, *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		argCount++
		where += ` AND s.grand_total <= $` + strconv.Itoa(argCount)
		args = append(args, *filter.MaxAmount)
	}
	if filter.Search != "" {
		argCount++
		where += ` AND (s.sale_number ILIKE $` + strconv.Itoa(argCount) +
			` OR s.customer_name ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filter.Search+"%")
	}

	var summary Summary
	summaryQuery := `SELECT COUNT(*), COALESCE(SUM(s.grand_total), 0) FROM sales s` + where
	if err := r.pool.QueryRow(ctx, summaryQuery, args...).Scan(&summary.TotalSales, &summary.TotalRevenue); err != nil {
		return nil, 0, Summary{}, fmt.Errorf("summarize sales: %w", err)
	}
	if summary.TotalSales > 0 {
		summary.AverageSale = summary.TotalRevenue / float64(summary.TotalSales)
	}

	query := `SELECT ` + saleColumns + ` FROM sales s` + where +
		` ORDER BY s.created_at DESC LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, Summary{}, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, Summary{}, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, Summary{}, err
	}
	return sales, summary.TotalSales, summary, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Sale, error) {
	s, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales s WHERE s.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, err
	}
	items, err := r.loadItems(ctx, r.pool, id)
	if err != nil {
		return Sale{}, err
	}
	s.Items = items
	return s, nil
}

// LastDocNumber backs the sequencer seed after a cold start.
func (r *PostgresRepository) LastDocNumber(ctx context.Context, prefix string, year int) (string, error) {
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)
	var doc string
	err := r.pool.QueryRow(ctx,
		`SELECT sale_number FROM sales WHERE sale_number LIKE $1 ORDER BY id DESC LIMIT 1`, pattern,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return doc, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PostgresRepository) loadItems(ctx context.Context, q querier, saleID int64) ([]SaleItem, error) {
	rows, err := q.Query(ctx,
		`SELECT i.id, i.product_id, i.product_name, COALESCE(p.sku, ''), i.quantity, i.unit_price, i.discount, i.tax_rate, i.line_total
		 FROM sale_items i LEFT JOIN products p ON p.id = i.product_id
		 WHERE i.sale_id = $1 ORDER BY i.id ASC`, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	var items []SaleItem
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.SKU, &it.Quantity, &it.UnitPrice, &it.Discount, &it.TaxRate, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *txRepository) InsertSale(ctx context.Context, s Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO sales (sale_number, customer_id, customer_name, payment_method, status, subtotal, discount, tax, grand_total, refunded_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10)
		 RETURNING id`,
		s.SaleNumber, s.CustomerID, s.CustomerName, s.PaymentMethod, s.Status,
		s.Subtotal, s.Discount, s.Tax, s.GrandTotal, s.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert sale: %w", err)
	}
	return id, nil
}

func (t *txRepository) InsertItems(ctx context.Context, saleID int64, items []SaleItem) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, discount, tax_rate, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			saleID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Discount, it.TaxRate, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}
	return nil
}

func (t *txRepository) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	s, err := scanSale(t.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales s WHERE s.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, err
	}

	rows, err := t.tx.Query(ctx,
		`SELECT i.id, i.product_id, i.product_name, '', i.quantity, i.unit_price, i.discount, i.tax_rate, i.line_total
		 FROM sale_items i WHERE i.sale_id = $1 ORDER BY i.id ASC`, id)
	if err != nil {
		return Sale{}, fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.SKU, &it.Quantity, &it.UnitPrice, &it.Discount, &it.TaxRate, &it.LineTotal); err != nil {
			return Sale{}, err
		}
		s.Items = append(s.Items, it)
	}
	return s, rows.Err()
}

func (t *txRepository) UpdateStatus(ctx context.Context, id int64, status string, refundedAmount float64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE sales SET status = $1, refunded_amount = $2 WHERE id = $3`,
		status, refundedAmount, id,
	)
	if err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) LockStock(ctx context.Context, productID int64) (int, error) {
	var qty int
	err := t.tx.QueryRow(ctx, `SELECT qty FROM stock_levels WHERE product_id = $1 FOR UPDATE`, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lock stock: %w", err)
	}
	return qty, nil
}

func (t *txRepository) SetStock(ctx context.Context, productID int64, qty int) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO stock_levels (product_id, qty, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (product_id) DO UPDATE SET qty = EXCLUDED.qty, updated_at = NOW()`,
		productID, qty,
	)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	return nil
}

func (t *txRepository) LogMovement(ctx context.Context, movementType string, productID int64, qty int, refID, note string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO stock_movements (movement_type, product_id, qty, ref_module, ref_id, note, posted_at)
		 VALUES ($1, $2, $3, 'SALES', $4, NULLIF($5, ''), NOW())`,
		movementType, productID, qty, refID, note,
	)
	if err != nil {
		return fmt.Errorf("log movement: %w", err)
	}
	return nil
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(
		&s.ID, &s.SaleNumber, &s.CustomerID, &s.CustomerName, &s.PaymentMethod, &s.Status,
		&s.Subtotal, &s.Discount, &s.Tax, &s.GrandTotal, &s.RefundedAmount, &s.CreatedAt,
	)
	return s, err
}
