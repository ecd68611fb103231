package purchases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

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

const purchaseColumns = `p.id, p.bill_number, p.supplier_name, COALESCE(p.supplier_contact, ''), p.status,
	p.subtotal, p.tax, p.grand_total, p.created_at, p.received_at`

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Purchase, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.From != nil {
		argCount++
		where += ` AND p.created_at >= $` + strconv.Itoa(argCount)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		argCount++
		where += ` AND p.created_at < $` + strconv.Itoa(argCount)
		args = append(args, *filter.To)
	}
	if filter.Status != "" {
		argCount++
		where += ` AND p.status = $` + strconv.Itoa(argCount)
		args = append(args, filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	query := `SELECT ` + purchaseColumns + ` FROM purchases p` + where +
		` ORDER BY p.created_at DESC LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, p)
	}
	return purchases, total, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Purchase, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases p WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrNotFound
	}
	if err != nil {
		return Purchase{}, err
	}
	items, err := loadItems(ctx, r.pool, id)
	if err != nil {
		return Purchase{}, err
	}
	p.Items = items
	return p, nil
}

func (r *PostgresRepository) LastDocNumber(ctx context.Context, prefix string, year int) (string, error) {
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)
	var doc string
	err := r.pool.QueryRow(ctx,
		`SELECT bill_number FROM purchases WHERE bill_number LIKE $1 ORDER BY id DESC LIMIT 1`, pattern,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return doc, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, purchaseID int64) ([]PurchaseItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, product_id, product_name, quantity, unit_cost, line_total
		 FROM purchase_items WHERE purchase_id = $1 ORDER BY id ASC`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("load purchase items: %w", err)
	}
	defer rows.Close()

	var items []PurchaseItem
	for rows.Next() {
		var it PurchaseItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitCost, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *txRepository) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO purchases (bill_number, supplier_name, supplier_contact, status, subtotal, tax, grand_total, created_at, received_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		p.BillNumber, p.SupplierName, p.SupplierContact, p.Status,
		p.Subtotal, p.Tax, p.GrandTotal, p.CreatedAt, p.ReceivedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert purchase: %w", err)
	}
	return id, nil
}

func (t *txRepository) InsertItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO purchase_items (purchase_id, product_id, product_name, quantity, unit_cost, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			purchaseID, it.ProductID, it.ProductName, it.Quantity, it.UnitCost, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert purchase item: %w", err)
		}
	}
	return nil
}

func (t *txRepository) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	p, err := scanPurchase(t.tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases p WHERE p.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrNotFound
	}
	if err != nil {
		return Purchase{}, err
	}
	items, err := loadItems(ctx, t.tx, id)
	if err != nil {
		return Purchase{}, err
	}
	p.Items = items
	return p, nil
}

func (t *txRepository) MarkReceived(ctx context.Context, id int64, receivedAt time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE purchases SET status = $1, received_at = $2 WHERE id = $3`,
		StatusReceived, receivedAt, id,
	)
	if err != nil {
		return fmt.Errorf("mark received: %w", err)
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

func (t *txRepository) LogMovement(ctx context.Context, productID int64, qty int, refID, note string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO stock_movements (movement_type, product_id, qty, ref_module, ref_id, note, posted_at)
		 VALUES ('IN', $1, $2, 'PURCHASES', $3, NULLIF($4, ''), NOW())`,
		productID, qty, refID, note,
	)
	if err != nil {
		return fmt.Errorf("log movement: %w", err)
	}
	return nil
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(
		&p.ID, &p.BillNumber, &p.SupplierName, &p.SupplierContact, &p.Status,
		&p.Subtotal, &p.Tax, &p.GrandTotal, &p.CreatedAt, &p.ReceivedAt,
	)
	return p, err
}
