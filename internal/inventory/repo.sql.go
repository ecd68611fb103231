package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	GetLevelForUpdate(ctx context.Context, productID int64) (int, error)
	UpsertLevel(ctx context.Context, productID int64, qty int) error
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ListLevels joins stock levels with catalog metadata.
func (r *Repository) ListLevels(ctx context.Context, filter LevelFilter) ([]Level, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT p.id, p.sku, p.name, COALESCE(l.qty, 0), p.min_stock_level, COALESCE(l.updated_at, p.updated_at)
FROM products p
LEFT JOIN stock_levels l ON l.product_id = p.id
WHERE p.is_active AND ($1 = '' OR p.name ILIKE '%' || $1 || '%' OR p.sku ILIKE '%' || $1 || '%')
ORDER BY p.name ASC
LIMIT $2`
	rows, err := r.pool.Query(ctx, query, filter.Search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := []Level{}
	for rows.Next() {
		var level Level
		if err := rows.Scan(&level.ProductID, &level.SKU, &level.Name, &level.Qty, &level.MinStockLevel, &level.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

// ListMovements returns movement history, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.ProductID != 0 {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argPos))
		args = append(args, filter.ProductID)
		argPos++
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("posted_at >= $%d", argPos))
		args = append(args, filter.From)
		argPos++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("posted_at <= $%d", argPos))
		args = append(args, filter.To)
		argPos++
	}

	query := "SELECT id, movement_type, product_id, qty, ref_module, ref_id, note, posted_at FROM stock_movements"
	if len(conditions) > 0 {
		query += " WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			query += " AND " + conditions[i]
		}
	}
	query += fmt.Sprintf(" ORDER BY posted_at DESC, id DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.Type, &m.ProductID, &m.Qty, &m.RefModule, &m.RefID, &m.Note, &m.PostedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *txRepository) GetLevelForUpdate(ctx context.Context, productID int64) (int, error) {
	var qty int
	err := r.tx.QueryRow(ctx, `SELECT qty FROM stock_levels WHERE product_id=$1 FOR UPDATE`, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return qty, nil
}

func (r *txRepository) UpsertLevel(ctx context.Context, productID int64, qty int) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_levels (product_id, qty, updated_at)
VALUES ($1,$2,NOW())
ON CONFLICT (product_id) DO UPDATE SET qty=EXCLUDED.qty, updated_at=NOW()`, productID, qty)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (movement_type, product_id, qty, ref_module, ref_id, note, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`, string(m.Type), m.ProductID, m.Qty, m.RefModule, m.RefID, m.Note, m.PostedAt).Scan(&id)
	return id, err
}
