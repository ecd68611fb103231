package returns

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

const returnColumns = `r.id, r.return_number, r.sale_id, r.sale_number, r.customer_id, r.customer_name,
	COALESCE(r.reason, ''), r.refund_method, r.refund_amount, r.created_at`

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Return, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.SaleID != nil {
		argCount++
		where += ` AND r.sale_id = $` + strconv.Itoa(argCount)
		args = append(args, *filter.SaleID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM returns r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count returns: %w", err)
	}

	query := `SELECT ` + returnColumns + ` FROM returns r` + where +
		` ORDER BY r.created_at DESC LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list returns: %w", err)
	}
	defer rows.Close()

	var returns []Return
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, 0, err
		}
		returns = append(returns, ret)
	}
	return returns, total, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Return, error) {
	ret, err := scanReturn(r.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM returns r WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Return{}, ErrNotFound
	}
	if err != nil {
		return Return{}, err
	}
	if err := r.loadDetails(ctx, &ret); err != nil {
		return Return{}, err
	}
	return ret, nil
}

func (r *PostgresRepository) loadDetails(ctx context.Context, ret *Return) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, product_name, quantity, unit_price, line_total
		 FROM return_items WHERE return_id = $1 ORDER BY id ASC`, ret.ID)
	if err != nil {
		return fmt.Errorf("load return items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it ReturnItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return err
		}
		ret.Items = append(ret.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var note CreditNote
	err = r.pool.QueryRow(ctx,
		`SELECT id, note_number, return_id, customer_id, amount, status, created_at
		 FROM credit_notes WHERE return_id = $1`, ret.ID,
	).Scan(&note.ID, &note.NoteNumber, &note.ReturnID, &note.CustomerID, &note.Amount, &note.Status, &note.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load credit note: %w", err)
	}
	ret.CreditNote = &note
	return nil
}

func (r *PostgresRepository) ListCreditNotes(ctx context.Context, customerID *int64) ([]CreditNote, error) {
	query := `SELECT id, note_number, return_id, customer_id, amount, status, created_at FROM credit_notes`
	args := []any{}
	if customerID != nil {
		query += ` WHERE customer_id = $1`
		args = append(args, *customerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credit notes: %w", err)
	}
	defer rows.Close()

	var notes []CreditNote
	for rows.Next() {
		var n CreditNote
		if err := rows.Scan(&n.ID, &n.NoteNumber, &n.ReturnID, &n.CustomerID, &n.Amount, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *PostgresRepository) LastDocNumber(ctx context.Context, prefix string, year int) (string, error) {
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)
	table, column := "returns", "return_number"
	if prefix == "CN" {
		table, column = "credit_notes", "note_number"
	}
	var doc string
	err := r.pool.QueryRow(ctx,
		`SELECT `+column+` FROM `+table+` WHERE `+column+` LIKE $1 ORDER BY id DESC LIMIT 1`, pattern,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return doc, err
}

func (t *txRepository) InsertReturn(ctx context.Context, ret Return) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO returns (return_number, sale_id, sale_number, customer_id, customer_name, reason, refund_method, refund_amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		 RETURNING id`,
		ret.ReturnNumber, ret.SaleID, ret.SaleNumber, ret.CustomerID, ret.CustomerName,
		ret.Reason, ret.RefundMethod, ret.RefundAmount, ret.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert return: %w", err)
	}
	return id, nil
}

func (t *txRepository) InsertItems(ctx context.Context, returnID int64, items []ReturnItem) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO return_items (return_id, product_id, product_name, quantity, unit_price, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			returnID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert return item: %w", err)
		}
	}
	return nil
}

func (t *txRepository) InsertCreditNote(ctx context.Context, note CreditNote) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO credit_notes (note_number, return_id, customer_id, amount, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		note.NoteNumber, note.ReturnID, note.CustomerID, note.Amount, note.Status, note.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert credit note: %w", err)
	}
	return id, nil
}

func (t *txRepository) GetReturnForUpdate(ctx context.Context, id int64) (Return, error) {
	ret, err := scanReturn(t.tx.QueryRow(ctx, `SELECT `+returnColumns+` FROM returns r WHERE r.id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Return{}, ErrNotFound
	}
	if err != nil {
		return Return{}, err
	}

	rows, err := t.tx.Query(ctx,
		`SELECT id, product_id, product_name, quantity, unit_price, line_total
		 FROM return_items WHERE return_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return Return{}, fmt.Errorf("load return items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it ReturnItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return Return{}, err
		}
		ret.Items = append(ret.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Return{}, err
	}

	var note CreditNote
	err = t.tx.QueryRow(ctx,
		`SELECT id, note_number, return_id, customer_id, amount, status, created_at
		 FROM credit_notes WHERE return_id = $1 FOR UPDATE`, id,
	).Scan(&note.ID, &note.NoteNumber, &note.ReturnID, &note.CustomerID, &note.Amount, &note.Status, &note.CreatedAt)
	if err == nil {
		ret.CreditNote = &note
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Return{}, fmt.Errorf("load credit note: %w", err)
	}
	return ret, nil
}

func (t *txRepository) UpdateReason(ctx context.Context, id int64, reason string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE returns SET reason = NULLIF($1, '') WHERE id = $2`, reason, id)
	if err != nil {
		return fmt.Errorf("update return reason: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteReturn(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM return_items WHERE return_id = $1`, id); err != nil {
		return fmt.Errorf("delete return items: %w", err)
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM returns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete return: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) VoidCreditNote(ctx context.Context, returnID int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE credit_notes SET status = $1 WHERE return_id = $2 AND status = $3`,
		CreditNoteVoided, returnID, CreditNoteActive,
	)
	if err != nil {
		return fmt.Errorf("void credit note: %w", err)
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
		 VALUES ($1, $2, $3, 'RETURNS', $4, NULLIF($5, ''), NOW())`,
		movementType, productID, qty, refID, note,
	)
	if err != nil {
		return fmt.Errorf("log movement: %w", err)
	}
	return nil
}

func scanReturn(row pgx.Row) (Return, error) {
	var ret Return
	err := row.Scan(
		&ret.ID, &ret.ReturnNumber, &ret.SaleID, &ret.SaleNumber, &ret.CustomerID, &ret.CustomerName,
		&ret.Reason, &ret.RefundMethod, &ret.RefundAmount, &ret.CreatedAt,
	)
	return ret, err
}
