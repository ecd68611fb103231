package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Voided sales never count toward reporting figures.

func (r *PostgresRepository) SummarizeSales(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	summary := SalesSummary{From: from, To: to}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(grand_total), 0), COALESCE(SUM(tax), 0), COALESCE(SUM(discount), 0)
		 FROM sales
		 WHERE created_at >= $1 AND created_at < $2 AND status <> 'voided'`,
		from, to,
	).Scan(&summary.TotalSales, &summary.TotalRevenue, &summary.TotalTax, &summary.TotalDiscount)
	if err != nil {
		return SalesSummary{}, fmt.Errorf("summarize sales: %w", err)
	}
	if summary.TotalSales > 0 {
		summary.AverageSale = summary.TotalRevenue / float64(summary.TotalSales)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT payment_method, COUNT(*), COALESCE(SUM(grand_total), 0)
		 FROM sales
		 WHERE created_at >= $1 AND created_at < $2 AND status <> 'voided'
		 GROUP BY payment_method
		 ORDER BY SUM(grand_total) DESC`,
		from, to,
	)
	if err != nil {
		return SalesSummary{}, fmt.Errorf("payment breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pb PaymentBreakdown
		if err := rows.Scan(&pb.Method, &pb.Count, &pb.Amount); err != nil {
			return SalesSummary{}, err
		}
		summary.Payments = append(summary.Payments, pb)
	}
	return summary, rows.Err()
}

func (r *PostgresRepository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.product_id, i.product_name, COALESCE(p.sku, ''), SUM(i.quantity), SUM(i.line_total)
		 FROM sale_items i
		 JOIN sales s ON s.id = i.sale_id
		 LEFT JOIN products p ON p.id = i.product_id
		 WHERE s.created_at >= $1 AND s.created_at < $2 AND s.status <> 'voided'
		 GROUP BY i.product_id, i.product_name, p.sku
		 ORDER BY SUM(i.quantity) DESC
		 LIMIT $3`,
		from, to, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var products []TopProduct
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.SKU, &tp.QuantitySold, &tp.Revenue); err != nil {
			return nil, err
		}
		products = append(products, tp)
	}
	return products, rows.Err()
}
