package reports

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/inventory"
)

type memoryRepo struct {
	summary   SalesSummary
	top       []TopProduct
	loadCalls int
}

func (r *memoryRepo) SummarizeSales(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	r.loadCalls++
	s := r.summary
	s.From, s.To = from, to
	return s, nil
}

func (r *memoryRepo) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	r.loadCalls++
	if limit < len(r.top) {
		return r.top[:limit], nil
	}
	return r.top, nil
}

type memoryInventory struct {
	levels []inventory.Level
}

func (m *memoryInventory) Levels(ctx context.Context, filter inventory.LevelFilter) ([]inventory.Level, error) {
	return m.levels, nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestSalesSummaryCached(t *testing.T) {
	repo := &memoryRepo{summary: SalesSummary{TotalSales: 12, TotalRevenue: 4800, AverageSale: 400}}
	svc := NewService(repo, &memoryInventory{}, newTestCache(t))
	ctx := context.Background()
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	first, err := svc.SalesSummary(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, 12, first.TotalSales)
	require.Equal(t, 1, repo.loadCalls)

	// Second read comes from the cache.
	second, err := svc.SalesSummary(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, first.TotalRevenue, second.TotalRevenue)
	require.Equal(t, 1, repo.loadCalls)
}

func TestInvalidateBumpsVersion(t *testing.T) {
	repo := &memoryRepo{summary: SalesSummary{TotalSales: 3}}
	svc := NewService(repo, &memoryInventory{}, newTestCache(t))
	ctx := context.Background()
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	_, err := svc.SalesSummary(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.loadCalls)

	require.NoError(t, svc.Invalidate(ctx))

	_, err = svc.SalesSummary(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.loadCalls)
}

func TestNilCacheDegradesToLoader(t *testing.T) {
	repo := &memoryRepo{summary: SalesSummary{TotalSales: 5}}
	svc := NewService(repo, &memoryInventory{}, nil)

	summary, err := svc.SalesSummary(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Equal(t, 5, summary.TotalSales)
}

func TestLowStockFiltersHealthyLevels(t *testing.T) {
	inv := &memoryInventory{levels: []inventory.Level{
		{ProductID: 1, Name: "Masala Chai", Qty: 40, MinStockLevel: 5, Status: inventory.StatusInStock},
		{ProductID: 2, Name: "Samosa", Qty: 2, MinStockLevel: 5, Status: inventory.StatusLowStock},
		{ProductID: 3, Name: "Filter Coffee", Qty: 0, MinStockLevel: 5, Status: inventory.StatusOutOfStock},
	}}
	svc := NewService(&memoryRepo{}, inv, nil)

	flagged, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, flagged, 2)
	require.Equal(t, int64(2), flagged[0].ProductID)
	require.Equal(t, int64(3), flagged[1].ProductID)
}

func TestWriteSalesSummaryCSV(t *testing.T) {
	summary := SalesSummary{
		From:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		To:           time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		TotalSales:   2,
		TotalRevenue: 550,
		AverageSale:  275,
		Payments:     []PaymentBreakdown{{Method: "cash", Count: 2, Amount: 550}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSalesSummaryCSV(&buf, summary))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, "Metric,Value", lines[0])
	require.Contains(t, lines, "Total Revenue,550.00")
	require.Contains(t, lines, "Payment: cash,550.00")
}

func TestWriteTopProductsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTopProductsCSV(&buf, []TopProduct{
		{Name: "Masala Chai", SKU: "CHAI-001", QuantitySold: 30, Revenue: 1200},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, "Product,SKU,Quantity Sold,Revenue", lines[0])
	require.Equal(t, "Masala Chai,CHAI-001,30,1200.00", lines[1])
}
