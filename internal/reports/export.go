package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/tillpoint/tillpoint/internal/inventory"
)

// WriteSalesSummaryCSV serialises a period summary to CSV.
func WriteSalesSummaryCSV(w io.Writer, summary SalesSummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"From", summary.From.Format("2006-01-02")},
		{"To", summary.To.Format("2006-01-02")},
		{"Total Sales", strconv.Itoa(summary.TotalSales)},
		{"Total Revenue", formatFloat(summary.TotalRevenue)},
		{"Total Tax", formatFloat(summary.TotalTax)},
		{"Total Discount", formatFloat(summary.TotalDiscount)},
		{"Average Sale", formatFloat(summary.AverageSale)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	for _, pb := range summary.Payments {
		if err := writer.Write([]string{"Payment: " + pb.Method, formatFloat(pb.Amount)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTopProductsCSV emits the best sellers as CSV.
func WriteTopProductsCSV(w io.Writer, products []TopProduct) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Product", "SKU", "Quantity Sold", "Revenue"}); err != nil {
		return err
	}
	for _, p := range products {
		if err := writer.Write([]string{p.Name, p.SKU, strconv.Itoa(p.QuantitySold), formatFloat(p.Revenue)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteLowStockCSV prints flagged stock levels to CSV.
func WriteLowStockCSV(w io.Writer, levels []inventory.Level) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Product", "SKU", "On Hand", "Min Level", "Status"}); err != nil {
		return err
	}
	for _, level := range levels {
		if err := writer.Write([]string{
			level.Name,
			level.SKU,
			strconv.Itoa(level.Qty),
			strconv.Itoa(level.MinStockLevel),
			string(level.Status),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
