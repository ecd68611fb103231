package reports

import "time"

type PaymentBreakdown struct {
	Method string  `json:"method"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

type SalesSummary struct {
	From          time.Time          `json:"from"`
	To            time.Time          `json:"to"`
	TotalSales    int                `json:"total_sales"`
	TotalRevenue  float64            `json:"total_revenue"`
	TotalTax      float64            `json:"total_tax"`
	TotalDiscount float64            `json:"total_discount"`
	AverageSale   float64            `json:"average_sale"`
	Payments      []PaymentBreakdown `json:"payments"`
}

type TopProduct struct {
	ProductID    int64   `json:"product_id"`
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}
