package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportRange bounds a report by sale time. Nil ends are open.
type ReportRange struct {
	Start *time.Time
	End   *time.Time
}

// SalesSummary aggregates all sales in a range.
type SalesSummary struct {
	TotalSales     int64           `json:"total_sales"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalQuantity  int64           `json:"total_quantity"`
	ActiveWorkers  int64           `json:"active_workers"`
	UniqueProducts int64           `json:"unique_products"`
}

// ProductSales is one row of the top products table.
type ProductSales struct {
	ProductName   string          `json:"product_name"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	SaleCount     int64           `json:"sale_count"`
}

// WorkerPerformance is one worker's totals in a range.
type WorkerPerformance struct {
	WorkerID     uuid.UUID       `json:"worker_id"`
	Name         string          `json:"name"`
	TotalSales   int64           `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	AvgSaleValue decimal.Decimal `json:"avg_sale_value"`
}

// SummaryReport is the admin overview.
type SummaryReport struct {
	Summary           SalesSummary        `json:"summary"`
	TopProducts       []ProductSales      `json:"top_products"`
	WorkerPerformance []WorkerPerformance `json:"worker_performance"`
}

// DailySales totals one business day.
type DailySales struct {
	Date          string          `json:"date"` // YYYY-MM-DD in the business zone
	TotalSales    int64           `json:"total_sales"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalQuantity int64           `json:"total_quantity"`
}
