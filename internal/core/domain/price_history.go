package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceHistory is the running price aggregate for one product.
type PriceHistory struct {
	ProductName string          `json:"product_name"`
	MinPrice    decimal.Decimal `json:"min_price"`
	MaxPrice    decimal.Decimal `json:"max_price"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	SaleCount   int64           `json:"sale_count"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Observe folds one more price into the aggregate using the same
// incremental formula the store applies atomically.
func (h PriceHistory) Observe(price decimal.Decimal, at time.Time) PriceHistory {
	if h.SaleCount == 0 {
		return PriceHistory{
			ProductName: h.ProductName,
			MinPrice:    price,
			MaxPrice:    price,
			AvgPrice:    price,
			SaleCount:   1,
			LastUpdated: at,
		}
	}
	count := decimal.NewFromInt(h.SaleCount)
	return PriceHistory{
		ProductName: h.ProductName,
		MinPrice:    decimal.Min(h.MinPrice, price),
		MaxPrice:    decimal.Max(h.MaxPrice, price),
		AvgPrice:    h.AvgPrice.Mul(count).Add(price).Div(count.Add(decimal.NewFromInt(1))),
		SaleCount:   h.SaleCount + 1,
		LastUpdated: at,
	}
}
