package model

import "github.com/shopspring/decimal"

// Product is the live catalog record of a discounted box.
type Product struct {
	ID            int64
	Name          string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	ImageURL      string
	Active        bool
	StockQuantity int
	Store         StoreRef
}

// StockSnapshot is the availability of one product at lookup time.
type StockSnapshot struct {
	ProductID int64
	Available int
	Active    bool
}

// Stock extracts the availability part of the product.
func (p Product) Stock() StockSnapshot {
	avail := p.StockQuantity
	if avail < 0 {
		avail = 0
	}
	return StockSnapshot{ProductID: p.ID, Available: avail, Active: p.Active}
}
