package models

import (
	"gorm.io/gorm"
)

// Product mirrors the storefront catalog rows the monitor view joins against.
// Monitors keep a soft reference to it: deleting a product never blocks or
// cascades into monitor operations.
type Product struct {
	gorm.Model
	Name     string `gorm:"size:255"`
	Image    string
	PriceUSD string `gorm:"type:decimal(10,2)"`
	PriceBRL string `gorm:"type:decimal(10,2)"`
	Active   bool
}

type Products []Product
