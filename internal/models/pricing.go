package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrSalePriceRequired    = errors.New("salePrice is required when saleEnabled is true")
	ErrSalePriceNotPositive = errors.New("salePrice must be greater than 0")
	ErrSalePriceNotLower    = errors.New("salePrice must be less than price")
)

// OnSale reports whether an enabled sale price undercuts the list price.
func (p Product) OnSale() bool {
	return p.SaleEnabled && p.SalePrice > 0 &&
		decimal.NewFromFloat(p.SalePrice).LessThan(decimal.NewFromFloat(p.Price))
}

// EffectivePrice is what a customer pays for one unit today.
func (p Product) EffectivePrice() float64 {
	if p.OnSale() {
		return p.SalePrice
	}
	return p.Price
}

// PriceChange is a partial edit of the price fields; nil keeps the current
// value.
type PriceChange struct {
	Price       *float64
	SaleEnabled *bool
	SalePrice   *float64
}

// ApplyPriceChange validates change against the product's current prices and
// writes it. Turning the sale off clears the sale price. On error the product
// is left untouched.
func (p *Product) ApplyPriceChange(change PriceChange) error {
	price, saleEnabled, salePrice := p.Price, p.SaleEnabled, p.SalePrice
	salePriceKnown := salePrice > 0

	if change.Price != nil {
		price = *change.Price
	}
	if change.SaleEnabled != nil {
		saleEnabled = *change.SaleEnabled
		if !saleEnabled {
			salePrice, salePriceKnown = 0, false
		}
	}
	if change.SalePrice != nil {
		salePrice, salePriceKnown = *change.SalePrice, true
	}

	if saleEnabled {
		switch {
		case !salePriceKnown:
			return ErrSalePriceRequired
		case salePrice <= 0:
			return ErrSalePriceNotPositive
		case !decimal.NewFromFloat(salePrice).LessThan(decimal.NewFromFloat(price)):
			return ErrSalePriceNotLower
		}
	}

	p.Price, p.SaleEnabled, p.SalePrice = price, saleEnabled, salePrice
	return nil
}
