package billing

import "github.com/shopspring/decimal"

var (
	hundred     = decimal.NewFromInt(100)
	centEpsilon = decimal.RequireFromString("0.01")
)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// clampPercent confines a discount percentage to [0,100]. Out-of-range input
// is corrected silently; the editor never rejects a numeric edit.
func clampPercent(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// SetQuantity applies a quantity edit. A quantity of zero or less signals
// that the line should be removed, reported via the second return value.
func SetQuantity(it LineItem, qty int, taxPercentage decimal.Decimal) (LineItem, bool) {
	if qty <= 0 {
		return it, true
	}
	it.Quantity = qty
	it.DiscountAmount = round2(it.OriginalPrice.Sub(it.FinalPrice).Mul(decimal.NewFromInt(int64(qty))))
	return refreshDerived(it, taxPercentage), false
}

// SetFinalPrice applies a direct selling-price edit. The price is clamped to
// [0, OriginalPrice]. DiscountPercentage and DiscountAmount are deliberately
// left untouched: editing the selling price and editing the discount are two
// distinct user intents that do not keep each other in sync.
func SetFinalPrice(it LineItem, price decimal.Decimal, taxPercentage decimal.Decimal) LineItem {
	if price.IsNegative() {
		price = decimal.Zero
	}
	if price.GreaterThan(it.OriginalPrice) {
		price = it.OriginalPrice
	}
	it.FinalPrice = price
	return refreshDerived(it, taxPercentage)
}

// SetDiscountPercentage applies a discount edit. The per-unit discount is
// rounded before the selling price is derived from it, and the line discount
// amount is scaled by quantity.
func SetDiscountPercentage(it LineItem, pct decimal.Decimal, taxPercentage decimal.Decimal) LineItem {
	pct = clampPercent(pct)
	perUnit := round2(it.OriginalPrice.Mul(pct).Div(hundred))
	it.DiscountPercentage = pct
	it.FinalPrice = round2(it.OriginalPrice.Sub(perUnit))
	it.DiscountAmount = round2(it.OriginalPrice.Sub(it.FinalPrice).Mul(decimal.NewFromInt(int64(it.Quantity))))
	return refreshDerived(it, taxPercentage)
}

// refreshDerived recomputes TotalPrice and the per-line denormalised tax from
// the current quantity and selling price.
func refreshDerived(it LineItem, taxPercentage decimal.Decimal) LineItem {
	it.TotalPrice = round2(it.FinalPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	it.Tax = round2(it.TotalPrice.Mul(taxPercentage).Div(hundred))
	return it
}

// NewCatalogLine builds a fresh line for a catalog product at its master
// price with no initial discount.
func NewCatalogLine(productID, name string, price decimal.Decimal, taxPercentage decimal.Decimal) LineItem {
	if price.IsNegative() {
		price = decimal.Zero
	}
	it := LineItem{
		ID:            uuidNew(),
		Kind:          KindCatalog,
		ProductID:     productID,
		Name:          name,
		Quantity:      1,
		OriginalPrice: price,
		FinalPrice:    price,
		ReturnStatus:  ReturnNone,
	}
	return refreshDerived(it, taxPercentage)
}

// NewCustomLine builds a fresh line for an ad-hoc item.
func NewCustomLine(name string, price decimal.Decimal, qty int, taxPercentage decimal.Decimal) LineItem {
	if price.IsNegative() {
		price = decimal.Zero
	}
	if qty <= 0 {
		qty = 1
	}
	it := LineItem{
		ID:            uuidNew(),
		Kind:          KindCustom,
		Name:          name,
		Quantity:      qty,
		OriginalPrice: price,
		FinalPrice:    price,
		ReturnStatus:  ReturnNone,
	}
	return refreshDerived(it, taxPercentage)
}
