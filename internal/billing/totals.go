package billing

import "github.com/shopspring/decimal"

// Totals holds the order-level monetary aggregates. Every field is rounded
// to two decimals before the next step consumes it; the step order is part
// of the contract. The global discount lands after item-level discounts and
// before tax, so tax is charged on the post-all-discounts amount and freight
// is never taxed.
type Totals struct {
	OriginalTotal       decimal.Decimal `json:"originalTotal"`
	ItemsSubtotal       decimal.Decimal `json:"itemsSubtotal"`
	ItemDiscountAmount  decimal.Decimal `json:"itemDiscountAmount"`
	TotalDiscountAmount decimal.Decimal `json:"totalDiscountAmount"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	TaxAmount           decimal.Decimal `json:"taxAmount"`
	GrandTotal          decimal.Decimal `json:"grandTotal"`
}

// ComputeTotals aggregates line items and order-level adjustments. It is a
// pure pass over the inputs and is cheap enough to run after every edit.
func ComputeTotals(items []LineItem, globalDiscount, taxPercentage, freightCharges decimal.Decimal) Totals {
	var original, subtotal decimal.Decimal
	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Quantity))
		original = original.Add(it.OriginalPrice.Mul(qty))
		subtotal = subtotal.Add(it.FinalPrice.Mul(qty))
	}
	t := Totals{
		OriginalTotal: round2(original),
		ItemsSubtotal: round2(subtotal),
	}
	t.ItemDiscountAmount = round2(t.OriginalTotal.Sub(t.ItemsSubtotal))
	t.TotalDiscountAmount = t.ItemDiscountAmount.Add(globalDiscount)
	t.Subtotal = round2(t.ItemsSubtotal.Sub(globalDiscount))
	t.TaxAmount = round2(t.Subtotal.Mul(taxPercentage).Div(hundred))
	t.GrandTotal = round2(t.Subtotal.Add(t.TaxAmount).Add(freightCharges))
	return t
}
