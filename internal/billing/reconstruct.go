package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PersistedLine is one line of an order record as returned by the order
// service. Unit price, taxable amount, master price and final price reflect
// whatever the historical record happens to contain; several of them are
// optional and the stored figures are net/derived, so the original rate and
// per-unit selling price have to be inferred.
type PersistedLine struct {
	ProductID        string           `json:"product_id,omitempty"`
	CustomProductID  string           `json:"custom_product_id,omitempty"`
	Name             string           `json:"name"`
	Quantity         int              `json:"quantity"`
	UnitPrice        *decimal.Decimal `json:"unit_price,omitempty"`
	FinalPrice       *decimal.Decimal `json:"final_price,omitempty"`
	TaxableAmount    *decimal.Decimal `json:"taxable_amount,omitempty"`
	MasterPrice      *decimal.Decimal `json:"master_price,omitempty"`
	ReturnedQuantity int              `json:"returned_quantity,omitempty"`
}

// PersistedOrder is the order record loaded from the order/quote service.
type PersistedOrder struct {
	ID                   string          `json:"id"`
	Items                []PersistedLine `json:"items"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	FinalPrice           decimal.Decimal `json:"final_price"`
	TaxPercentage        decimal.Decimal `json:"tax_percentage"`
	FreightCharges       decimal.Decimal `json:"freight_charges"`
	Notes                string          `json:"notes"`
	CreatedAt            time.Time       `json:"created_at"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	CustomerID           string          `json:"customer_id"`
	SalesmanID           string          `json:"salesman_id"`
}

// Named reconstruction rules, in priority order. The first matching rule
// wins; every chain terminates in a fallback so reconstruction never fails.
// The fallback rules indicate degraded fidelity of the displayed historical
// figures and are surfaced through logs and metrics, not to the end user.
const (
	RateRuleMasterPrice = "rate_master_price"
	RateRuleUnitDiffers = "rate_unit_differs_from_final"
	// RateRuleUnitZeroFinal only fires when the stored unit price is itself
	// zero: a non-zero unit with a zero final already differs from it and is
	// claimed by RateRuleUnitDiffers first.
	RateRuleUnitZeroFinal  = "rate_unit_with_zero_final"
	RateRuleMarkupFallback = "rate_markup_fallback"

	PriceRuleTaxable      = "price_taxable_amount"
	PriceRuleLineTotal    = "price_final_is_line_total"
	PriceRulePerUnit      = "price_final_is_per_unit"
	PriceRuleUnitFallback = "price_unit_fallback"
	PriceRuleRateFallback = "price_rate_fallback"
)

// markupFactor is the assumed markup applied when a line carries no usable
// rate at all. It is a heuristic inherited from historical records whose
// correctness is unverified; treat figures produced by it with suspicion.
var markupFactor = decimal.RequireFromString("1.15")

// LineTrace records which rules fired while reconstructing one line.
type LineTrace struct {
	ItemID   string
	RateRule string
	UnitRule string
	Fallback bool
	// RateLifted marks lines whose inferred rate was raised to the inferred
	// selling price to keep the pair consistent.
	RateLifted bool
}

// ReconstructLine rebuilds a LineItem from an ambiguous persisted line. The
// pre-discount rate and the per-unit selling price each follow their own
// priority chain, and the discount breakdown is then derived with the normal
// discount formula against whichever unit figure the record actually holds.
func ReconstructLine(p PersistedLine, taxPercentage decimal.Decimal) (LineItem, LineTrace) {
	qty := p.Quantity
	if qty < 1 {
		qty = 1
	}

	rate, rateRule := reconstructRate(p)
	unit, unitRule := reconstructUnitSelling(p, qty, rate)

	// The two chains run independently, so a stored taxable amount can imply
	// a per-unit selling price above the inferred rate. Lift the rate to the
	// selling price in that case: every line must keep selling price within
	// [0, rate] or the next edit would derive a negative discount.
	rateLifted := false
	if unit.GreaterThan(rate) {
		rate = unit
		rateLifted = true
	}

	// The discount comparison uses the persisted unit price when the record
	// has one, otherwise the reconstructed rate.
	discountBase := rate
	if p.UnitPrice != nil {
		discountBase = *p.UnitPrice
	}

	it := LineItem{
		ID:            uuidNew(),
		Kind:          KindCatalog,
		ProductID:     p.ProductID,
		Name:          p.Name,
		Quantity:      qty,
		OriginalPrice: rate,
		FinalPrice:    unit,
	}
	if p.ProductID == "" {
		it.Kind = KindCustom
		it.ProductID = p.CustomProductID
	}

	if discountBase.IsPositive() && unit.LessThan(discountBase) {
		it.DiscountAmount = round2(discountBase.Sub(unit).Mul(decimal.NewFromInt(int64(qty))))
		it.DiscountPercentage = round2(discountBase.Sub(unit).Div(discountBase).Mul(hundred))
	}

	it.ReturnedQuantity = p.ReturnedQuantity
	if it.ReturnedQuantity < 0 {
		it.ReturnedQuantity = 0
	}
	if it.ReturnedQuantity > qty {
		it.ReturnedQuantity = qty
	}
	switch {
	case it.ReturnedQuantity >= qty && qty > 0:
		it.ReturnStatus = ReturnFull
	case it.ReturnedQuantity > 0:
		it.ReturnStatus = ReturnPartial
	default:
		it.ReturnStatus = ReturnNone
	}

	it = refreshDerived(it, taxPercentage)

	trace := LineTrace{
		ItemID:     it.ID.String(),
		RateRule:   rateRule,
		UnitRule:   unitRule,
		Fallback:   rateRule == RateRuleMarkupFallback || unitRule == PriceRuleUnitFallback || unitRule == PriceRuleRateFallback,
		RateLifted: rateLifted,
	}
	return it, trace
}

// reconstructRate infers the pre-discount per-unit rate.
func reconstructRate(p PersistedLine) (decimal.Decimal, string) {
	if p.MasterPrice != nil && p.MasterPrice.IsPositive() {
		return *p.MasterPrice, RateRuleMasterPrice
	}
	if p.UnitPrice != nil && p.FinalPrice != nil && !p.UnitPrice.Equal(*p.FinalPrice) {
		// A unit price that differs from the stored final price is evidence
		// a discount existed.
		return *p.UnitPrice, RateRuleUnitDiffers
	}
	if p.UnitPrice != nil && p.FinalPrice != nil && p.FinalPrice.IsZero() {
		return *p.UnitPrice, RateRuleUnitZeroFinal
	}
	var base decimal.Decimal
	if p.FinalPrice != nil {
		base = *p.FinalPrice
	} else if p.UnitPrice != nil {
		base = *p.UnitPrice
	}
	return base.Mul(markupFactor).Round(0), RateRuleMarkupFallback
}

// reconstructUnitSelling infers the per-unit selling price. The stored final
// price is ambiguous: depending on the era of the record it may be a line
// total or already per-unit, disambiguated by an equality-within-a-cent
// check against unit price times quantity.
func reconstructUnitSelling(p PersistedLine, qty int, rate decimal.Decimal) (decimal.Decimal, string) {
	qtyDec := decimal.NewFromInt(int64(qty))
	if p.TaxableAmount != nil && p.TaxableAmount.IsPositive() {
		return round2(p.TaxableAmount.Div(qtyDec)), PriceRuleTaxable
	}
	if p.FinalPrice != nil {
		if p.UnitPrice != nil {
			lineTotal := p.UnitPrice.Mul(qtyDec)
			if p.FinalPrice.Sub(lineTotal).Abs().Cmp(centEpsilon) <= 0 {
				return round2(p.FinalPrice.Div(qtyDec)), PriceRuleLineTotal
			}
		}
		return *p.FinalPrice, PriceRulePerUnit
	}
	if p.UnitPrice != nil {
		return *p.UnitPrice, PriceRuleUnitFallback
	}
	return rate, PriceRuleRateFallback
}

// Reconstruction is the result of rebuilding a full order for editing.
type Reconstruction struct {
	Items          []LineItem
	GlobalDiscount decimal.Decimal
	Traces         []LineTrace
}

// ReconstructOrder rebuilds every line of a persisted order and splits the
// stored discount total into its per-line and order-level components. The
// order-level remainder is clamped at zero.
func ReconstructOrder(rec PersistedOrder) Reconstruction {
	out := Reconstruction{
		Items:  make([]LineItem, 0, len(rec.Items)),
		Traces: make([]LineTrace, 0, len(rec.Items)),
	}
	var lineDiscounts decimal.Decimal
	for _, p := range rec.Items {
		it, trace := ReconstructLine(p, rec.TaxPercentage)
		out.Items = append(out.Items, it)
		out.Traces = append(out.Traces, trace)
		lineDiscounts = lineDiscounts.Add(it.DiscountAmount)
	}
	global := rec.DiscountAmount.Sub(lineDiscounts)
	if global.IsNegative() {
		global = decimal.Zero
	}
	out.GlobalDiscount = global
	return out
}
