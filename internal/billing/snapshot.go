package billing

import "github.com/shopspring/decimal"

// Snapshot captures the line-item set and the persisted totals at the moment
// an existing order is opened for editing. It is absent for brand-new orders.
type Snapshot struct {
	OriginalItems          []LineItem      `json:"originalItems"`
	PersistedFinalTotal    decimal.Decimal `json:"persistedFinalTotal"`
	PersistedDiscountTotal decimal.Decimal `json:"persistedDiscountTotal"`
	OriginalTaxPercentage  decimal.Decimal `json:"originalTaxPercentage"`
	OriginalFreightCharges decimal.Decimal `json:"originalFreightCharges"`
}

// NewSnapshot deep-copies the reconstructed items and records the totals and
// order-level rates the order service persisted for this order.
func NewSnapshot(items []LineItem, persistedFinalTotal, persistedDiscountTotal, taxPercentage, freightCharges decimal.Decimal) *Snapshot {
	return &Snapshot{
		OriginalItems:          cloneItems(items),
		PersistedFinalTotal:    persistedFinalTotal,
		PersistedDiscountTotal: persistedDiscountTotal,
		OriginalTaxPercentage:  taxPercentage,
		OriginalFreightCharges: freightCharges,
	}
}

// InferredGlobalDiscount derives the order-level discount component that was
// folded into the persisted discount total, never negative.
func (s *Snapshot) InferredGlobalDiscount() decimal.Decimal {
	var lineDiscounts decimal.Decimal
	for _, it := range s.OriginalItems {
		lineDiscounts = lineDiscounts.Add(it.DiscountAmount)
	}
	inferred := s.PersistedDiscountTotal.Sub(lineDiscounts)
	if inferred.IsNegative() {
		return decimal.Zero
	}
	return inferred
}

// Diverges reports whether the current items or order-level figures have
// drifted from the snapshot. Tax percentage and freight charges count as
// divergence too: they change the live grand total, so leaving them out
// would show a stale persisted total after the edit. It is a pure
// comparison; the caller owns the (monotone) modified flag.
func (s *Snapshot) Diverges(items []LineItem, globalDiscount, taxPercentage, freightCharges decimal.Decimal) bool {
	if s == nil {
		return false
	}
	if len(items) != len(s.OriginalItems) {
		return true
	}
	for i, it := range items {
		orig := s.OriginalItems[i]
		if it.ID != orig.ID {
			return true
		}
		if it.Quantity != orig.Quantity {
			return true
		}
		if !it.FinalPrice.Equal(orig.FinalPrice) {
			return true
		}
		if !it.OriginalPrice.Equal(orig.OriginalPrice) {
			return true
		}
		if !it.DiscountAmount.Equal(orig.DiscountAmount) {
			return true
		}
	}
	if !taxPercentage.Equal(s.OriginalTaxPercentage) {
		return true
	}
	if !freightCharges.Equal(s.OriginalFreightCharges) {
		return true
	}
	return globalDiscount.Sub(s.InferredGlobalDiscount()).Abs().GreaterThan(centEpsilon)
}
