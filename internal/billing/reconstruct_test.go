package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestReconstructRateMasterPriceWins(t *testing.T) {
	line := PersistedLine{
		ProductID:   "p-1",
		Name:        "Widget",
		Quantity:    2,
		UnitPrice:   dp("900"),
		FinalPrice:  dp("800"),
		MasterPrice: dp("1000"),
	}

	it, trace := ReconstructLine(line, decimal.Zero)

	if trace.RateRule != RateRuleMasterPrice {
		t.Fatalf("rate rule = %s, want %s", trace.RateRule, RateRuleMasterPrice)
	}
	if !it.OriginalPrice.Equal(dec("1000")) {
		t.Fatalf("rate = %s, want 1000", it.OriginalPrice)
	}
	if trace.Fallback {
		t.Fatal("master-price rule must not be flagged as fallback")
	}
}

func TestReconstructRateUnitDiffersFromFinal(t *testing.T) {
	line := PersistedLine{
		ProductID:  "p-1",
		Name:       "Widget",
		Quantity:   1,
		UnitPrice:  dp("1000"),
		FinalPrice: dp("850"),
	}

	it, trace := ReconstructLine(line, decimal.Zero)

	if trace.RateRule != RateRuleUnitDiffers {
		t.Fatalf("rate rule = %s, want %s", trace.RateRule, RateRuleUnitDiffers)
	}
	if !it.OriginalPrice.Equal(dec("1000")) {
		t.Fatalf("rate = %s, want 1000", it.OriginalPrice)
	}
}

func TestReconstructRateUnitWithZeroFinal(t *testing.T) {
	line := PersistedLine{
		ProductID:  "p-1",
		Name:       "Giveaway",
		Quantity:   1,
		UnitPrice:  dp("1000"),
		FinalPrice: dp("0"),
	}

	_, trace := ReconstructLine(line, decimal.Zero)

	// UnitPrice differs from the zero final, so the differs rule claims it
	// first; the zero-final rule only matters when both figures are equal.
	if trace.RateRule != RateRuleUnitDiffers {
		t.Fatalf("rate rule = %s, want %s", trace.RateRule, RateRuleUnitDiffers)
	}
}

func TestReconstructRateMarkupFallback(t *testing.T) {
	line := PersistedLine{
		ProductID:  "p-1",
		Name:       "Legacy line",
		Quantity:   1,
		FinalPrice: dp("870"),
	}

	it, trace := ReconstructLine(line, decimal.Zero)

	if trace.RateRule != RateRuleMarkupFallback {
		t.Fatalf("rate rule = %s, want %s", trace.RateRule, RateRuleMarkupFallback)
	}
	// 870 * 1.15 = 1000.5, rounded to a whole figure.
	if !it.OriginalPrice.Equal(dec("1001")) {
		t.Fatalf("rate = %s, want 1001", it.OriginalPrice)
	}
	if !trace.Fallback {
		t.Fatal("markup rule must be flagged as fallback")
	}
}

func TestReconstructUnitSellingFromTaxableAmount(t *testing.T) {
	line := PersistedLine{
		ProductID:     "p-1",
		Name:          "Widget",
		Quantity:      4,
		MasterPrice:   dp("300"),
		TaxableAmount: dp("1000"),
	}

	it, trace := ReconstructLine(line, decimal.Zero)

	if trace.UnitRule != PriceRuleTaxable {
		t.Fatalf("price rule = %s, want %s", trace.UnitRule, PriceRuleTaxable)
	}
	if !it.FinalPrice.Equal(dec("250")) {
		t.Fatalf("unit selling price = %s, want 250", it.FinalPrice)
	}
}

func TestReconstructUnitSellingFinalIsLineTotal(t *testing.T) {
	// Final price 1700 equals unit 850 x qty 2 within a cent, so it is a
	// line total and must be divided back down.
	line := PersistedLine{
		ProductID:   "p-1",
		Name:        "Widget",
		Quantity:    2,
		UnitPrice:   dp("850"),
		FinalPrice:  dp("1700"),
		MasterPrice: dp("1000"),
	}

	it, trace := ReconstructLine(line, decimal.Zero)

	if trace.UnitRule != PriceRuleLineTotal {
		t.Fatalf("price rule = %s, want %s", trace.UnitRule, PriceRuleLineTotal)
	}
	if !it.FinalPrice.Equal(dec("850")) {
		t.Fatalf("unit selling price = %s, want 850", it.FinalPrice)
	}
}

func TestReconstructUnitSellingFinalIsPerUnit(t *testing.T) {
	line := PersistedLine{
		ProductID:   "p-1",
		Name:        "Widget",
		Quantity:    3,
		UnitPrice:   dp("1000"),
		FinalPrice:  dp("920"),
		MasterPrice: dp("1000"),
	}

	it, trace := ReconstructLine(line, decimal.Zero)

	if trace.UnitRule != PriceRulePerUnit {
		t.Fatalf("price rule = %s, want %s", trace.UnitRule, PriceRulePerUnit)
	}
	if !it.FinalPrice.Equal(dec("920")) {
		t.Fatalf("unit selling price = %s, want 920", it.FinalPrice)
	}
}

func TestReconstructUnitSellingFallbacks(t *testing.T) {
	unitOnly := PersistedLine{ProductID: "p-1", Name: "A", Quantity: 1, UnitPrice: dp("640"), MasterPrice: dp("700")}
	it, trace := ReconstructLine(unitOnly, decimal.Zero)
	if trace.UnitRule != PriceRuleUnitFallback {
		t.Fatalf("price rule = %s, want %s", trace.UnitRule, PriceRuleUnitFallback)
	}
	if !it.FinalPrice.Equal(dec("640")) {
		t.Fatalf("unit selling price = %s, want 640", it.FinalPrice)
	}
	if !trace.Fallback {
		t.Fatal("unit fallback must be flagged")
	}

	bare := PersistedLine{ProductID: "p-1", Name: "B", Quantity: 1, MasterPrice: dp("700")}
	it, trace = ReconstructLine(bare, decimal.Zero)
	if trace.UnitRule != PriceRuleRateFallback {
		t.Fatalf("price rule = %s, want %s", trace.UnitRule, PriceRuleRateFallback)
	}
	if !it.FinalPrice.Equal(it.OriginalPrice) {
		t.Fatalf("unit selling price = %s, want rate %s", it.FinalPrice, it.OriginalPrice)
	}
}

func TestReconstructLineDiscountBreakdown(t *testing.T) {
	line := PersistedLine{
		ProductID:   "p-1",
		Name:        "Widget",
		Quantity:    3,
		UnitPrice:   dp("1000"),
		FinalPrice:  dp("800"),
		MasterPrice: dp("1200"),
	}

	it, _ := ReconstructLine(line, decimal.Zero)

	// The discount comparison runs against the persisted unit price, not
	// the reconstructed master rate.
	if !it.DiscountAmount.Equal(dec("600")) {
		t.Fatalf("discount amount = %s, want 600", it.DiscountAmount)
	}
	if !it.DiscountPercentage.Equal(dec("20")) {
		t.Fatalf("discount percentage = %s, want 20", it.DiscountPercentage)
	}
}

func TestReconstructLineReturnStatus(t *testing.T) {
	base := PersistedLine{ProductID: "p-1", Name: "Widget", Quantity: 4, UnitPrice: dp("100"), FinalPrice: dp("100")}

	none, _ := ReconstructLine(base, decimal.Zero)
	if none.ReturnStatus != ReturnNone {
		t.Fatalf("status = %s, want none", none.ReturnStatus)
	}

	base.ReturnedQuantity = 2
	partial, _ := ReconstructLine(base, decimal.Zero)
	if partial.ReturnStatus != ReturnPartial {
		t.Fatalf("status = %s, want partial", partial.ReturnStatus)
	}

	base.ReturnedQuantity = 9
	full, _ := ReconstructLine(base, decimal.Zero)
	if full.ReturnStatus != ReturnFull {
		t.Fatalf("status = %s, want full", full.ReturnStatus)
	}
	if full.ReturnedQuantity != 4 {
		t.Fatalf("returned quantity = %d, want clamp at 4", full.ReturnedQuantity)
	}
}

func TestReconstructLineCustomProduct(t *testing.T) {
	line := PersistedLine{
		CustomProductID: "custom-7",
		Name:            "Assembly service",
		Quantity:        1,
		UnitPrice:       dp("150"),
		FinalPrice:      dp("150"),
	}

	it, _ := ReconstructLine(line, decimal.Zero)

	if it.Kind != KindCustom {
		t.Fatalf("kind = %s, want custom", it.Kind)
	}
	if it.ProductID != "custom-7" {
		t.Fatalf("product id = %s, want custom-7", it.ProductID)
	}
}

func TestReconstructOrderGlobalDiscountInference(t *testing.T) {
	rec := PersistedOrder{
		ID: "ord-1",
		Items: []PersistedLine{
			{ProductID: "p-1", Name: "A", Quantity: 2, UnitPrice: dp("1000"), FinalPrice: dp("800")},
			{ProductID: "p-2", Name: "B", Quantity: 1, UnitPrice: dp("500"), FinalPrice: dp("500")},
		},
		DiscountAmount: dec("475"),
	}

	got := ReconstructOrder(rec)

	// Line A carries 2 x 200 = 400 of discount; the remaining 75 is the
	// order-level component.
	if !got.GlobalDiscount.Equal(dec("75")) {
		t.Fatalf("global discount = %s, want 75", got.GlobalDiscount)
	}
	if len(got.Items) != 2 || len(got.Traces) != 2 {
		t.Fatalf("items/traces = %d/%d, want 2/2", len(got.Items), len(got.Traces))
	}
}

func TestReconstructOrderGlobalDiscountClampedAtZero(t *testing.T) {
	rec := PersistedOrder{
		ID: "ord-2",
		Items: []PersistedLine{
			{ProductID: "p-1", Name: "A", Quantity: 1, UnitPrice: dp("1000"), FinalPrice: dp("600")},
		},
		DiscountAmount: dec("100"),
	}

	got := ReconstructOrder(rec)

	if !got.GlobalDiscount.IsZero() {
		t.Fatalf("global discount = %s, want 0", got.GlobalDiscount)
	}
}

func TestReconstructLiftsRateToSellingPrice(t *testing.T) {
	line := PersistedLine{
		ProductID:     "p-1",
		Name:          "Widget",
		Quantity:      2,
		MasterPrice:   dp("100"),
		TaxableAmount: dp("300"),
	}

	it, trace := ReconstructLine(line, decimal.Zero)

	if !trace.RateLifted {
		t.Fatal("trace should mark the lifted rate")
	}
	if !it.FinalPrice.Equal(dec("150")) {
		t.Fatalf("selling price = %s, want 150", it.FinalPrice)
	}
	if !it.OriginalPrice.Equal(dec("150")) {
		t.Fatalf("rate = %s, want lifted to 150", it.OriginalPrice)
	}
	if it.FinalPrice.GreaterThan(it.OriginalPrice) {
		t.Fatal("selling price must not exceed the rate")
	}

	// A follow-up edit re-derives the discount from the lifted pair and
	// must never go negative.
	it, _ = SetQuantity(it, 3, decimal.Zero)
	if it.DiscountAmount.IsNegative() {
		t.Fatalf("discount amount = %s, want >= 0", it.DiscountAmount)
	}
	if !it.DiscountAmount.Equal(decimal.Zero) {
		t.Fatalf("discount amount = %s, want 0", it.DiscountAmount)
	}
}

func TestReconstructKeepsRateWhenSellingBelowIt(t *testing.T) {
	line := PersistedLine{
		ProductID:     "p-1",
		Name:          "Widget",
		Quantity:      2,
		MasterPrice:   dp("200"),
		TaxableAmount: dp("300"),
	}

	it, trace := ReconstructLine(line, decimal.Zero)

	if trace.RateLifted {
		t.Fatal("rate must not be flagged as lifted when the selling price is below it")
	}
	if !it.OriginalPrice.Equal(dec("200")) {
		t.Fatalf("rate = %s, want 200", it.OriginalPrice)
	}
	if !it.FinalPrice.Equal(dec("150")) {
		t.Fatalf("selling price = %s, want 150", it.FinalPrice)
	}
}
