package billing

import (
	"testing"
)

func loadedOrder(t *testing.T) *Order {
	t.Helper()
	rec := PersistedOrder{
		ID: "ord-42",
		Items: []PersistedLine{
			{ProductID: "p-1", Name: "Widget", Quantity: 2, UnitPrice: dp("1000"), FinalPrice: dp("800"), MasterPrice: dp("1000")},
			{ProductID: "p-2", Name: "Gadget", Quantity: 1, UnitPrice: dp("500"), FinalPrice: dp("500"), MasterPrice: dp("500")},
		},
		DiscountAmount: dec("400"),
		FinalPrice:     dec("5000"),
		SalesmanID:     "s-1",
	}
	o, _ := LoadOrder(rec)
	return o
}

func TestLoadedOrderStartsUnmodified(t *testing.T) {
	o := loadedOrder(t)

	if !o.Loaded {
		t.Fatal("order should be marked loaded")
	}
	if o.Modified {
		t.Fatal("freshly loaded order should not be modified")
	}
	if o.Snapshot == nil {
		t.Fatal("loaded order must carry a snapshot")
	}
}

func TestModifiedFlagIsMonotone(t *testing.T) {
	o := loadedOrder(t)
	id := o.Items[0].ID
	originalQty := o.Items[0].Quantity

	if err := o.SetItemQuantity(id, originalQty+1); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if !o.Modified {
		t.Fatal("quantity edit should flip the modified flag")
	}

	// Reverting the edit restores the snapshot state but the flag stays.
	if err := o.SetItemQuantity(id, originalQty); err != nil {
		t.Fatalf("revert quantity: %v", err)
	}
	if o.Snapshot.Diverges(o.Items, o.GlobalDiscount, o.TaxPercentage, o.FreightCharges) {
		t.Fatal("reverted state should match the snapshot again")
	}
	if !o.Modified {
		t.Fatal("modified flag must not clear on revert")
	}
}

func TestGlobalDiscountDivergence(t *testing.T) {
	o := loadedOrder(t)

	// Within a cent of the inferred value: no divergence.
	inferred := o.Snapshot.InferredGlobalDiscount()
	o.SetGlobalDiscount(inferred.Add(dec("0.01")))
	if o.Modified {
		t.Fatal("a sub-cent global discount change should not count as modification")
	}

	o.SetGlobalDiscount(inferred.Add(dec("5")))
	if !o.Modified {
		t.Fatal("a real global discount change should count as modification")
	}
}

func TestInferredGlobalDiscount(t *testing.T) {
	o := loadedOrder(t)

	// Persisted discount total 400 is fully explained by line discounts
	// (2 units at 200 off), so nothing is attributed to the order level.
	if !o.Snapshot.InferredGlobalDiscount().IsZero() {
		t.Fatalf("inferred = %s, want 0", o.Snapshot.InferredGlobalDiscount())
	}

	o.Snapshot.PersistedDiscountTotal = dec("475")
	if !o.Snapshot.InferredGlobalDiscount().Equal(dec("75")) {
		t.Fatalf("inferred = %s, want 75", o.Snapshot.InferredGlobalDiscount())
	}

	o.Snapshot.PersistedDiscountTotal = dec("100")
	if !o.Snapshot.InferredGlobalDiscount().IsZero() {
		t.Fatal("inferred discount must clamp at zero")
	}
}

func TestDisplayTotalsSwitchToLive(t *testing.T) {
	o := loadedOrder(t)

	display := o.DisplayTotals()
	if display.Basis != BasisPersisted {
		t.Fatalf("basis = %s, want persisted", display.Basis)
	}
	if !display.GrandTotal.Equal(dec("5000")) {
		t.Fatalf("grand total = %s, want persisted 5000", display.GrandTotal)
	}

	if err := o.SetItemFinalPrice(o.Items[0].ID, dec("900")); err != nil {
		t.Fatalf("set price: %v", err)
	}
	display = o.DisplayTotals()
	if display.Basis != BasisLive {
		t.Fatalf("basis = %s, want live after edit", display.Basis)
	}
	if !display.GrandTotal.Equal(o.Totals().GrandTotal) {
		t.Fatalf("grand total = %s, want live %s", display.GrandTotal, o.Totals().GrandTotal)
	}
}

func TestNewOrderAlwaysLive(t *testing.T) {
	o := NewOrder()
	o.AddCustomItem("Delivery", dec("50"), 1)

	display := o.DisplayTotals()
	if display.Basis != BasisLive {
		t.Fatalf("basis = %s, want live for a new order", display.Basis)
	}
}

func TestSnapshotDeepCopy(t *testing.T) {
	o := loadedOrder(t)
	before := o.Snapshot.OriginalItems[0].Quantity

	if err := o.SetItemQuantity(o.Items[0].ID, before+5); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if o.Snapshot.OriginalItems[0].Quantity != before {
		t.Fatal("editing the order must not mutate the snapshot")
	}
}

func TestOrderLevelRateEditsFlipModified(t *testing.T) {
	o := loadedOrder(t)

	o.SetTaxPercentage(dec("10"))
	if !o.Modified {
		t.Fatal("tax edit should flip the modified flag")
	}
	if display := o.DisplayTotals(); display.Basis != BasisLive {
		t.Fatalf("basis = %s, want live after tax edit", display.Basis)
	}

	o = loadedOrder(t)
	o.SetFreightCharges(dec("75"))
	if !o.Modified {
		t.Fatal("freight edit should flip the modified flag")
	}
	if display := o.DisplayTotals(); display.Basis != BasisLive {
		t.Fatalf("basis = %s, want live after freight edit", display.Basis)
	}

	// Re-applying the persisted values is not an edit.
	o = loadedOrder(t)
	o.SetTaxPercentage(o.Snapshot.OriginalTaxPercentage)
	o.SetFreightCharges(o.Snapshot.OriginalFreightCharges)
	if o.Modified {
		t.Fatal("unchanged order-level rates must not flip the flag")
	}
}
