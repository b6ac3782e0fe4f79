package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when an edit targets a line that is not part
// of the order.
var ErrItemNotFound = errors.New("billing: line item not found")

// PaymentMethod is an order-level payment entry passed through to the order
// service untouched.
type PaymentMethod struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// Order is the aggregate being edited in one session. There is exactly one
// mutator (the local user) so every operation is synchronous; totals are
// recomputed after each edit and the snapshot comparison runs on the same
// pass.
type Order struct {
	OrderID               string          `json:"orderId,omitempty"`
	Items                 []LineItem      `json:"items"`
	GlobalDiscount        decimal.Decimal `json:"globalDiscount"`
	TaxPercentage         decimal.Decimal `json:"taxPercentage"`
	FreightCharges        decimal.Decimal `json:"freightCharges"`
	CustomerID            string          `json:"customerId,omitempty"`
	SalesmanID            string          `json:"salesmanId,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	DeliveryDate          *time.Time      `json:"deliveryDate,omitempty"`
	DeliveryFloor         string          `json:"deliveryFloor,omitempty"`
	IsFirstFloorAwareness bool            `json:"isFirstFloorAwareness"`
	PaymentMethods        []PaymentMethod `json:"paymentMethods,omitempty"`
	FinanceData           map[string]any  `json:"financeData,omitempty"`

	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Loaded   bool      `json:"isLoaded"`
	Modified bool      `json:"isModified"`

	ValidationMessages []string `json:"validationMessages,omitempty"`
}

// NewOrder starts an empty aggregate for a brand-new order.
func NewOrder() *Order {
	return &Order{}
}

// LoadOrder reconstructs a persisted order for editing and captures the
// load-time snapshot. The returned traces describe which reconstruction
// rules fired per line.
func LoadOrder(rec PersistedOrder) (*Order, []LineTrace) {
	recon := ReconstructOrder(rec)
	o := &Order{
		OrderID:        rec.ID,
		Items:          recon.Items,
		GlobalDiscount: recon.GlobalDiscount,
		TaxPercentage:  rec.TaxPercentage,
		FreightCharges: rec.FreightCharges,
		CustomerID:     rec.CustomerID,
		SalesmanID:     rec.SalesmanID,
		Notes:          rec.Notes,
		DeliveryDate:   rec.ExpectedDeliveryDate,
		Loaded:         true,
		Snapshot:       NewSnapshot(recon.Items, rec.FinalPrice, rec.DiscountAmount, rec.TaxPercentage, rec.FreightCharges),
	}
	return o, recon.Traces
}

// detectModification flips the modified flag when the current state has
// diverged from the snapshot. The transition is irreversible: reverting an
// edit does not clear it for the session.
func (o *Order) detectModification() {
	if !o.Loaded || o.Modified {
		return
	}
	if o.Snapshot.Diverges(o.Items, o.GlobalDiscount, o.TaxPercentage, o.FreightCharges) {
		o.Modified = true
	}
}

// afterEdit runs the shared recomputation pass: it re-derives every line
// against the current tax rate, re-runs modification detection and clears
// any pending validation messages (any edit clears the whole list, not just
// the offending field).
func (o *Order) afterEdit() {
	for i := range o.Items {
		o.Items[i] = refreshDerived(o.Items[i], o.TaxPercentage)
	}
	o.ValidationMessages = nil
	o.detectModification()
}

func (o *Order) findItem(id uuid.UUID) int {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// AddCatalogItem adds a catalog product to the order. If a line referencing
// the same product already exists its quantity is incremented by one
// instead of a duplicate line being appended.
func (o *Order) AddCatalogItem(productID, name string, masterPrice decimal.Decimal) LineItem {
	for i := range o.Items {
		if o.Items[i].Kind == KindCatalog && o.Items[i].ProductID == productID && productID != "" {
			updated, _ := SetQuantity(o.Items[i], o.Items[i].Quantity+1, o.TaxPercentage)
			o.Items[i] = updated
			o.afterEdit()
			return updated
		}
	}
	it := NewCatalogLine(productID, name, masterPrice, o.TaxPercentage)
	o.Items = append(o.Items, it)
	o.afterEdit()
	return it
}

// AddCustomItem appends an ad-hoc line from a custom product descriptor.
func (o *Order) AddCustomItem(name string, price decimal.Decimal, qty int) LineItem {
	it := NewCustomLine(name, price, qty, o.TaxPercentage)
	o.Items = append(o.Items, it)
	o.afterEdit()
	return it
}

// SetItemQuantity applies a quantity edit; zero or negative removes the line.
func (o *Order) SetItemQuantity(id uuid.UUID, qty int) error {
	i := o.findItem(id)
	if i < 0 {
		return ErrItemNotFound
	}
	updated, remove := SetQuantity(o.Items[i], qty, o.TaxPercentage)
	if remove {
		o.Items = append(o.Items[:i], o.Items[i+1:]...)
	} else {
		o.Items[i] = updated
	}
	o.afterEdit()
	return nil
}

// SetItemFinalPrice applies a direct selling-price edit.
func (o *Order) SetItemFinalPrice(id uuid.UUID, price decimal.Decimal) error {
	i := o.findItem(id)
	if i < 0 {
		return ErrItemNotFound
	}
	o.Items[i] = SetFinalPrice(o.Items[i], price, o.TaxPercentage)
	o.afterEdit()
	return nil
}

// SetItemDiscountPercentage applies a discount edit.
func (o *Order) SetItemDiscountPercentage(id uuid.UUID, pct decimal.Decimal) error {
	i := o.findItem(id)
	if i < 0 {
		return ErrItemNotFound
	}
	o.Items[i] = SetDiscountPercentage(o.Items[i], pct, o.TaxPercentage)
	o.afterEdit()
	return nil
}

// RemoveItem drops a line from the order.
func (o *Order) RemoveItem(id uuid.UUID) error {
	i := o.findItem(id)
	if i < 0 {
		return ErrItemNotFound
	}
	o.Items = append(o.Items[:i], o.Items[i+1:]...)
	o.afterEdit()
	return nil
}

// SetGlobalDiscount sets the flat order-level discount, clamped at zero.
func (o *Order) SetGlobalDiscount(amount decimal.Decimal) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	o.GlobalDiscount = amount
	o.afterEdit()
}

// SetTaxPercentage sets the order tax rate, clamped at zero, and re-derives
// the denormalised per-line tax figures.
func (o *Order) SetTaxPercentage(pct decimal.Decimal) {
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	o.TaxPercentage = pct
	o.afterEdit()
}

// SetFreightCharges sets the freight amount, clamped at zero.
func (o *Order) SetFreightCharges(amount decimal.Decimal) {
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	o.FreightCharges = amount
	o.afterEdit()
}

// Totals recomputes the live aggregates from the current state.
func (o *Order) Totals() Totals {
	return ComputeTotals(o.Items, o.GlobalDiscount, o.TaxPercentage, o.FreightCharges)
}

// DisplayBasis identifies which figures the presentation layer must show.
type DisplayBasis string

const (
	// BasisPersisted shows the stored totals: the reconstruction heuristics
	// may not exactly reproduce them, and showing a recomputed number for an
	// unedited order would present a misleading change to the user.
	BasisPersisted DisplayBasis = "persisted"
	// BasisLive shows the freshly computed totals. Once the user edits
	// anything the live figures are definitionally the correct ones.
	BasisLive DisplayBasis = "live"
)

// Display holds the figures the presentation layer shows, already resolved
// against the display-basis rule.
type Display struct {
	Basis         DisplayBasis    `json:"basis"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	Live          Totals          `json:"live"`
}

// DisplayTotals resolves the loaded-vs-modified display rule: a loaded,
// still-unmodified order shows the persisted totals; everything else shows
// the live aggregation output.
func (o *Order) DisplayTotals() Display {
	live := o.Totals()
	if o.Loaded && !o.Modified {
		return Display{
			Basis:         BasisPersisted,
			GrandTotal:    o.Snapshot.PersistedFinalTotal,
			DiscountTotal: o.Snapshot.PersistedDiscountTotal,
			Live:          live,
		}
	}
	return Display{
		Basis:         BasisLive,
		GrandTotal:    live.GrandTotal,
		DiscountTotal: live.TotalDiscountAmount,
		Live:          live,
	}
}
