package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingTotals is the totals block of the persistence payload. Field names
// follow the order service's wire contract.
type BillingTotals struct {
	OriginalPrice  decimal.Decimal `json:"original_price"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	FinalPrice     decimal.Decimal `json:"final_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	TaxPercentage  decimal.Decimal `json:"tax_percentage"`
	FreightCharges decimal.Decimal `json:"freight_charges"`
	GrandTotal     decimal.Decimal `json:"grandTotal"`
}

// BillingData is the finished snapshot handed to the order service on
// save/submit. Items are emitted in their undistributed per-line form: the
// global discount is communicated only as an order-level figure and is never
// redistributed back into lines, which would lose precision irreversibly on
// a later re-edit.
type BillingData struct {
	OrderID               string          `json:"orderId,omitempty"`
	Customer              string          `json:"customer"`
	Items                 []LineItem      `json:"items"`
	PaymentMethods        []PaymentMethod `json:"paymentMethods"`
	FinalTotal            decimal.Decimal `json:"finalTotal"`
	Notes                 string          `json:"notes"`
	DeliveryDate          *time.Time      `json:"deliveryDate"`
	DeliveryFloor         string          `json:"deliveryFloor"`
	IsFirstFloorAwareness bool            `json:"isFirstFloorAwareness"`
	SelectedSalesman      string          `json:"selectedSalesman"`
	FinanceData           map[string]any  `json:"financeData,omitempty"`
	Totals                BillingTotals   `json:"totals"`
}

// BillingData assembles the persistence payload from the current state.
// FinalTotal and the discount figure follow the display basis, so an
// untouched loaded order round-trips the stored totals instead of the
// heuristically recomputed ones; GrandTotal always carries the live figure.
func (o *Order) BillingData() BillingData {
	display := o.DisplayTotals()
	live := display.Live
	return BillingData{
		OrderID:               o.OrderID,
		Customer:              o.CustomerID,
		Items:                 cloneItems(o.Items),
		PaymentMethods:        o.PaymentMethods,
		FinalTotal:            display.GrandTotal,
		Notes:                 o.Notes,
		DeliveryDate:          o.DeliveryDate,
		DeliveryFloor:         o.DeliveryFloor,
		IsFirstFloorAwareness: o.IsFirstFloorAwareness,
		SelectedSalesman:      o.SalesmanID,
		FinanceData:           o.FinanceData,
		Totals: BillingTotals{
			OriginalPrice:  live.OriginalTotal,
			TotalPrice:     live.ItemsSubtotal,
			FinalPrice:     display.GrandTotal,
			DiscountAmount: display.DiscountTotal,
			Subtotal:       live.Subtotal,
			Tax:            live.TaxAmount,
			TaxPercentage:  o.TaxPercentage,
			FreightCharges: o.FreightCharges,
			GrandTotal:     live.GrandTotal,
		},
	}
}
