package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemKind distinguishes catalog-backed lines from ad-hoc custom lines.
type ItemKind string

const (
	// KindCatalog marks a line referencing a catalog product.
	KindCatalog ItemKind = "catalog"
	// KindCustom marks a line created from a custom product descriptor.
	KindCustom ItemKind = "custom"
)

// ReturnStatus describes how much of a line has been returned.
type ReturnStatus string

const (
	ReturnNone    ReturnStatus = "none"
	ReturnPartial ReturnStatus = "partial"
	ReturnFull    ReturnStatus = "full"
)

// LineItem is the atomic priced unit of an order. OriginalPrice is the
// pre-discount per-unit rate, FinalPrice the per-unit selling price.
// TotalPrice, Tax and DiscountAmount are derived; only the pricing
// operations in this package are allowed to write them.
type LineItem struct {
	ID                 uuid.UUID       `json:"id"`
	Kind               ItemKind        `json:"kind"`
	ProductID          string          `json:"productId,omitempty"`
	Name               string          `json:"name"`
	Quantity           int             `json:"quantity"`
	OriginalPrice      decimal.Decimal `json:"originalPrice"`
	FinalPrice         decimal.Decimal `json:"finalPrice"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	TotalPrice         decimal.Decimal `json:"totalPrice"`
	Tax                decimal.Decimal `json:"tax"`
	ReturnStatus       ReturnStatus    `json:"returnStatus"`
	ReturnedQuantity   int             `json:"returnedQuantity"`
}

// SameProduct reports whether both lines reference the same catalog product.
// Custom lines never match.
func (it LineItem) SameProduct(other LineItem) bool {
	if it.Kind != KindCatalog || other.Kind != KindCatalog {
		return false
	}
	return it.ProductID != "" && it.ProductID == other.ProductID
}

var uuidNew = uuid.New

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
