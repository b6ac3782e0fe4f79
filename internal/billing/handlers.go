package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/catalog"
	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/session"
)

// OrderLoader loads persisted order records for editing.
type OrderLoader interface {
	GetOrder(ctx context.Context, orderID string) (PersistedOrder, error)
}

// CatalogSource resolves catalog products when lines are added.
type CatalogSource interface {
	Lookup(ctx context.Context, productID string) (catalog.Product, error)
}

// SubmitQueue accepts finished billing snapshots for asynchronous delivery.
type SubmitQueue interface {
	Enqueue(ctx context.Context, data BillingData) error
}

// Handler exposes the editing session endpoints.
type Handler struct {
	Sessions *session.Store
	Orders   OrderLoader
	Catalog  CatalogSource
	Submits  SubmitQueue
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// Routes mounts the billing endpoints on the provided router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/{sessionId}", h.GetSession)
	r.Patch("/sessions/{sessionId}", h.PatchOrder)
	r.Post("/sessions/{sessionId}/items", h.AddItem)
	r.Patch("/sessions/{sessionId}/items/{itemId}", h.PatchItem)
	r.Delete("/sessions/{sessionId}/items/{itemId}", h.DeleteItem)
	r.Post("/sessions/{sessionId}/submit", h.Submit)
}

type createSessionRequest struct {
	OrderID string `json:"orderId"`
}

type addItemRequest struct {
	ProductID string           `json:"productId" validate:"omitempty,max=64"`
	Name      string           `json:"name" validate:"omitempty,max=255"`
	Price     *decimal.Decimal `json:"price"`
	Quantity  int              `json:"quantity" validate:"min=0"`
}

type patchItemRequest struct {
	Quantity           *int             `json:"quantity"`
	FinalPrice         *decimal.Decimal `json:"finalPrice"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage"`
}

type patchOrderRequest struct {
	GlobalDiscount        *decimal.Decimal `json:"globalDiscount"`
	TaxPercentage         *decimal.Decimal `json:"taxPercentage"`
	FreightCharges        *decimal.Decimal `json:"freightCharges"`
	CustomerID            *string          `json:"customerId"`
	SalesmanID            *string          `json:"salesmanId"`
	Notes                 *string          `json:"notes"`
	DeliveryDate          *time.Time       `json:"deliveryDate"`
	DeliveryFloor         *string          `json:"deliveryFloor"`
	IsFirstFloorAwareness *bool            `json:"isFirstFloorAwareness"`
	PaymentMethods        []PaymentMethod  `json:"paymentMethods"`
	FinanceData           map[string]any   `json:"financeData"`
}

// sessionView is the editor state returned to the presentation layer. The
// display block is already resolved against the loaded-vs-modified rule;
// the UI must not recompute it.
type sessionView struct {
	SessionID          string     `json:"sessionId"`
	OrderID            string     `json:"orderId,omitempty"`
	Items              []LineItem `json:"items"`
	Display            Display    `json:"display"`
	IsLoaded           bool       `json:"isLoaded"`
	IsModified         bool       `json:"isModified"`
	ValidationMessages []string   `json:"validationMessages,omitempty"`
}

func view(sessionID string, o *Order) sessionView {
	items := o.Items
	if items == nil {
		items = []LineItem{}
	}
	return sessionView{
		SessionID:          sessionID,
		OrderID:            o.OrderID,
		Items:              items,
		Display:            o.DisplayTotals(),
		IsLoaded:           o.Loaded,
		IsModified:         o.Modified,
		ValidationMessages: o.ValidationMessages,
	}
}

// CreateSession starts an editing session, either empty or loaded from a
// persisted order with the snapshot captured at load time.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return
	}

	var o *Order
	if req.OrderID != "" {
		if h.Orders == nil {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order loader not configured", nil)
			return
		}
		rec, err := h.Orders.GetOrder(r.Context(), req.OrderID)
		if err != nil {
			if obs.OrdersLoadedTotal != nil {
				obs.OrdersLoadedTotal.WithLabelValues("error").Inc()
			}
			common.JSONError(w, http.StatusBadGateway, common.CodeOrderLoadFailed, "failed to load order", nil)
			return
		}
		var traces []LineTrace
		o, traces = LoadOrder(rec)
		h.observeReconstruction(req.OrderID, traces)
	} else {
		o = NewOrder()
	}

	sessionID := uuid.NewString()
	if err := h.Sessions.Save(r.Context(), sessionID, o); err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to store session", nil)
		return
	}
	common.JSON(w, http.StatusCreated, view(sessionID, o))
}

// GetSession returns the current editor state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, o, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, view(sessionID, o))
}

// AddItem adds a catalog or custom line to the order.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID, o, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
			return
		}
	}

	if req.ProductID != "" {
		if h.Catalog == nil {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog not configured", nil)
			return
		}
		product, err := h.Catalog.Lookup(r.Context(), req.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
				return
			}
			common.JSONError(w, http.StatusBadGateway, common.CodeCatalogUnavailable, "failed to resolve product", nil)
			return
		}
		o.AddCatalogItem(product.ID, product.Name, product.Price)
	} else {
		if req.Name == "" || req.Price == nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "custom items require name and price", nil)
			return
		}
		o.AddCustomItem(req.Name, *req.Price, req.Quantity)
	}

	h.saveAndRespond(w, r, sessionID, o, http.StatusOK)
}

// PatchItem applies exactly one line edit: quantity, selling price or
// discount percentage. Each request is one discrete user action.
func (h *Handler) PatchItem(w http.ResponseWriter, r *http.Request) {
	sessionID, o, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid item id", nil)
		return
	}
	var req patchItemRequest
	if err := decodeJSON(r, &req, false); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return
	}
	fields := 0
	if req.Quantity != nil {
		fields++
	}
	if req.FinalPrice != nil {
		fields++
	}
	if req.DiscountPercentage != nil {
		fields++
	}
	if fields != 1 {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "exactly one of quantity, finalPrice, discountPercentage is required", nil)
		return
	}

	switch {
	case req.Quantity != nil:
		err = o.SetItemQuantity(itemID, *req.Quantity)
	case req.FinalPrice != nil:
		err = o.SetItemFinalPrice(itemID, *req.FinalPrice)
	default:
		err = o.SetItemDiscountPercentage(itemID, *req.DiscountPercentage)
	}
	if err != nil {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "line item not found", nil)
		return
	}
	h.saveAndRespond(w, r, sessionID, o, http.StatusOK)
}

// DeleteItem removes a line from the order.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	sessionID, o, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid item id", nil)
		return
	}
	if err := o.RemoveItem(itemID); err != nil {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "line item not found", nil)
		return
	}
	h.saveAndRespond(w, r, sessionID, o, http.StatusOK)
}

// PatchOrder applies order-level edits.
func (h *Handler) PatchOrder(w http.ResponseWriter, r *http.Request) {
	sessionID, o, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	var req patchOrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return
	}

	if req.GlobalDiscount != nil {
		o.SetGlobalDiscount(*req.GlobalDiscount)
	}
	if req.TaxPercentage != nil {
		o.SetTaxPercentage(*req.TaxPercentage)
	}
	if req.FreightCharges != nil {
		o.SetFreightCharges(*req.FreightCharges)
	}
	if req.CustomerID != nil {
		o.CustomerID = *req.CustomerID
	}
	if req.SalesmanID != nil {
		o.SalesmanID = *req.SalesmanID
	}
	if req.Notes != nil {
		o.Notes = *req.Notes
	}
	if req.DeliveryDate != nil {
		o.DeliveryDate = req.DeliveryDate
	}
	if req.DeliveryFloor != nil {
		o.DeliveryFloor = *req.DeliveryFloor
	}
	if req.IsFirstFloorAwareness != nil {
		o.IsFirstFloorAwareness = *req.IsFirstFloorAwareness
	}
	if req.PaymentMethods != nil {
		o.PaymentMethods = req.PaymentMethods
	}
	if req.FinanceData != nil {
		o.FinanceData = req.FinanceData
	}
	// Metadata edits still clear pending validation messages.
	o.ValidationMessages = nil

	h.saveAndRespond(w, r, sessionID, o, http.StatusOK)
}

// Submit runs the validation gates and, when they pass, hands the finished
// snapshot to the delivery queue. The editor does not wait for, retry or
// reconcile the persistence call.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, o, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if msgs := o.Validate(); len(msgs) > 0 {
		if err := h.Sessions.Save(r.Context(), sessionID, o); err != nil {
			h.Logger.Error().Err(err).Str("session_id", sessionID).Msg("session_save_failed")
		}
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidationFailed, "order cannot be submitted", msgs)
		return
	}

	data := o.BillingData()
	if h.Submits == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "submit queue not configured", nil)
		return
	}
	if err := h.Submits.Enqueue(r.Context(), data); err != nil {
		h.Logger.Error().Err(err).Str("session_id", sessionID).Msg("submit_enqueue_failed")
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeSubmitFailed, "failed to queue order submission", nil)
		return
	}
	if err := h.Sessions.Delete(r.Context(), sessionID); err != nil {
		h.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("session_delete_failed")
	}
	common.JSON(w, http.StatusAccepted, data)
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (string, *Order, bool) {
	sessionID := chi.URLParam(r, "sessionId")
	var o Order
	err := h.Sessions.Load(r.Context(), sessionID, &o)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "editing session not found", nil)
		} else {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to load session", nil)
		}
		return "", nil, false
	}
	return sessionID, &o, true
}

func (h *Handler) saveAndRespond(w http.ResponseWriter, r *http.Request, sessionID string, o *Order, status int) {
	if err := h.Sessions.Save(r.Context(), sessionID, o); err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to store session", nil)
		return
	}
	common.JSON(w, status, view(sessionID, o))
}

func (h *Handler) observeReconstruction(orderID string, traces []LineTrace) {
	fallbacks := 0
	for _, tr := range traces {
		if obs.ReconstructionRuleTotal != nil {
			obs.ReconstructionRuleTotal.WithLabelValues("rate", tr.RateRule).Inc()
			obs.ReconstructionRuleTotal.WithLabelValues("selling_price", tr.UnitRule).Inc()
		}
		if tr.Fallback {
			fallbacks++
			if obs.ReconstructionFallbackTotal != nil {
				obs.ReconstructionFallbackTotal.Inc()
			}
			h.Logger.Info().
				Str("order_id", orderID).
				Str("item_id", tr.ItemID).
				Str("rate_rule", tr.RateRule).
				Str("price_rule", tr.UnitRule).
				Msg("reconstruction_fallback")
		}
		if tr.RateLifted {
			h.Logger.Info().
				Str("order_id", orderID).
				Str("item_id", tr.ItemID).
				Msg("reconstruction_rate_lifted")
		}
	}
	if obs.OrdersLoadedTotal != nil {
		obs.OrdersLoadedTotal.WithLabelValues("ok").Inc()
	}
	h.Logger.Debug().
		Str("order_id", orderID).
		Int("lines", len(traces)).
		Int("fallback_lines", fallbacks).
		Msg("order_reconstructed")
}

func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
