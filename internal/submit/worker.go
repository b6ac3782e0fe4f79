package submit

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/billing"
	"github.com/noah-isme/backend-billing/internal/lock"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// OrderWriter is the slice of the order-service client the worker needs.
type OrderWriter interface {
	CreateOrder(ctx context.Context, data billing.BillingData) error
	UpdateOrder(ctx context.Context, data billing.BillingData) error
}

// Worker delivers queued billing snapshots to the order service. An OrderID
// on the payload selects update-in-place; otherwise a new order is created.
// When a Locker is configured, deliveries for the same order are serialised
// so two queued snapshots cannot race each other.
type Worker struct {
	Orders  OrderWriter
	Locks   *lock.Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// HandleSubmit processes one queued submission. Returning an error lets
// asynq retry with its own backoff until MaxRetry is exhausted.
func (w Worker) HandleSubmit(ctx context.Context, t *asynq.Task) error {
	if w.Orders == nil {
		return errors.New("submit: worker not configured")
	}
	data, err := DecodePayload(t)
	if err != nil {
		// Malformed payloads never become deliverable; don't retry them.
		w.Logger.Error().Err(err).Msg("submit_payload_undecodable")
		return nil
	}

	err = w.deliver(ctx, data)
	if err != nil {
		if obs.SubmitDeliveryTotal != nil {
			obs.SubmitDeliveryTotal.WithLabelValues("error").Inc()
		}
		w.Logger.Error().Err(err).Str("order_id", data.OrderID).Msg("submit_delivery_failed")
		return err
	}
	if obs.SubmitDeliveryTotal != nil {
		obs.SubmitDeliveryTotal.WithLabelValues("ok").Inc()
	}
	w.Logger.Info().Str("order_id", data.OrderID).Str("customer", data.Customer).Msg("submit_delivered")
	return nil
}

func (w Worker) deliver(ctx context.Context, data billing.BillingData) error {
	if data.OrderID == "" {
		return w.Orders.CreateOrder(ctx, data)
	}
	if w.Locks == nil {
		return w.Orders.UpdateOrder(ctx, data)
	}
	return w.Locks.WithLock(ctx, "billing:submit:lock:"+data.OrderID, w.LockTTL, func(ctx context.Context) error {
		return w.Orders.UpdateOrder(ctx, data)
	})
}

// Register attaches the worker's handlers to an asynq mux.
func (w Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeBillingSubmit, w.HandleSubmit)
}
