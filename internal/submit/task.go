package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-billing/internal/billing"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// TypeBillingSubmit is the asynq task type carrying a finished BillingData
// snapshot to the order service. The handoff is fire-and-forget from the
// editor's perspective; retries and failure handling live on this side of
// the boundary.
const TypeBillingSubmit = "billing:submit"

// Enqueuer hands finished billing snapshots to the task queue.
type Enqueuer struct {
	Client   *asynq.Client
	Queue    string
	MaxRetry int
}

// Enqueue serialises the snapshot and schedules its delivery.
func (e Enqueuer) Enqueue(ctx context.Context, data billing.BillingData) error {
	if e.Client == nil {
		return errors.New("submit: enqueuer not configured")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("submit: encode billing data: %w", err)
	}
	opts := []asynq.Option{}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	task := asynq.NewTask(TypeBillingSubmit, payload, opts...)
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		if obs.SubmitEnqueuedTotal != nil {
			obs.SubmitEnqueuedTotal.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("submit: enqueue: %w", err)
	}
	if obs.SubmitEnqueuedTotal != nil {
		obs.SubmitEnqueuedTotal.WithLabelValues("ok").Inc()
	}
	return nil
}

// DecodePayload restores the billing snapshot from a task payload.
func DecodePayload(t *asynq.Task) (billing.BillingData, error) {
	var data billing.BillingData
	if err := json.Unmarshal(t.Payload(), &data); err != nil {
		return data, fmt.Errorf("submit: decode payload: %w", err)
	}
	return data, nil
}
