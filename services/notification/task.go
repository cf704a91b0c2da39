package notification

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"cleancare-loyalty/pkg/taskname"
)

const (
	TypeNotify         = taskname.LoyaltyNotify
	TypeRefreshBalance = taskname.LoyaltyRefreshBalance
	TypeBalanceSweep   = taskname.LoyaltyBalanceSweep
)

type NotifyPayload struct {
	MemberID string `json:"member_id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	TraceID  string `json:"trace_id,omitempty"`
}

type RefreshBalancePayload struct {
	MemberID string `json:"member_id"`
	TraceID  string `json:"trace_id,omitempty"`
}

// Enqueuer pushes loyalty side effect tasks onto the queue. It is
// optional everywhere it is injected; a deployment without redis simply
// skips the side effects.
type Enqueuer struct {
	client *asynq.Client
}

type EnqueuerParams struct {
	fx.In
	Client *asynq.Client `optional:"true"`
}

func NewEnqueuer(p EnqueuerParams) *Enqueuer {
	return &Enqueuer{client: p.Client}
}

func (e *Enqueuer) Notify(ctx context.Context, payload NotifyPayload) error {
	return e.enqueue(ctx, TypeNotify, payload)
}

func (e *Enqueuer) RefreshBalance(ctx context.Context, payload RefreshBalancePayload) error {
	return e.enqueue(ctx, TypeRefreshBalance, payload)
}

func (e *Enqueuer) BalanceSweep(ctx context.Context) error {
	return e.enqueue(ctx, TypeBalanceSweep, struct{}{})
}

// Ready reports whether a queue backend is attached. Callers that can
// run the work inline use it to pick a path instead of silently
// dropping the task.
func (e *Enqueuer) Ready() bool {
	return e != nil && e.client != nil
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType string, payload any) error {
	if e == nil || e.client == nil {
		return nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), asynq.Queue("low"))
	if err != nil {
		return err
	}

	zap.L().Debug("enqueued loyalty task",
		zap.String("task_type", taskType),
		zap.String("task_id", info.ID),
	)
	return nil
}
