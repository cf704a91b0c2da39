package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cleancare-loyalty/services/ledger"
)

type Worker struct {
	db     *gorm.DB
	ledger *ledger.Service
}

type WorkerParams struct {
	fx.In
	DB     *gorm.DB
	Ledger *ledger.Service
}

func NewWorker(p WorkerParams) *Worker {
	return &Worker{db: p.DB, ledger: p.Ledger}
}

func (w *Worker) HandleNotify(ctx context.Context, t *asynq.Task) error {
	var payload NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("member_id", payload.MemberID),
		zap.String("trace_id", payload.TraceID),
	)

	row := &Notification{
		ID:        uuid.NewString(),
		MemberID:  payload.MemberID,
		Kind:      payload.Kind,
		Title:     payload.Title,
		Body:      payload.Body,
		CreatedAt: time.Now(),
	}
	if err := w.db.WithContext(ctx).Create(row).Error; err != nil {
		zapLog.Error("failed to store notification", zap.Error(err))
		return err
	}

	zapLog.Info("notification stored", zap.String("notification_id", row.ID))
	return nil
}

// HandleRefreshBalance is the out-of-band self-healing pass. It runs
// Reconcile rather than a plain Refresh so cache drift gets logged.
func (w *Worker) HandleRefreshBalance(ctx context.Context, t *asynq.Task) error {
	var payload RefreshBalancePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	drifted, err := w.ledger.Reconcile(ctx, payload.MemberID)
	if err != nil {
		zap.L().Error("failed to refresh balance",
			zap.String("member_id", payload.MemberID),
			zap.String("trace_id", payload.TraceID),
			zap.Error(err),
		)
		return err
	}
	if drifted {
		zap.L().Info("balance cache healed", zap.String("member_id", payload.MemberID))
	}
	return nil
}

func registerHandlers(mux *asynq.ServeMux, w *Worker) {
	mux.HandleFunc(TypeNotify, w.HandleNotify)
	mux.HandleFunc(TypeRefreshBalance, w.HandleRefreshBalance)
}
