package task

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cleancare-loyalty/pkg/rediskey"
	"cleancare-loyalty/services/ledger"
	"cleancare-loyalty/services/notification"
)

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	redis    *redis.Client
	enqueuer *notification.Enqueuer
}

type Params struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Redis    *redis.Client          `optional:"true"`
	Enqueuer *notification.Enqueuer `optional:"true"`
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		redis:    p.Redis,
		enqueuer: p.Enqueuer,
	}
}

// RequestBalanceSweep hands the sweep to the task queue so whichever
// worker wins the redis lock runs it. Without a queue backend the
// sweep runs inline.
func (s *Service) RequestBalanceSweep(ctx context.Context) error {
	if s.enqueuer.Ready() {
		return s.enqueuer.BalanceSweep(ctx)
	}
	return s.EnqueueBalanceSweep(ctx)
}

func (s *Service) HandleBalanceSweep(ctx context.Context, t *asynq.Task) error {
	return s.EnqueueBalanceSweep(ctx)
}

// EnqueueBalanceSweep fans out one refresh task per member that has
// ledger activity. The refresh itself recomputes from the ledger, so a
// sweep run is idempotent; running it twice just re-heals.
func (s *Service) EnqueueBalanceSweep(ctx context.Context) error {
	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, rediskey.BuildSweepLockKey("balance"), "1", 30*time.Minute).Result()
		if err != nil {
			zap.L().Warn("failed to take sweep lock", zap.Error(err))
		} else if !ok {
			zap.L().Info("balance sweep already running elsewhere")
			return nil
		}
	}

	now := time.Now()
	run := &SweepRun{
		ID:        s.node.Generate().String(),
		Status:    "running",
		StartedAt: &now,
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return err
	}

	var memberIDs []string
	if err := s.db.WithContext(ctx).
		Model(&ledger.LedgerEntry{}).
		Distinct("member_id").
		Pluck("member_id", &memberIDs).Error; err != nil {
		s.finishRun(ctx, run, "failed", err)
		return err
	}

	var enqueued int64
	for _, memberID := range memberIDs {
		if err := s.enqueuer.RefreshBalance(ctx, notification.RefreshBalancePayload{MemberID: memberID}); err != nil {
			zap.L().Warn("failed to enqueue balance refresh",
				zap.String("member_id", memberID), zap.Error(err))
			continue
		}
		enqueued++
	}

	run.Members = enqueued
	s.finishRun(ctx, run, "success", nil)

	zap.L().Info("balance sweep enqueued",
		zap.Int64("members", enqueued),
		zap.String("run_id", run.ID),
	)
	return nil
}

func (s *Service) finishRun(ctx context.Context, run *SweepRun, status string, cause error) {
	now := time.Now()
	updates := map[string]any{
		"status":       status,
		"members":      run.Members,
		"completed_at": now,
	}
	if cause != nil {
		updates["error_msg"] = cause.Error()
	}
	if err := s.db.WithContext(ctx).
		Model(&SweepRun{}).
		Where("id = ?", run.ID).
		Updates(updates).Error; err != nil {
		zap.L().Warn("failed to finalize sweep run", zap.String("run_id", run.ID), zap.Error(err))
	}
}
