package ledger

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cleancare-loyalty/pkg/db/option"
	"cleancare-loyalty/pkg/errutil"
	"cleancare-loyalty/pkg/repository"
	"cleancare-loyalty/pkg/sequence"
	"cleancare-loyalty/services/member"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	seq  sequence.Generator

	entries  repository.Repository[LedgerEntry]
	balances repository.Repository[MemberBalance]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
	Seq  sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		seq:  p.Seq,

		entries:  repository.ProvideStore[LedgerEntry](p.DB),
		balances: repository.ProvideStore[MemberBalance](p.DB),
	}
}

// Append inserts the entry, relying on the ref_key unique constraint to
// collapse retries. When another write already holds the ref_key the
// existing entry is returned with applied=false and no error; callers
// treat that as success.
func (s *Service) Append(ctx context.Context, entry *LedgerEntry) (*LedgerEntry, bool, error) {
	span := trace.SpanFromContext(ctx)
	opts := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("member_id", entry.MemberID),
		zap.String("ref_key", entry.RefKey),
	}

	if entry.MemberID == "" {
		return nil, false, errutil.BadRequest("member_id is required")
	}
	if entry.RefKey == "" {
		return nil, false, errutil.BadRequest("ref_key is required")
	}
	if entry.Delta == 0 {
		return nil, false, errutil.BadRequest("delta must be non-zero")
	}

	entry.ID = s.node.Generate().String()
	entry.CreatedAt = time.Now()
	if s.seq != nil {
		code, err := s.seq.NextLedgerCode(ctx)
		if err != nil {
			zap.L().With(opts...).Warn("failed to generate ledger code", zap.Error(err))
		} else {
			entry.TransactionCode = code
		}
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ref_key"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		zap.L().With(opts...).Error("failed to append ledger entry", zap.Error(res.Error))
		return nil, false, res.Error
	}

	if res.RowsAffected == 0 {
		existing, err := s.FindByRefKey(ctx, entry.RefKey)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, errutil.Internal("ref_key conflict but entry not found")
		}
		zap.L().With(opts...).Info("ledger entry already applied")
		return existing, false, nil
	}

	return entry, true, nil
}

// FindByRefKey is the existence probe used by callers that short-circuit
// before attempting a conditional insert. Append is idempotent on its
// own; the probe only avoids redundant work.
func (s *Service) FindByRefKey(ctx context.Context, refKey string) (*LedgerEntry, error) {
	return s.entries.FindOne(ctx, &LedgerEntry{RefKey: refKey})
}

// SumByMember folds every entry for the member. This is the
// authoritative balance.
func (s *Service) SumByMember(ctx context.Context, memberID string) (int64, error) {
	var sum int64
	err := s.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Where("member_id = ?", memberID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

// ListByMember returns entries newest first, over-fetching by one so the
// HTTP layer can build cursor page info.
func (s *Service) ListByMember(ctx context.Context, memberID string, limit int, opts ...option.QueryOption) ([]*LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	opts = append(opts,
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "id",
			OrderBy: "desc",
			Allow:   map[string]bool{"id": true},
		}),
		option.WithLimit(limit+1),
	)
	return s.entries.Find(ctx, &LedgerEntry{MemberID: memberID}, opts...)
}

// Refresh recomputes the member's balance from the ledger and upserts
// the cached row. Running it twice is a no-op. The denormalized
// members.points mirror is best-effort and never fails the refresh.
func (s *Service) Refresh(ctx context.Context, memberID string) (int64, error) {
	sum, err := s.SumByMember(ctx, memberID)
	if err != nil {
		return 0, err
	}

	balance := &MemberBalance{
		MemberID:  memberID,
		Balance:   sum,
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "member_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(balance).Error; err != nil {
		return 0, err
	}

	if err := s.db.WithContext(ctx).
		Model(&member.Member{}).
		Where("id = ?", memberID).
		Update("points", sum).Error; err != nil {
		zap.L().Warn("failed to mirror points onto member profile",
			zap.String("member_id", memberID), zap.Error(err))
	}

	return sum, nil
}

// GetBalance serves the cached projection, rebuilding it on a miss.
func (s *Service) GetBalance(ctx context.Context, memberID string) (int64, error) {
	cached, err := s.balances.FindOne(ctx, &MemberBalance{MemberID: memberID})
	if err != nil {
		return 0, err
	}
	if cached == nil {
		return s.Refresh(ctx, memberID)
	}
	return cached.Balance, nil
}

// Reconcile recomputes the balance and reports whether the cache had
// drifted from the ledger. Used by the out-of-band self-healing task.
func (s *Service) Reconcile(ctx context.Context, memberID string) (drifted bool, err error) {
	cached, err := s.balances.FindOne(ctx, &MemberBalance{MemberID: memberID})
	if err != nil {
		return false, err
	}

	sum, err := s.Refresh(ctx, memberID)
	if err != nil {
		return false, err
	}

	if cached != nil && cached.Balance != sum {
		zap.L().Warn("member balance cache drifted from ledger",
			zap.String("member_id", memberID),
			zap.Int64("cached", cached.Balance),
			zap.Int64("ledger", sum),
		)
		return true, nil
	}
	return false, nil
}
