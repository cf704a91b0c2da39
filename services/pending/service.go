package pending

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cleancare-loyalty/pkg/db/option"
	"cleancare-loyalty/pkg/errutil"
	"cleancare-loyalty/pkg/repository"
	"cleancare-loyalty/services/ledger"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	ledger *ledger.Service

	awards repository.Repository[PendingAward]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Ledger *ledger.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		ledger: p.Ledger,

		awards: repository.ProvideStore[PendingAward](p.DB),
	}
}

// missingRelation reports whether err is the database telling us the
// pending_awards table was never migrated. Deployments that predate the
// pending queue hit this; callers degrade instead of crashing.
func missingRelation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "error 1146")
}

func wrapStorage(err error, msg string) error {
	if missingRelation(err) {
		return errutil.DependencyMissing(msg, errutil.WithErr(err))
	}
	return err
}

// Create queues a deferred award. Retried intake for the same
// (member, order) pair returns the row already on file, claimed rows
// included. A claimed row means the order's award went through the
// full pending cycle; minting a fresh row for it would credit the
// order twice under a new claim ref_key.
func (s *Service) Create(ctx context.Context, award *PendingAward) (*PendingAward, error) {
	if award.MemberID == "" {
		return nil, errutil.BadRequest("member_id is required")
	}
	if award.Points <= 0 {
		return nil, errutil.BadRequest("points must be positive")
	}

	if award.OrderID != "" {
		for _, status := range []Status{StatusPending, StatusClaimed} {
			existing, err := s.awards.FindOne(ctx, &PendingAward{
				MemberID: award.MemberID,
				OrderID:  award.OrderID,
				Status:   status,
			})
			if err != nil {
				return nil, wrapStorage(err, "pending awards unavailable")
			}
			if existing != nil {
				return existing, nil
			}
		}
	}

	award.ID = s.node.Generate().String()
	award.Status = StatusPending
	award.CreatedAt = time.Now()
	award.ClaimedAt = nil

	if err := s.awards.Create(ctx, award); err != nil {
		return nil, wrapStorage(err, "pending awards unavailable")
	}
	return award, nil
}

// List returns the member's pending rows newest first. Filtering by
// status is optional; an empty status returns everything.
func (s *Service) List(ctx context.Context, memberID string, status Status) ([]*PendingAward, error) {
	if memberID == "" {
		return nil, errutil.BadRequest("member_id is required")
	}

	rows, err := s.awards.Find(ctx, &PendingAward{MemberID: memberID, Status: status},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
	if err != nil {
		return nil, wrapStorage(err, "pending awards unavailable")
	}
	return rows, nil
}

type ClaimResult struct {
	Pending        *PendingAward       `json:"pending"`
	Entry          *ledger.LedgerEntry `json:"entry,omitempty"`
	Balance        int64               `json:"balance"`
	AlreadyClaimed bool                `json:"already_claimed"`
}

// Claim converts a pending award into points. The ledger credit lands
// first and the status flip second, so a crash between the two leaves a
// claimable row whose retry dedups on the ledger ref_key rather than a
// credited entry nobody can see.
func (s *Service) Claim(ctx context.Context, memberID, pendingID string) (*ClaimResult, error) {
	span := trace.SpanFromContext(ctx)
	opts := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("member_id", memberID),
		zap.String("pending_id", pendingID),
	}

	if pendingID == "" {
		return nil, errutil.BadRequest("pending_id is required")
	}

	award, err := s.awards.FindOne(ctx, &PendingAward{ID: pendingID})
	if err != nil {
		return nil, wrapStorage(err, "pending awards unavailable")
	}
	if award == nil || (memberID != "" && award.MemberID != memberID) {
		return nil, errutil.NotFound("pending award not found")
	}

	switch award.Status {
	case StatusClaimed:
		balance, err := s.ledger.GetBalance(ctx, award.MemberID)
		if err != nil {
			return nil, err
		}
		return &ClaimResult{Pending: award, Balance: balance, AlreadyClaimed: true}, nil
	case StatusCancelled:
		return nil, errutil.Conflict("pending award was cancelled")
	}

	entry, applied, err := s.ledger.Append(ctx, &ledger.LedgerEntry{
		MemberID: award.MemberID,
		Delta:    award.Points,
		Reason:   award.Reason,
		OrderID:  award.OrderID,
		RefKey:   ledger.PendingClaimRefKey(award.ID),
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		zap.L().With(opts...).Info("pending claim credit already on ledger")
	}

	balance, err := s.ledger.Refresh(ctx, award.MemberID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&PendingAward{}).
		Where("id = ? AND status = ?", award.ID, StatusPending).
		Updates(map[string]any{"status": StatusClaimed, "claimed_at": now})
	if res.Error != nil {
		return nil, wrapStorage(res.Error, "pending awards unavailable")
	}
	if res.RowsAffected == 0 {
		current, err := s.awards.FindOne(ctx, &PendingAward{ID: award.ID}, option.WithLockingUpdate())
		if err != nil {
			return nil, wrapStorage(err, "pending awards unavailable")
		}
		if current != nil && current.Status == StatusClaimed {
			return &ClaimResult{Pending: current, Entry: entry, Balance: balance, AlreadyClaimed: true}, nil
		}
		return nil, errutil.Conflict("pending award changed state during claim")
	}

	award.Status = StatusClaimed
	award.ClaimedAt = &now
	return &ClaimResult{Pending: award, Entry: entry, Balance: balance, AlreadyClaimed: !applied}, nil
}

// ClaimByOrder claims the member's pending award for the order when the
// caller only knows the order identity.
func (s *Service) ClaimByOrder(ctx context.Context, memberID, orderID string) (*ClaimResult, error) {
	if memberID == "" || orderID == "" {
		return nil, errutil.BadRequest("member_id and order_id are required")
	}

	award, err := s.awards.FindOne(ctx, &PendingAward{
		MemberID: memberID,
		OrderID:  orderID,
		Status:   StatusPending,
	})
	if err != nil {
		return nil, wrapStorage(err, "pending awards unavailable")
	}
	if award == nil {
		claimed, err := s.awards.FindOne(ctx, &PendingAward{
			MemberID: memberID,
			OrderID:  orderID,
			Status:   StatusClaimed,
		})
		if err != nil {
			return nil, wrapStorage(err, "pending awards unavailable")
		}
		if claimed == nil {
			return nil, errutil.NotFound("pending award not found")
		}
		award = claimed
	}

	return s.Claim(ctx, memberID, award.ID)
}

// Cancel voids every still-pending award for the order. Claimed rows
// keep their credit; the refund flow compensates on the ledger instead.
func (s *Service) Cancel(ctx context.Context, memberID, orderID string) (int64, error) {
	if memberID == "" || orderID == "" {
		return 0, errutil.BadRequest("member_id and order_id are required")
	}

	res := s.db.WithContext(ctx).
		Model(&PendingAward{}).
		Where("member_id = ? AND order_id = ? AND status = ?", memberID, orderID, StatusPending).
		Update("status", StatusCancelled)
	if res.Error != nil {
		return 0, wrapStorage(res.Error, "pending awards unavailable")
	}
	return res.RowsAffected, nil
}
