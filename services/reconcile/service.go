package reconcile

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"cleancare-loyalty/pkg/config"
	"cleancare-loyalty/pkg/errutil"
	"cleancare-loyalty/services/ledger"
	"cleancare-loyalty/services/notification"
	"cleancare-loyalty/services/order"
	"cleancare-loyalty/services/pending"
)

const (
	ReasonOrderUse    = "訂單折抵"
	ReasonOrderRefund = "取消訂單退回"
	ReasonOrderAward  = "消費回饋"
	ReasonReviewBonus = "評價回饋"
)

// Service orchestrates the workflows that touch the ledger. Each one is
// independently idempotent and safe to retry end-to-end.
type Service struct {
	cfg      config.Loyalty
	ledger   *ledger.Service
	pending  *pending.Service
	orders   *order.Service
	enqueuer *notification.Enqueuer
}

type ServiceParams struct {
	fx.In
	Config   *config.Config
	Ledger   *ledger.Service
	Pending  *pending.Service
	Orders   *order.Service
	Enqueuer *notification.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		cfg:      p.Config.Loyalty,
		ledger:   p.Ledger,
		pending:  p.Pending,
		orders:   p.Orders,
		enqueuer: p.Enqueuer,
	}
}

func traceFields(ctx context.Context, memberID, orderID string) []zap.Field {
	span := trace.SpanFromContext(ctx)
	return []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("member_id", memberID),
		zap.String("order_id", orderID),
	}
}

// notify is a non-critical side effect. Failure is logged and dropped.
func (s *Service) notify(ctx context.Context, payload notification.NotifyPayload) {
	payload.TraceID = trace.SpanFromContext(ctx).SpanContext().TraceID().String()
	if err := s.enqueuer.Notify(ctx, payload); err != nil {
		zap.L().Warn("failed to enqueue notification",
			zap.String("member_id", payload.MemberID), zap.Error(err))
	}
}

type UseResult struct {
	Entry          *ledger.LedgerEntry `json:"entry"`
	Balance        int64               `json:"balance"`
	AlreadyApplied bool                `json:"already_applied"`
}

// UseOnCreate debits the points a member spent at checkout. Retries
// collapse onto the single order_points_used entry.
func (s *Service) UseOnCreate(ctx context.Context, memberID, orderID string, points int64) (*UseResult, error) {
	if points <= 0 {
		return nil, errutil.BadRequest("points must be positive")
	}
	if orderID == "" {
		return nil, errutil.BadRequest("order_id is required")
	}

	refKey := ledger.UsedRefKey(orderID)
	if existing, err := s.ledger.FindByRefKey(ctx, refKey); err != nil {
		return nil, err
	} else if existing != nil {
		balance, err := s.ledger.GetBalance(ctx, existing.MemberID)
		if err != nil {
			return nil, err
		}
		zap.L().With(traceFields(ctx, memberID, orderID)...).Info("order points already debited")
		return &UseResult{Entry: existing, Balance: balance, AlreadyApplied: true}, nil
	}

	entry, applied, err := s.ledger.Append(ctx, &ledger.LedgerEntry{
		MemberID: memberID,
		Delta:    -points,
		Reason:   ReasonOrderUse,
		OrderID:  orderID,
		RefKey:   refKey,
	})
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.Refresh(ctx, memberID)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.NotifyPayload{
		MemberID: memberID,
		Kind:     "points_used",
		Title:    ReasonOrderUse,
	})

	return &UseResult{Entry: entry, Balance: balance, AlreadyApplied: !applied}, nil
}

type AwardResult struct {
	Points        int64                 `json:"points"`
	Pending       *pending.PendingAward `json:"pending,omitempty"`
	AlreadyQueued bool                  `json:"already_queued"`
}

// ApplyOrderAward computes the earn implied by the order and stages it
// as a pending award. Nothing lands on the ledger until the member
// claims it. An order that already has a pending or claimed row keeps
// that row; a retried intake must never stage the same order twice.
func (s *Service) ApplyOrderAward(ctx context.Context, snap order.OrderSnapshot) (*AwardResult, error) {
	if snap.MemberID == "" {
		return nil, errutil.BadRequest("member_id is required")
	}

	points := s.orders.ComputeAward(snap)
	if points <= 0 {
		return &AwardResult{Points: 0}, nil
	}

	existing, err := s.pending.List(ctx, snap.MemberID, "")
	if err != nil {
		return nil, err
	}
	for _, row := range existing {
		if row.OrderID == snap.OrderID && row.Status != pending.StatusCancelled {
			return &AwardResult{Points: row.Points, Pending: row, AlreadyQueued: true}, nil
		}
	}

	award, err := s.pending.Create(ctx, &pending.PendingAward{
		MemberID: snap.MemberID,
		OrderID:  snap.OrderID,
		Points:   points,
		Reason:   ReasonOrderAward,
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.NotifyPayload{
		MemberID: snap.MemberID,
		Kind:     "points_pending",
		Title:    ReasonOrderAward,
	})

	return &AwardResult{Points: points, Pending: award}, nil
}

type BonusResult struct {
	Entry          *ledger.LedgerEntry `json:"entry,omitempty"`
	Points         int64               `json:"points"`
	Balance        int64               `json:"balance"`
	AlreadyApplied bool                `json:"already_applied"`
}

// ReviewBonus credits the fixed feedback bonus directly. The review
// action itself is the trust gate, so there is no pending stage; the
// ref_key still collapses repeat submissions of the same kind.
func (s *Service) ReviewBonus(ctx context.Context, memberID, orderID string, kind ledger.ReviewKind) (*BonusResult, error) {
	if memberID == "" || orderID == "" {
		return nil, errutil.BadRequest("member_id and order_id are required")
	}
	if !kind.Valid() {
		return nil, errutil.BadRequest("unknown review kind")
	}

	var points int64
	switch kind {
	case ledger.ReviewGood:
		points = s.cfg.ReviewBonus.Good
	case ledger.ReviewSuggest:
		points = s.cfg.ReviewBonus.Suggest
	case ledger.ReviewScore:
		points = s.cfg.ReviewBonus.Score
	}
	if points <= 0 {
		return &BonusResult{Points: 0}, nil
	}

	entry, applied, err := s.ledger.Append(ctx, &ledger.LedgerEntry{
		MemberID: memberID,
		Delta:    points,
		Reason:   ReasonReviewBonus,
		OrderID:  orderID,
		RefKey:   ledger.ReviewBonusRefKey(orderID, memberID, kind),
	})
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.Refresh(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if applied {
		s.notify(ctx, notification.NotifyPayload{
			MemberID: memberID,
			Kind:     "review_bonus",
			Title:    ReasonReviewBonus,
		})
	}

	return &BonusResult{Entry: entry, Points: entry.Delta, Balance: balance, AlreadyApplied: !applied}, nil
}

type RefundResult struct {
	Entry           *ledger.LedgerEntry `json:"entry,omitempty"`
	Refunded        int64               `json:"refunded"`
	Balance         int64               `json:"balance"`
	AlreadyApplied  bool                `json:"already_applied"`
	NothingToRefund bool                `json:"nothing_to_refund"`
}

// RefundOrder returns the points an order debited. The recorded debit
// is authoritative for the amount and for which member gets the credit;
// the order row's points_used field is
// only consulted for orders that predate ledger tracking. When neither
// yields a positive amount the refund is a business-valid no-op.
func (s *Service) RefundOrder(ctx context.Context, memberID, orderID string) (*RefundResult, error) {
	if orderID == "" {
		return nil, errutil.BadRequest("order_id is required")
	}
	zapLog := zap.L().With(traceFields(ctx, memberID, orderID)...)

	refundRef := ledger.RefundRefKey(orderID)
	if existing, err := s.ledger.FindByRefKey(ctx, refundRef); err != nil {
		return nil, err
	} else if existing != nil {
		balance, err := s.ledger.GetBalance(ctx, existing.MemberID)
		if err != nil {
			return nil, err
		}
		zapLog.Info("order points already refunded")
		return &RefundResult{Entry: existing, Refunded: existing.Delta, Balance: balance, AlreadyApplied: true}, nil
	}

	var amount int64
	used, err := s.ledger.FindByRefKey(ctx, ledger.UsedRefKey(orderID))
	if err != nil {
		return nil, err
	}
	if used != nil {
		amount = -used.Delta
		if memberID != "" && memberID != used.MemberID {
			zapLog.Warn("refund caller disagrees with recorded debit, using ledger member",
				zap.String("debit_member_id", used.MemberID))
		}
		memberID = used.MemberID
	} else {
		o, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if o != nil {
			amount = o.PointsUsed
			if memberID == "" {
				memberID = o.MemberID
			}
		}
	}

	if amount <= 0 {
		zapLog.Info("no points to refund")
		return &RefundResult{NothingToRefund: true}, nil
	}
	if memberID == "" {
		return nil, errutil.NotFound("member not found")
	}

	entry, applied, err := s.ledger.Append(ctx, &ledger.LedgerEntry{
		MemberID: memberID,
		Delta:    amount,
		Reason:   ReasonOrderRefund,
		OrderID:  orderID,
		RefKey:   refundRef,
	})
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.Refresh(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if _, err := s.pending.Cancel(ctx, memberID, orderID); err != nil {
		zapLog.Warn("failed to cancel pending awards for refunded order", zap.Error(err))
	}

	s.notify(ctx, notification.NotifyPayload{
		MemberID: memberID,
		Kind:     "points_refunded",
		Title:    ReasonOrderRefund,
	})

	return &RefundResult{Entry: entry, Refunded: entry.Delta, Balance: balance, AlreadyApplied: !applied}, nil
}
