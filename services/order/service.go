package order

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cleancare-loyalty/pkg/config"
	"cleancare-loyalty/pkg/errutil"
	"cleancare-loyalty/pkg/repository"
	"cleancare-loyalty/pkg/sequence"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	seq  sequence.Generator
	cfg  config.Loyalty

	orders repository.Repository[Order]
	items  repository.Repository[OrderItem]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
	Seq    sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		seq:  p.Seq,
		cfg:  p.Config.Loyalty,

		orders: repository.ProvideStore[Order](p.DB),
		items:  repository.ProvideStore[OrderItem](p.DB),
	}
}

// GrossItemTotal sums unit price times quantity over the cart lines.
func GrossItemTotal(items []ItemSnapshot) int64 {
	total := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromInt(it.UnitPrice).Mul(decimal.NewFromInt(it.Quantity))
		total = total.Add(line)
	}
	return total.IntPart()
}

// ComputeAward converts the net payable amount into points. One point
// per EarnRatePerPoint of currency, floored. A deduction at or above
// the gross total earns nothing.
func (s *Service) ComputeAward(snap OrderSnapshot) int64 {
	gross := decimal.NewFromInt(GrossItemTotal(snap.Items))
	net := gross.Sub(decimal.NewFromInt(snap.PointsDeductAmount))
	if net.Sign() <= 0 {
		return 0
	}
	return net.Div(decimal.NewFromInt(s.cfg.EarnRatePerPoint)).Floor().IntPart()
}

// CreateReservation persists an order and its lines from a canonical
// snapshot. The ledger is untouched here; reconciliation flows pick the
// order up afterwards.
func (s *Service) CreateReservation(ctx context.Context, snap OrderSnapshot) (*Order, error) {
	if snap.MemberID == "" {
		return nil, errutil.BadRequest("member_id is required")
	}
	if len(snap.Items) == 0 {
		return nil, errutil.BadRequest("order has no items")
	}

	o := &Order{
		ID:                 s.node.Generate().String(),
		MemberID:           snap.MemberID,
		CustomerEmail:      snap.CustomerEmail,
		Status:             StatusCreated,
		PointsUsed:         snap.PointsUsed,
		PointsDeductAmount: snap.PointsDeductAmount,
		TotalAmount:        GrossItemTotal(snap.Items),
	}
	if snap.OrderID != "" {
		o.ID = snap.OrderID
	}
	if snap.Status != "" {
		o.Status = snap.Status
	}

	if s.seq != nil {
		code, err := s.seq.NextOrderCode(ctx)
		if err != nil {
			zap.L().Warn("failed to generate order code", zap.Error(err))
		} else {
			o.OrderCode = code
		}
	}

	for _, it := range snap.Items {
		o.Items = append(o.Items, OrderItem{
			ID:        s.node.Generate().String(),
			OrderID:   o.ID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder loads the order with its lines.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, errutil.BadRequest("order_id is required")
	}

	o, err := s.orders.FindOne(ctx, &Order{ID: orderID})
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}

	items, err := s.items.Find(ctx, &OrderItem{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		o.Items = append(o.Items, *it)
	}
	return o, nil
}

// MarkStatus moves the order's lifecycle field. The loyalty core is not
// the owner of order state; this exists so intake round-trips work in a
// standalone deployment.
func (s *Service) MarkStatus(ctx context.Context, orderID, status string) error {
	if orderID == "" || status == "" {
		return errutil.BadRequest("order_id and status are required")
	}
	return s.orders.Update(ctx, orderID, map[string]any{"status": status})
}
