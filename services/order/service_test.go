package order

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cleancare-loyalty/pkg/config"
	"cleancare-loyalty/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Order{}, &OrderItem{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Loyalty.EarnRatePerPoint = 100

	return NewService(ServiceParams{DB: db, Node: node, Config: cfg})
}

func TestComputeAwardFloorsNetTotal(t *testing.T) {
	svc := newTestService(t)

	items := []ItemSnapshot{
		{Name: "冷氣清洗", UnitPrice: 2000, Quantity: 1},
		{Name: "濾網", UnitPrice: 150, Quantity: 3},
	}
	require.Equal(t, int64(2450), GrossItemTotal(items))

	require.Equal(t, int64(24), svc.ComputeAward(OrderSnapshot{Items: items}))
	require.Equal(t, int64(19), svc.ComputeAward(OrderSnapshot{Items: items, PointsDeductAmount: 500}))
}

func TestComputeAwardNeverNegative(t *testing.T) {
	svc := newTestService(t)

	items := []ItemSnapshot{{UnitPrice: 80, Quantity: 1}}
	require.Equal(t, int64(0), svc.ComputeAward(OrderSnapshot{Items: items}))
	require.Equal(t, int64(0), svc.ComputeAward(OrderSnapshot{Items: items, PointsDeductAmount: 80}))
	require.Equal(t, int64(0), svc.ComputeAward(OrderSnapshot{Items: items, PointsDeductAmount: 500}))
	require.Equal(t, int64(0), svc.ComputeAward(OrderSnapshot{}))
}

func TestSnapshotFromPayloadFieldFallbacks(t *testing.T) {
	camel := SnapshotFromPayload(map[string]any{
		"orderId":            "o1",
		"memberId":           "m1",
		"pointsUsed":         float64(19),
		"pointsDeductAmount": float64(500),
		"items": []any{
			map[string]any{"name": "清洗", "unitPrice": float64(2000), "quantity": float64(1)},
		},
	})
	require.Equal(t, "o1", camel.OrderID)
	require.Equal(t, "m1", camel.MemberID)
	require.Equal(t, int64(19), camel.PointsUsed)
	require.Equal(t, int64(500), camel.PointsDeductAmount)
	require.Len(t, camel.Items, 1)
	require.Equal(t, int64(2000), camel.Items[0].UnitPrice)

	snake := SnapshotFromPayload(map[string]any{
		"order_id":             "o2",
		"member_id":            "m2",
		"points_used":          float64(7),
		"points_deduct_amount": float64(100),
		"email":                "a@b.c",
		"order_items": []any{
			map[string]any{"product_name": "保養", "price": float64(990), "qty": float64(2)},
		},
	})
	require.Equal(t, "o2", snake.OrderID)
	require.Equal(t, int64(7), snake.PointsUsed)
	require.Equal(t, int64(100), snake.PointsDeductAmount)
	require.Equal(t, "a@b.c", snake.CustomerEmail)
	require.Len(t, snake.Items, 1)
	require.Equal(t, int64(990), snake.Items[0].UnitPrice)
	require.Equal(t, int64(2), snake.Items[0].Quantity)
}

func TestSnapshotFromJSON(t *testing.T) {
	snap, err := SnapshotFromJSON([]byte(`{"orderId":"o1","memberId":"m1","items":[{"price":100,"quantity":2}]}`))
	require.NoError(t, err)
	require.Equal(t, "o1", snap.OrderID)
	require.Equal(t, int64(200), GrossItemTotal(snap.Items))

	_, err = SnapshotFromJSON([]byte(`{`))
	require.Error(t, err)
}

func TestCreateReservationPersistsOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	o, err := svc.CreateReservation(ctx, OrderSnapshot{
		MemberID:           "m1",
		CustomerEmail:      "a@b.c",
		PointsDeductAmount: 500,
		Items: []ItemSnapshot{
			{Name: "冷氣清洗", UnitPrice: 2000, Quantity: 1},
			{Name: "濾網", UnitPrice: 150, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, o.ID)
	require.Equal(t, StatusCreated, o.Status)
	require.Equal(t, int64(2450), o.TotalAmount)

	loaded, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Items, 2)
	require.Equal(t, Snapshot(loaded).PointsDeductAmount, int64(500))
}

func TestCreateReservationValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateReservation(ctx, OrderSnapshot{Items: []ItemSnapshot{{UnitPrice: 1, Quantity: 1}}})
	require.Error(t, err)

	_, err = svc.CreateReservation(ctx, OrderSnapshot{MemberID: "m1"})
	require.Error(t, err)
}

func TestGetOrderMissing(t *testing.T) {
	svc := newTestService(t)

	o, err := svc.GetOrder(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, o)
}

func TestMarkStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	o, err := svc.CreateReservation(ctx, OrderSnapshot{
		MemberID: "m1",
		Items:    []ItemSnapshot{{Name: "清洗", UnitPrice: 1000, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkStatus(ctx, o.ID, StatusCancelled))

	loaded, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, loaded.Status)
}
