package pending

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cleancare-loyalty/pkg/errutil"
	"cleancare-loyalty/services/ledger"
	"cleancare-loyalty/services/member"
	"cleancare-loyalty/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T, models ...any) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, models...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	return NewService(ServiceParams{DB: db, Node: node, Ledger: ledgerSvc})
}

func fullSchema() []any {
	return []any{
		&member.Member{},
		&ledger.LedgerEntry{},
		&ledger.MemberBalance{},
		&PendingAward{},
	}
}

func TestCreateRejectsNonPositivePoints(t *testing.T) {
	svc := newTestService(t, fullSchema()...)

	_, err := svc.Create(context.Background(), &PendingAward{MemberID: "m1", OrderID: "o1", Points: 0})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), &PendingAward{MemberID: "m1", OrderID: "o1", Points: -5})
	require.Error(t, err)
}

func TestCreateIdempotentPerOrder(t *testing.T) {
	svc := newTestService(t, fullSchema()...)
	ctx := context.Background()

	first, err := svc.Create(ctx, &PendingAward{MemberID: "m1", OrderID: "o1", Points: 24, Reason: "消費回饋"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, first.Status)

	second, err := svc.Create(ctx, &PendingAward{MemberID: "m1", OrderID: "o1", Points: 24, Reason: "消費回饋"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	rows, err := svc.List(ctx, "m1", StatusPending)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCreateAfterClaimReturnsClaimedRow(t *testing.T) {
	svc := newTestService(t, fullSchema()...)
	ctx := context.Background()

	staged, err := svc.Create(ctx, &PendingAward{MemberID: "m1", OrderID: "o1", Points: 24, Reason: "消費回饋"})
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "m1", staged.ID)
	require.NoError(t, err)

	again, err := svc.Create(ctx, &PendingAward{MemberID: "m1", OrderID: "o1", Points: 24, Reason: "消費回饋"})
	require.NoError(t, err)
	require.Equal(t, staged.ID, again.ID)
	require.Equal(t, StatusClaimed, again.Status)

	rows, err := svc.List(ctx, "m1", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestClaimExactlyOnce(t *testing.T) {
	svc := newTestService(t, fullSchema()...)
	ctx := context.Background()

	award, err := svc.Create(ctx, &PendingAward{MemberID: "m1", OrderID: "o1", Points: 24, Reason: "消費回饋"})
	require.NoError(t, err)

	first, err := svc.Claim(ctx, "m1", award.ID)
	require.NoError(t, err)
	require.False(t, first.AlreadyClaimed)
	require.Equal(t, int64(24), first.Balance)
	require.Equal(t, StatusClaimed, first.Pending.Status)
	require.NotNil(t, first.Pending.ClaimedAt)

	second, err := svc.Claim(ctx, "m1", award.ID)
	require.NoError(t, err)
	require.True(t, second.AlreadyClaimed)
	require.Equal(t, int64(24), second.Balance)

	entry, err := svc.ledger.FindByRefKey(ctx, ledger.PendingClaimRefKey(award.ID))
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, int64(24), entry.Delta)

	sum, err := svc.ledger.SumByMember(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(24), sum)
}

func TestClaimNotFound(t *testing.T) {
	svc := newTestService(t, fullSchema()...)

	_, err := svc.Claim(context.Background(), "m1", "missing")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestClaimRetriesAfterPartialFailure(t *testing.T) {
	svc := newTestService(t, fullSchema()...)
	ctx := context.Background()

	award, err := svc.Create(ctx, &PendingAward{MemberID: "m1", OrderID: "o1", Points: 10, Reason: "消費回饋"})
	require.NoError(t, err)

	// Simulate a crash after the credit landed but before the status
	// flip: the ledger entry exists, the row is still pending.
	_, applied, err := svc.ledger.Append(ctx, &ledger.LedgerEntry{
		MemberID: "m1",
		Delta:    award.Points,
		Reason:   award.Reason,
		OrderID:  award.OrderID,
		RefKey:   ledger.PendingClaimRefKey(award.ID),
	})
	require.NoError(t, err)
	require.True(t, applied)

	result, err := svc.Claim(ctx, "m1", award.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClaimed, result.Pending.Status)
	require.Equal(t, int64(10), result.Balance)

	sum, err := svc.ledger.SumByMember(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(10), sum)
}

func TestClaimByOrder(t *testing.T) {
	svc := newTestService(t, fullSchema()...)
	ctx := context.Background()

	award, err := svc.Create(ctx, &PendingAward{MemberID: "m1", OrderID: "o1", Points: 7, Reason: "消費回饋"})
	require.NoError(t, err)

	result, err := svc.ClaimByOrder(ctx, "m1", "o1")
	require.NoError(t, err)
	require.Equal(t, award.ID, result.Pending.ID)

	again, err := svc.ClaimByOrder(ctx, "m1", "o1")
	require.NoError(t, err)
	require.True(t, again.AlreadyClaimed)
}

func TestCancelVoidsPendingRows(t *testing.T) {
	svc := newTestService(t, fullSchema()...)
	ctx := context.Background()

	award, err := svc.Create(ctx, &PendingAward{MemberID: "m1", OrderID: "o1", Points: 12, Reason: "消費回饋"})
	require.NoError(t, err)

	n, err := svc.Cancel(ctx, "m1", "o1")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = svc.Claim(ctx, "m1", award.ID)
	require.Error(t, err)

	sum, err := svc.ledger.SumByMember(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(0), sum)
}

func TestMissingRelationDegrades(t *testing.T) {
	// Schema without pending_awards models a partially migrated
	// environment.
	svc := newTestService(t, &member.Member{}, &ledger.LedgerEntry{}, &ledger.MemberBalance{})

	_, err := svc.List(context.Background(), "m1", "")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusDependencyMissing, be.Status())
}
