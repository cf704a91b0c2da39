package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cleancare-loyalty/pkg/db/option"
	"cleancare-loyalty/services/member"
	"cleancare-loyalty/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &member.Member{}, &LedgerEntry{}, &MemberBalance{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func TestAppendRejectsInvalidEntries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Append(ctx, &LedgerEntry{RefKey: "k", Delta: 1})
	require.Error(t, err)

	_, _, err = svc.Append(ctx, &LedgerEntry{MemberID: "m1", Delta: 1})
	require.Error(t, err)

	_, _, err = svc.Append(ctx, &LedgerEntry{MemberID: "m1", RefKey: "k", Delta: 0})
	require.Error(t, err)
}

func TestAppendIdempotentOnRefKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, applied, err := svc.Append(ctx, &LedgerEntry{
		MemberID: "m1",
		Delta:    -19,
		Reason:   "訂單折抵",
		OrderID:  "o1",
		RefKey:   UsedRefKey("o1"),
	})
	require.NoError(t, err)
	require.True(t, applied)

	second, applied, err := svc.Append(ctx, &LedgerEntry{
		MemberID: "m1",
		Delta:    -19,
		Reason:   "訂單折抵",
		OrderID:  "o1",
		RefKey:   UsedRefKey("o1"),
	})
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, first.ID, second.ID)

	count, err := svc.entries.Count(ctx, &LedgerEntry{MemberID: "m1"})
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	sum, err := svc.SumByMember(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(-19), sum)
}

func TestFindByRefKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	missing, err := svc.FindByRefKey(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	_, _, err = svc.Append(ctx, &LedgerEntry{MemberID: "m1", Delta: 5, RefKey: "probe"})
	require.NoError(t, err)

	found, err := svc.FindByRefKey(ctx, "probe")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, int64(5), found.Delta)
}

func TestRefreshProjectsBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.db.Create(&member.Member{ID: "m1", Email: "a@b.c"}).Error)

	_, _, err := svc.Append(ctx, &LedgerEntry{MemberID: "m1", Delta: 24, RefKey: "r1"})
	require.NoError(t, err)
	_, _, err = svc.Append(ctx, &LedgerEntry{MemberID: "m1", Delta: -19, RefKey: "r2"})
	require.NoError(t, err)

	sum, err := svc.Refresh(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(5), sum)

	cached, err := svc.balances.FindOne(ctx, &MemberBalance{MemberID: "m1"})
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, int64(5), cached.Balance)

	var m member.Member
	require.NoError(t, svc.db.First(&m, "id = ?", "m1").Error)
	require.Equal(t, int64(5), m.Points)

	again, err := svc.Refresh(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, sum, again)
}

func TestGetBalanceRebuildsOnMiss(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Append(ctx, &LedgerEntry{MemberID: "m1", Delta: 30, RefKey: "r1"})
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(30), balance)

	cached, err := svc.balances.FindOne(ctx, &MemberBalance{MemberID: "m1"})
	require.NoError(t, err)
	require.NotNil(t, cached)
}

func TestReconcileHealsDriftedCache(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Append(ctx, &LedgerEntry{MemberID: "m1", Delta: 10, RefKey: "r1"})
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, "m1")
	require.NoError(t, err)

	require.NoError(t, svc.db.Model(&MemberBalance{}).
		Where("member_id = ?", "m1").
		Update("balance", 999).Error)

	drifted, err := svc.Reconcile(ctx, "m1")
	require.NoError(t, err)
	require.True(t, drifted)

	balance, err := svc.GetBalance(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(10), balance)

	drifted, err = svc.Reconcile(ctx, "m1")
	require.NoError(t, err)
	require.False(t, drifted)
}

func TestListByMemberNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, ref := range []string{"r1", "r2", "r3"} {
		_, _, err := svc.Append(ctx, &LedgerEntry{MemberID: "m1", Delta: 1, RefKey: ref})
		require.NoError(t, err)
	}

	entries, err := svc.ListByMember(ctx, "m1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		require.False(t, entries[i-1].CreatedAt.Before(entries[i].CreatedAt))
	}
}

func TestListByMemberCursorTieBreak(t *testing.T) {
	db := testutil.NewTestDB(t, &member.Member{}, &LedgerEntry{}, &MemberBalance{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewService(ServiceParams{DB: db, Node: node})
	ctx := context.Background()

	// Three entries sharing a timestamp, as second-granularity dialects
	// produce under load.
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, db.Create(&LedgerEntry{
			ID: id, MemberID: "m1", Delta: 1, RefKey: "r" + id, CreatedAt: ts,
		}).Error)
	}

	page, err := svc.ListByMember(ctx, "m1", 2)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.Equal(t, "3", page[0].ID)
	require.Equal(t, "2", page[1].ID)

	rest, err := svc.ListByMember(ctx, "m1", 2, option.WithCursorBefore(ts, "2"))
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "1", rest[0].ID)
}
