package task

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cleancare-loyalty/services/ledger"
	"cleancare-loyalty/services/member"
	"cleancare-loyalty/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestEnqueueBalanceSweepRecordsRun(t *testing.T) {
	db := testutil.NewTestDB(t,
		&member.Member{},
		&ledger.LedgerEntry{},
		&ledger.MemberBalance{},
		&SweepRun{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	ctx := context.Background()

	for _, m := range []string{"m1", "m2"} {
		_, _, err := ledgerSvc.Append(ctx, &ledger.LedgerEntry{
			MemberID: m, Delta: 10, RefKey: "seed_" + m,
		})
		require.NoError(t, err)
	}

	svc := NewService(Params{DB: db, Node: node})
	require.NoError(t, svc.EnqueueBalanceSweep(ctx))

	var runs []SweepRun
	require.NoError(t, db.Find(&runs).Error)
	require.Len(t, runs, 1)
	require.Equal(t, "success", runs[0].Status)
	require.Equal(t, int64(2), runs[0].Members)
}

func TestNextRunTime(t *testing.T) {
	past := time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 9, 2, 2, 0, 0, 0, time.UTC), nextRunTime(past, 2, 0))

	early := time.Date(2026, 9, 1, 1, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC), nextRunTime(early, 2, 0))
}

func TestRequestBalanceSweepRunsInlineWithoutQueue(t *testing.T) {
	db := testutil.NewTestDB(t,
		&member.Member{},
		&ledger.LedgerEntry{},
		&ledger.MemberBalance{},
		&SweepRun{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{DB: db, Node: node})
	require.NoError(t, svc.RequestBalanceSweep(context.Background()))

	var runs []SweepRun
	require.NoError(t, db.Find(&runs).Error)
	require.Len(t, runs, 1)
	require.Equal(t, "success", runs[0].Status)
}
