package member

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cleancare-loyalty/pkg/errutil"
	"cleancare-loyalty/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()

	db := testutil.NewTestDB(t, &Member{})
	r := NewResolver(ResolverParams{DB: db})

	require.NoError(t, db.Create(&Member{
		ID:    "m1",
		Code:  "VIP001",
		Name:  "王小明",
		Email: "ming@example.com",
		Phone: "0912345678",
	}).Error)
	require.NoError(t, db.Create(&Member{
		ID:    "m2",
		Code:  "VIP002",
		Name:  "陳小華",
		Email: "hua@example.com",
		Phone: "0987654321",
	}).Error)

	return r
}

func TestResolveByEachIdentifier(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	byID, err := r.Resolve(ctx, Identifier{MemberID: "m1"})
	require.NoError(t, err)
	require.Equal(t, "m1", byID.ID)

	byEmail, err := r.Resolve(ctx, Identifier{Email: "hua@example.com"})
	require.NoError(t, err)
	require.Equal(t, "m2", byEmail.ID)

	byCode, err := r.Resolve(ctx, Identifier{Code: "VIP001"})
	require.NoError(t, err)
	require.Equal(t, "m1", byCode.ID)

	byPhone, err := r.Resolve(ctx, Identifier{Phone: "0987654321"})
	require.NoError(t, err)
	require.Equal(t, "m2", byPhone.ID)
}

func TestResolvePrefersMostSpecific(t *testing.T) {
	r := newTestResolver(t)

	m, err := r.Resolve(context.Background(), Identifier{
		MemberID: "m1",
		Email:    "hua@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "m1", m.ID)
}

func TestResolveMissRemainsFatal(t *testing.T) {
	r := newTestResolver(t)

	_, err := r.Resolve(context.Background(), Identifier{Email: "nobody@example.com"})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestResolveRequiresIdentifier(t *testing.T) {
	r := newTestResolver(t)

	_, err := r.Resolve(context.Background(), Identifier{})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusBadRequest, be.Status())
}

func TestResolveByEmail(t *testing.T) {
	r := newTestResolver(t)

	m, err := r.ResolveByEmail(context.Background(), "ming@example.com")
	require.NoError(t, err)
	require.Equal(t, "m1", m.ID)
}
