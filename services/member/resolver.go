package member

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"cleancare-loyalty/pkg/errutil"
	"cleancare-loyalty/pkg/repository"
)

type Resolver struct {
	db      *gorm.DB
	members repository.Repository[Member]
}

type ResolverParams struct {
	fx.In
	DB *gorm.DB
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{
		db:      p.DB,
		members: repository.ProvideStore[Member](p.DB),
	}
}

// Resolve turns whatever identifier the caller supplied into a member
// row. Identifiers are tried most-specific first. A miss is
// MemberNotFound, never a silent default.
func (r *Resolver) Resolve(ctx context.Context, id Identifier) (*Member, error) {
	if id.Empty() {
		return nil, errutil.BadRequest("member identifier is required")
	}

	probes := []*Member{}
	if id.MemberID != "" {
		probes = append(probes, &Member{ID: id.MemberID})
	}
	if id.Email != "" {
		probes = append(probes, &Member{Email: id.Email})
	}
	if id.Code != "" {
		probes = append(probes, &Member{Code: id.Code})
	}
	if id.Phone != "" {
		probes = append(probes, &Member{Phone: id.Phone})
	}

	for _, probe := range probes {
		m, err := r.members.FindOne(ctx, probe)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
	}

	return nil, errutil.NotFound("member not found")
}

// ResolveByEmail backs the order-subsystem contract where only a
// customer email is known at checkout time.
func (r *Resolver) ResolveByEmail(ctx context.Context, email string) (*Member, error) {
	return r.Resolve(ctx, Identifier{Email: email})
}

var Module = fx.Module("member.service",
	fx.Provide(NewResolver),
)
