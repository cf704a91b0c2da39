package ledger

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"cleancare-loyalty/pkg/db/option"
	"cleancare-loyalty/pkg/db/pagination"
	"cleancare-loyalty/pkg/errutil"
	"cleancare-loyalty/services/member"
)

type routeParams struct {
	fx.In

	Engine  *gin.Engine
	Service *Service
	Members *member.Resolver
}

func registerRoutes(p routeParams) {
	h := &handler{service: p.Service, members: p.Members}

	v1 := p.Engine.Group("/v1")
	v1.GET("/balance", h.getBalance)
	v1.GET("/ledger", h.listLedger)
}

type handler struct {
	service *Service
	members *member.Resolver
}

func (h *handler) getBalance(c *gin.Context) {
	var id member.Identifier
	if err := c.ShouldBindQuery(&id); err != nil {
		c.Error(err)
		return
	}

	m, err := h.members.Resolve(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	balance, err := h.service.GetBalance(c.Request.Context(), m.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *handler) listLedger(c *gin.Context) {
	var id member.Identifier
	if err := c.ShouldBindQuery(&id); err != nil {
		c.Error(err)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(err)
		return
	}

	m, err := h.members.Resolve(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	var opts []option.QueryOption
	if page.Cursor != "" {
		cursor, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			c.Error(errutil.BadRequest("invalid cursor"))
			return
		}
		opts = append(opts, option.WithCursorBefore(cursor.CreatedAt, cursor.ID))
	}

	entries, err := h.service.ListByMember(c.Request.Context(), m.ID, page.Limit, opts...)
	if err != nil {
		c.Error(err)
		return
	}

	entries, pageInfo := pagination.BuildCursorPageInfo(entries, page.Limit, func(e *LedgerEntry) string {
		cursor, _ := pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
			ID:        e.ID,
		})
		return cursor
	})

	c.JSON(http.StatusOK, gin.H{"data": entries, "page_info": pageInfo})
}
