package order

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

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
	v1.POST("/orders", h.create)
	v1.GET("/orders/:id", h.get)
}

type handler struct {
	service *Service
	members *member.Resolver
}

// create accepts the storefront's cart submission. The payload arrives
// in whatever field spelling the calling frontend uses; the snapshot
// adapter normalizes it before anything else runs.
func (h *handler) create(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.Error(err)
		return
	}

	snap := SnapshotFromPayload(raw)
	if snap.MemberID == "" && snap.CustomerEmail != "" {
		m, err := h.members.ResolveByEmail(c.Request.Context(), snap.CustomerEmail)
		if err != nil {
			c.Error(err)
			return
		}
		snap.MemberID = m.ID
	}

	o, err := h.service.CreateReservation(c.Request.Context(), snap)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":  o,
		"points": h.service.ComputeAward(Snapshot(o)),
	})
}

func (h *handler) get(c *gin.Context) {
	o, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	if o == nil {
		c.Error(errutil.NotFound("order not found"))
		return
	}
	c.JSON(http.StatusOK, o)
}
