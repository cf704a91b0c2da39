package reconcile

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"cleancare-loyalty/pkg/errutil"
	"cleancare-loyalty/services/ledger"
	"cleancare-loyalty/services/member"
	"cleancare-loyalty/services/order"
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
	v1.POST("/orders/award", h.applyOrderAward)
	v1.POST("/points/use", h.useOnCreate)
	v1.POST("/points/refund", h.refundOrder)
	v1.POST("/reviews/bonus", h.reviewBonus)
}

type handler struct {
	service *Service
	members *member.Resolver
}

// applyOrderAward takes the storefront's loosely shaped order payload,
// normalizes it, resolves the member, and stages the earn.
func (h *handler) applyOrderAward(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.Error(err)
		return
	}

	snap := order.SnapshotFromPayload(raw)
	if snap.MemberID == "" {
		if snap.CustomerEmail == "" {
			c.Error(errMissingMember())
			return
		}
		m, err := h.members.ResolveByEmail(c.Request.Context(), snap.CustomerEmail)
		if err != nil {
			c.Error(err)
			return
		}
		snap.MemberID = m.ID
	}

	result, err := h.service.ApplyOrderAward(c.Request.Context(), snap)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type useRequest struct {
	member.Identifier
	OrderID string `json:"orderId"`
	Points  int64  `json:"points"`
}

func (h *handler) useOnCreate(c *gin.Context) {
	var req useRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		return
	}

	m, err := h.members.Resolve(c.Request.Context(), req.Identifier)
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.service.UseOnCreate(c.Request.Context(), m.ID, req.OrderID, req.Points)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type refundRequest struct {
	member.Identifier
	OrderID string `json:"orderId"`
}

func (h *handler) refundOrder(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		return
	}

	memberID := ""
	if !req.Identifier.Empty() {
		m, err := h.members.Resolve(c.Request.Context(), req.Identifier)
		if err != nil {
			c.Error(err)
			return
		}
		memberID = m.ID
	}

	result, err := h.service.RefundOrder(c.Request.Context(), memberID, req.OrderID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type reviewRequest struct {
	member.Identifier
	OrderID string `json:"orderId"`
	Kind    string `json:"kind"`
}

func (h *handler) reviewBonus(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		return
	}

	m, err := h.members.Resolve(c.Request.Context(), req.Identifier)
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.service.ReviewBonus(c.Request.Context(), m.ID, req.OrderID, ledger.ReviewKind(req.Kind))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func errMissingMember() error {
	return errutil.BadRequest("memberId or memberEmail is required")
}
