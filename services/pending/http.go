package pending

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
	v1.GET("/pending", h.list)
	v1.POST("/pending", h.create)
	v1.POST("/pending/claim", h.claim)
}

type handler struct {
	service *Service
	members *member.Resolver
}

type createRequest struct {
	member.Identifier
	OrderID string `json:"order_id"`
	Points  int64  `json:"points" binding:"required"`
	Reason  string `json:"reason"`
}

func (h *handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		return
	}

	m, err := h.members.Resolve(c.Request.Context(), req.Identifier)
	if err != nil {
		c.Error(err)
		return
	}

	award, err := h.service.Create(c.Request.Context(), &PendingAward{
		MemberID: m.ID,
		OrderID:  req.OrderID,
		Points:   req.Points,
		Reason:   req.Reason,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, award)
}

func (h *handler) list(c *gin.Context) {
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

	rows, err := h.service.List(c.Request.Context(), m.ID, Status(c.Query("status")))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

type claimRequest struct {
	member.Identifier
	PendingID string `json:"pending_id"`
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
}

func (h *handler) claim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		return
	}
	if req.PendingID == "" {
		req.PendingID = req.ID
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

	var result *ClaimResult
	var err error
	switch {
	case req.PendingID != "":
		result, err = h.service.Claim(c.Request.Context(), memberID, req.PendingID)
	case req.OrderID != "":
		result, err = h.service.ClaimByOrder(c.Request.Context(), memberID, req.OrderID)
	default:
		err = errutil.BadRequest("pending_id or order_id is required")
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
