package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	settlementapp "github.com/openpos/settlement/internal/application/settlement"
	"github.com/openpos/settlement/internal/domain/order"
	"github.com/openpos/settlement/internal/interfaces/http/dto"
)

// SettlementHandler exposes settlement and order endpoints
type SettlementHandler struct {
	BaseHandler
	service *settlementapp.Service
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(service *settlementapp.Service) *SettlementHandler {
	return &SettlementHandler{service: service}
}

// CancelRequest is the body of a cancel call
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RegisterRoutes mounts the settlement and order routes
func (h *SettlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	settlements := rg.Group("/settlements")
	settlements.POST("", h.Settle)
	settlements.PUT("/:id", h.Resettle)

	orders := rg.Group("/orders")
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.POST("/:id/cancel", h.Cancel)
}

// Settle creates and settles a new order in one shot
func (h *SettlementHandler) Settle(c *gin.Context) {
	var req settlementapp.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}
	req.OrderID = nil

	result, err := h.service.Settle(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Resettle re-settles an existing order, replacing its lines and
// re-deriving payment and delivery state
func (h *SettlementHandler) Resettle(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req settlementapp.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}
	req.OrderID = &orderID

	result, err := h.service.Settle(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Cancel cancels an order and returns its delivered stock
func (h *SettlementHandler) Cancel(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetOrder returns a single order with its lines
func (h *SettlementHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListOrders returns a filtered, paginated order list
func (h *SettlementHandler) ListOrders(c *gin.Context) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.HandleBindingError(c, err)
		return
	}
	if listReq.Page == 0 {
		listReq.Page = 1
	}
	if listReq.PageSize == 0 {
		listReq.PageSize = 20
	}

	filter := settlementapp.ListFilter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
	}

	if kind := c.Query("kind"); kind != "" {
		k := order.Kind(kind)
		if !k.IsValid() {
			h.BadRequest(c, "Unknown order kind: "+kind)
			return
		}
		filter.Kind = &k
	}
	if partyID := c.Query("party_id"); partyID != "" {
		id, err := uuid.Parse(partyID)
		if err != nil {
			h.BadRequest(c, "Invalid party ID")
			return
		}
		filter.PartyID = &id
	}
	if status := c.Query("payment_status"); status != "" {
		ps := order.PaymentStatus(status)
		if !ps.IsValid() {
			h.BadRequest(c, "Unknown payment status: "+status)
			return
		}
		filter.PaymentStatus = &ps
	}
	if status := c.Query("delivery_status"); status != "" {
		ds := order.DeliveryStatus(status)
		if !ds.IsValid() {
			h.BadRequest(c, "Unknown delivery status: "+status)
			return
		}
		filter.DeliveryStatus = &ds
	}
	if start := c.Query("start_date"); start != "" {
		t, err := parseDateTime(start)
		if err != nil {
			h.BadRequest(c, "Invalid start date")
			return
		}
		filter.StartDate = &t
	}
	if end := c.Query("end_date"); end != "" {
		t, err := parseDateTime(end)
		if err != nil {
			h.BadRequest(c, "Invalid end date")
			return
		}
		filter.EndDate = &t
	}

	page, err := h.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// parseDateTime accepts RFC3339 timestamps and plain dates
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
