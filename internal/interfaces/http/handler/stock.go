package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	stockapp "github.com/openpos/settlement/internal/application/stock"
	"github.com/openpos/settlement/internal/interfaces/http/dto"
)

// StockHandler exposes stock balance endpoints
type StockHandler struct {
	BaseHandler
	service *stockapp.Service
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(service *stockapp.Service) *StockHandler {
	return &StockHandler{service: service}
}

// RegisterRoutes mounts the stock routes
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/stock")
	stock.POST("/adjust", h.Adjust)
	stock.PUT("/thresholds", h.SetThreshold)
	stock.GET("/balance", h.GetBalance)
	stock.GET("/balances", h.ListBalances)
	stock.GET("/balances/low", h.ListLowStock)
}

// Adjust applies a manual signed stock adjustment
func (h *StockHandler) Adjust(c *gin.Context) {
	var req stockapp.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	resp, err := h.service.Adjust(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SetThreshold sets the low-stock threshold of a product-location pair
func (h *StockHandler) SetThreshold(c *gin.Context) {
	var req stockapp.SetThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindingError(c, err)
		return
	}

	resp, err := h.service.SetThreshold(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetBalance looks up the balance for a product at a location.
// Unknown pairs report a zero quantity rather than a 404.
func (h *StockHandler) GetBalance(c *gin.Context) {
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID")
		return
	}
	locationID, err := uuid.Parse(c.Query("location_id"))
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	resp, err := h.service.GetBalance(c.Request.Context(), productID, locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListBalances returns a filtered, paginated balance list
func (h *StockHandler) ListBalances(c *gin.Context) {
	filter, ok := h.bindListFilter(c)
	if !ok {
		return
	}

	page, err := h.service.ListBalances(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListLowStock returns balances below their configured threshold
func (h *StockHandler) ListLowStock(c *gin.Context) {
	filter, ok := h.bindListFilter(c)
	if !ok {
		return
	}

	page, err := h.service.ListLowStock(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

func (h *StockHandler) bindListFilter(c *gin.Context) (stockapp.ListFilter, bool) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.HandleBindingError(c, err)
		return stockapp.ListFilter{}, false
	}
	if listReq.Page == 0 {
		listReq.Page = 1
	}
	if listReq.PageSize == 0 {
		listReq.PageSize = 20
	}

	filter := stockapp.ListFilter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
	}
	if productID := c.Query("product_id"); productID != "" {
		id, err := uuid.Parse(productID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID")
			return stockapp.ListFilter{}, false
		}
		filter.ProductID = &id
	}
	if locationID := c.Query("location_id"); locationID != "" {
		id, err := uuid.Parse(locationID)
		if err != nil {
			h.BadRequest(c, "Invalid location ID")
			return stockapp.ListFilter{}, false
		}
		filter.LocationID = &id
	}
	return filter, true
}
