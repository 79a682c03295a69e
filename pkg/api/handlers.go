// Package api exposes the matching service over HTTP. The matching core
// itself is transport-agnostic; these handlers only translate requests and
// error conditions.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/joripage/ordermatch-dev/pkg/matching"
	"github.com/joripage/ordermatch-dev/pkg/service"
)

type submitOrderRequest struct {
	Instrument string          `json:"instrument"`
	Side       string          `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID                string          `json:"id"`
	Instrument        string          `json:"instrument"`
	Side              string          `json:"side"`
	Price             decimal.Decimal `json:"price"`
	Quantity          decimal.Decimal `json:"quantity"`
	RemainingQuantity decimal.Decimal `json:"remainingQuantity"`
	Status            string          `json:"status"`
	CreatedAt         string          `json:"createdAt"`
	UpdatedAt         string          `json:"updatedAt"`
}

type executionResponse struct {
	OrderID          string          `json:"orderId"`
	ExecutedQuantity decimal.Decimal `json:"executedQuantity"`
	Quantity         decimal.Decimal `json:"quantity"`
	CreatedAt        string          `json:"createdAt"`
}

type paginatedOrdersResponse struct {
	TotalPages int             `json:"totalPages"`
	Orders     []orderResponse `json:"orders"`
}

func toOrderResponse(o matching.Order) orderResponse {
	return orderResponse{
		ID:                o.ID,
		Instrument:        o.Instrument,
		Side:              string(o.Side),
		Price:             o.Price,
		Quantity:          o.Quantity,
		RemainingQuantity: o.RemainingQuantity,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type Handler struct {
	svc *service.OrderService
}

func NewHandler(svc *service.OrderService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/orders", h.SubmitOrder)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
	r.PUT("/orders/:id/status", h.UpdateOrderStatus)
	r.GET("/orders/:id/executions", h.OrderHistory)
}

func (h *Handler) SubmitOrder(c *gin.Context) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order payload"})
		return
	}

	order, err := h.svc.SubmitOrder(c.Request.Context(), req.Instrument, req.Side, req.Price, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *Handler) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	page, _ := strconv.Atoi(c.Query("page"))

	filter := service.OrderFilter{
		ID:         c.Query("id"),
		Instrument: c.Query("instrument"),
		Side:       c.Query("side"),
		Status:     c.Query("status"),
		CreatedAt:  c.Query("createdAt"),
	}

	orders, totalPages, err := h.svc.ListOrdersByFilter(c.Request.Context(), filter, limit, page)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := paginatedOrdersResponse{TotalPages: totalPages, Orders: []orderResponse{}}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status payload"})
		return
	}

	order, err := h.svc.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *Handler) OrderHistory(c *gin.Context) {
	execs, err := h.svc.OrderHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := []executionResponse{}
	for _, ex := range execs {
		resp = append(resp, executionResponse{
			OrderID:          ex.OrderID,
			ExecutedQuantity: ex.ExecutedQuantity,
			Quantity:         ex.Quantity,
			CreatedAt:        ex.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, matching.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, matching.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
