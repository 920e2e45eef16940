package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mercavio/checkout/internal/dto"
	"github.com/mercavio/checkout/internal/middleware"
	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/service"
)

type OrderHandler struct {
	orderService      service.OrderService
	commissionService service.CommissionService
}

func NewOrderHandler(orderService service.OrderService, commissionService service.CommissionService) *OrderHandler {
	return &OrderHandler{
		orderService:      orderService,
		commissionService: commissionService,
	}
}

func (h *OrderHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	items := make([]model.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.CartItem{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			VariantAttributes: item.VariantAttributes,
		}
	}

	order, created, err := h.orderService.Create(ctx, &service.CreateOrderInput{
		BuyerID:        middleware.BuyerID(c),
		Items:          items,
		Address:        req.ShippingAddress,
		PaymentMethod:  model.PaymentMethod(req.PaymentMethod),
		Notes:          req.Notes,
		DisplayedTotal: req.Totals.Total,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, dto.NewOrderResponse(order))
}

func (h *OrderHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.ListByBuyer(ctx, middleware.BuyerID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewOrderResponses(orders))
}

func (h *OrderHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	detail, err := h.orderService.GetByReference(ctx, c.Param("reference"))
	if err != nil {
		return err
	}
	// other buyers' orders look like they don't exist
	if detail.Order.BuyerID != middleware.BuyerID(c) {
		return service.ErrOrderNotFound
	}

	return c.JSON(http.StatusOK, dto.NewOrderDetailResponse(detail.Order, detail.Items, detail.Transactions))
}

func (h *OrderHandler) GetCommission(c echo.Context) error {
	ctx := c.Request().Context()

	detail, err := h.orderService.GetByReference(ctx, c.Param("reference"))
	if err != nil {
		return err
	}
	if detail.Order.BuyerID != middleware.BuyerID(c) {
		return service.ErrOrderNotFound
	}

	commission, err := h.commissionService.GetByOrder(ctx, detail.Order.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewCommissionResponse(commission))
}
