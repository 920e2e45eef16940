package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mercavio/checkout/internal/dto"
	"github.com/mercavio/checkout/internal/middleware"
	"github.com/mercavio/checkout/internal/payment"
	"github.com/mercavio/checkout/internal/service"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

func (h *CheckoutHandler) Begin(c echo.Context) error {
	ctx := c.Request().Context()
	buyerID := middleware.BuyerID(c)

	var req dto.BeginCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	items := make([]service.CartItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CartItemInput{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			VariantAttributes: item.VariantAttributes,
		}
	}

	sess, err := h.checkoutService.Begin(ctx, buyerID, items)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, sess)
}

func (h *CheckoutHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	sess, err := h.checkoutService.Get(ctx, middleware.BuyerID(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sess)
}

func (h *CheckoutHandler) Proceed(c echo.Context) error {
	ctx := c.Request().Context()

	sess, err := h.checkoutService.ProceedToShipping(ctx, middleware.BuyerID(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sess)
}

func (h *CheckoutHandler) SubmitAddress(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SubmitAddressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	sess, err := h.checkoutService.SubmitAddress(ctx, middleware.BuyerID(c), c.Param("id"), &req.Address, req.Save)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sess)
}

func (h *CheckoutHandler) Back(c echo.Context) error {
	ctx := c.Request().Context()

	// body is optional; an empty reason gets the default message
	var req dto.BackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	sess, err := h.checkoutService.Back(ctx, middleware.BuyerID(c), c.Param("id"), req.Reason)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sess)
}

func (h *CheckoutHandler) Confirm(c echo.Context) error {
	ctx := c.Request().Context()

	var sel payment.Selection
	if err := c.Bind(&sel); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	res, err := h.checkoutService.Confirm(ctx, middleware.BuyerID(c), c.Param("id"), &sel)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	return c.JSON(status, &dto.ConfirmResponse{
		Session:  res.Session,
		Order:    dto.NewOrderResponse(res.Order),
		Provider: res.Provider,
		Created:  res.Created,
	})
}

func (h *CheckoutHandler) ListAddresses(c echo.Context) error {
	ctx := c.Request().Context()

	addresses, err := h.checkoutService.ListAddresses(ctx, middleware.BuyerID(c))
	if err != nil {
		return err
	}

	res := make([]*dto.SavedAddressResponse, len(addresses))
	for i, a := range addresses {
		res[i] = dto.NewSavedAddressResponse(a)
	}

	return c.JSON(http.StatusOK, res)
}

func (h *CheckoutHandler) DeleteAddress(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid address id")
	}

	if err := h.checkoutService.DeleteAddress(ctx, middleware.BuyerID(c), uint(id)); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
