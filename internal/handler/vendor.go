package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/mercavio/checkout/internal/dto"
	"github.com/mercavio/checkout/internal/service"
)

type VendorHandler struct {
	commissionService service.CommissionService
}

func NewVendorHandler(commissionService service.CommissionService) *VendorHandler {
	return &VendorHandler{
		commissionService: commissionService,
	}
}

func (h *VendorHandler) SetCommissionRate(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SetCommissionRateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		return fmt.Errorf("%w: rate %q is not a decimal", service.ErrValidation, req.Rate)
	}

	vendor, err := h.commissionService.SetVendorRate(ctx, c.Param("id"), rate)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewVendorResponse(vendor))
}
