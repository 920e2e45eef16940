package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mercavio/checkout/internal/dto"
	"github.com/mercavio/checkout/internal/middleware"
	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/service"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) Process(c echo.Context) error {
	ctx := c.Request().Context()
	provider := c.Param("provider")

	var req dto.ProcessPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	res, err := h.paymentService.Process(ctx, provider, &service.ProcessInput{
		OrderReference: req.OrderReference,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Selection:      &req.Selection,
		BuyerEmail:     middleware.BuyerEmail(c),
		ClientIP:       c.RealIP(),
		UserAgent:      c.Request().UserAgent(),
		ReturnURL:      req.ReturnURL,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.ProcessPaymentResponse{
		Mode:                 string(res.Mode),
		PaymentURL:           res.PaymentURL,
		TransactionID:        res.TransactionID,
		GatewayTransactionID: res.GatewayTransactionID,
		Status:               string(res.Status),
		FailureReason:        res.FailureReason,
		Resumed:              res.Resumed,
	})
}

// HandleReturn is where the buyer's browser lands after a hosted payment
// page. The outcome shown comes from reconciling with the provider, never
// from the query string.
func (h *PaymentHandler) HandleReturn(c echo.Context) error {
	ctx := c.Request().Context()

	reference := c.QueryParam("reference")
	if reference == "" {
		return c.String(http.StatusBadRequest, "missing order reference")
	}

	res, err := h.paymentService.HandleReturn(ctx, reference)
	if err != nil {
		return err
	}

	heading, message := returnOutcome(res.Transaction)

	html := fmt.Sprintf(`
	<!DOCTYPE html>
	<html lang="es">
	<head>
		<meta charset="utf-8">
		<title>Resultado del pago</title>
		<style>
			body {
				font-family: Arial, sans-serif;
				text-align: center;
				margin-top: 80px;
			}
			.countdown {
				font-size: 24px;
				font-weight: bold;
			}
		</style>
	</head>
	<body>
		<h2>%s</h2>
		<p>%s</p>
		<p>Pedido <strong>%s</strong></p>
		<p>Volviendo a la tienda en <span class="countdown" id="countdown">15</span> segundos…</p>

		<script>
			let seconds = 15;
			const el = document.getElementById("countdown");

			const timer = setInterval(function () {
				seconds--;
				el.textContent = seconds;

				if (seconds <= 0) {
					clearInterval(timer);
					window.location.href = "/";
				}
			}, 1000);
		</script>
	</body>
	</html>
	`, heading, message, reference)

	return c.HTML(http.StatusOK, html)
}

func returnOutcome(tr *model.Transaction) (heading, message string) {
	if tr == nil {
		return "Pago en proceso", "Aún no registramos un intento de pago para este pedido."
	}

	switch tr.Status {
	case model.TransactionStatusApproved:
		return "Pago aprobado", "Estamos registrando tu pago y confirmando el pedido."
	case model.TransactionStatusDeclined:
		return "Pago rechazado", "El banco no aprobó el pago. Puedes intentarlo de nuevo con otro medio."
	case model.TransactionStatusErrored, model.TransactionStatusVoided:
		return "El pago no se completó", "Puedes volver a la tienda e intentarlo de nuevo."
	default:
		return "Pago en proceso", "Estamos confirmando el resultado con tu banco; te avisaremos en cuanto responda."
	}
}

func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	err = h.paymentService.HandleWebhook(ctx, c.Param("provider"), c.Request().Header, body)
	if err != nil {
		return fmt.Errorf("handle webhook: %w", err)
	}

	return c.NoContent(http.StatusOK)
}
