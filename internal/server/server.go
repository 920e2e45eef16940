package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mercavio/checkout/internal/checkout"
	"github.com/mercavio/checkout/internal/config"
	"github.com/mercavio/checkout/internal/dto"
	"github.com/mercavio/checkout/internal/gateway"
	"github.com/mercavio/checkout/internal/handler"
	"github.com/mercavio/checkout/internal/middleware"
	"github.com/mercavio/checkout/internal/payment"
	"github.com/mercavio/checkout/internal/service"
)

type Server struct {
	echo            *echo.Echo
	cfg             *config.Config
	checkoutHandler *handler.CheckoutHandler
	orderHandler    *handler.OrderHandler
	paymentHandler  *handler.PaymentHandler
	vendorHandler   *handler.VendorHandler
	auth            echo.MiddlewareFunc
}

func NewServer(
	cfg *config.Config,
	checkoutService service.CheckoutService,
	orderService service.OrderService,
	paymentService service.PaymentService,
	commissionService service.CommissionService,
	logger *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(logger, cfg.CartURL)

	e.Use(requestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:            e,
		cfg:             cfg,
		checkoutHandler: handler.NewCheckoutHandler(checkoutService),
		orderHandler:    handler.NewOrderHandler(orderService, commissionService),
		paymentHandler:  handler.NewPaymentHandler(paymentService),
		vendorHandler:   handler.NewVendorHandler(commissionService),
		auth:            middleware.BuyerAuth(cfg.JWTSecret, cfg.AuthURL),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// pricing rules the storefront renders next to the cart
	api.GET("/config/pricing", func(c echo.Context) error {
		return c.JSON(http.StatusOK, &dto.PricingConfigResponse{
			IVARate:               s.cfg.Pricing.IVARate,
			FreeShippingThreshold: s.cfg.Pricing.FreeShippingThreshold,
			BaseShippingCost:      s.cfg.Pricing.BaseShippingCost,
			Currency:              "COP",
		})
	})

	// -------- checkout --------
	co := api.Group("/checkout", s.auth)
	co.POST("", s.checkoutHandler.Begin)
	co.GET("/:id", s.checkoutHandler.Get)
	co.POST("/:id/proceed", s.checkoutHandler.Proceed)
	co.POST("/:id/address", s.checkoutHandler.SubmitAddress)
	co.POST("/:id/back", s.checkoutHandler.Back)
	co.POST("/:id/confirm", s.checkoutHandler.Confirm)

	addresses := api.Group("/addresses", s.auth)
	addresses.GET("", s.checkoutHandler.ListAddresses)
	addresses.DELETE("/:id", s.checkoutHandler.DeleteAddress)

	// -------- orders --------
	orders := api.Group("/orders", s.auth)
	orders.POST("", s.orderHandler.Create)
	orders.GET("", s.orderHandler.List)
	orders.GET("/:reference", s.orderHandler.Get)
	orders.GET("/:reference/commission", s.orderHandler.GetCommission)

	// -------- payments --------
	payments := api.Group("/payments")
	payments.POST("/:provider/process", s.paymentHandler.Process, s.auth)

	// -------- payment webhooks / callbacks --------
	payments.GET("/return", s.paymentHandler.HandleReturn)
	payments.POST("/:provider/webhook", s.paymentHandler.Webhook)

	// -------- vendors --------
	vendors := api.Group("/vendors", s.auth)
	vendors.PUT("/:id/commission-rate", s.vendorHandler.SetCommissionRate)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}

// errorHandler maps the service error taxonomy onto HTTP statuses so handlers
// just return errors. An empty-cart rejection carries a redirect back to the
// storefront's cart when one is configured.
func errorHandler(logger *zap.Logger, cartURL string) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			if jerr := c.JSON(he.Code, map[string]any{"error": he.Message}); jerr != nil {
				logger.Error("write error response", zap.Error(jerr))
			}
			return
		}

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrValidation),
			errors.Is(err, payment.ErrUnknownMethod),
			errors.Is(err, gateway.ErrUnsupportedMethod),
			errors.Is(err, checkout.ErrEmptyCart):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, service.ErrPriceMismatch),
			errors.Is(err, service.ErrTransactionInFlight),
			errors.Is(err, service.ErrCheckoutInProgress),
			errors.Is(err, service.ErrInsufficientStock),
			errors.Is(err, service.ErrMixedVendorCart),
			errors.Is(err, checkout.ErrInvalidTransition):
			status = http.StatusConflict
		case errors.Is(err, service.ErrOrderNotFound),
			errors.Is(err, checkout.ErrSessionNotFound),
			errors.Is(err, gateway.ErrUnknownProvider):
			status = http.StatusNotFound
		case errors.Is(err, gateway.ErrInvalidSignature):
			status = http.StatusUnauthorized
		// a webhook sent to a provider that never emits them
		case errors.Is(err, gateway.ErrNoNotifications):
			status = http.StatusBadRequest
		case errors.Is(err, service.ErrGatewayUnavailable):
			status = http.StatusBadGateway
		}

		if status == http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
			)
			// internals never leak to the client
			if jerr := c.JSON(status, map[string]any{"error": "internal server error"}); jerr != nil {
				logger.Error("write error response", zap.Error(jerr))
			}
			return
		}

		body := map[string]any{"error": err.Error()}
		if errors.Is(err, checkout.ErrEmptyCart) && cartURL != "" {
			body["redirect_to"] = cartURL
		}
		if jerr := c.JSON(status, body); jerr != nil {
			logger.Error("write error response", zap.Error(jerr))
		}
	}
}
