package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mercavio/checkout/internal/checkout"
	"github.com/mercavio/checkout/internal/events"
	"github.com/mercavio/checkout/internal/gateway"
	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/payment"
	"github.com/mercavio/checkout/internal/pricing"
	"github.com/mercavio/checkout/internal/repository"
)

// mockGatewayClient is a programmable gateway.Client. Configure the *Res and
// *Err fields per test; the last* fields capture what the service sent.
type mockGatewayClient struct {
	name    string
	methods map[model.PaymentMethod]bool

	initiateRes   *gateway.InitiateResult
	initiateErr   error
	initiateCalls int
	lastInitiate  *gateway.InitiateRequest

	statusRes   *gateway.StatusResult
	statusErr   error
	statusCalls int
	lastQueryID string

	notification *gateway.Notification
	notifyErr    error
}

func (m *mockGatewayClient) Name() string { return m.name }

func (m *mockGatewayClient) Supports(method model.PaymentMethod) bool {
	return m.methods[method]
}

func (m *mockGatewayClient) Initiate(_ context.Context, req *gateway.InitiateRequest) (*gateway.InitiateResult, error) {
	m.initiateCalls++
	m.lastInitiate = req
	if m.initiateErr != nil {
		return nil, m.initiateErr
	}
	return m.initiateRes, nil
}

func (m *mockGatewayClient) QueryStatus(_ context.Context, gatewayTransactionID string) (*gateway.StatusResult, error) {
	m.statusCalls++
	m.lastQueryID = gatewayTransactionID
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.statusRes, nil
}

func (m *mockGatewayClient) ParseNotification(_ http.Header, _ []byte) (*gateway.Notification, error) {
	if m.notifyErr != nil {
		return nil, m.notifyErr
	}
	return m.notification, nil
}

type capturingPublisher struct {
	created    []*events.OrderCreated
	settled    []*events.PaymentSettled
	publishErr error
}

func (p *capturingPublisher) PublishOrderCreated(_ context.Context, event *events.OrderCreated) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.created = append(p.created, event)
	return nil
}

func (p *capturingPublisher) PublishPaymentSettled(_ context.Context, event *events.PaymentSettled) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.settled = append(p.settled, event)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

// testEnv wires the services against an in-memory database, real
// repositories and mock gateway clients.
type testEnv struct {
	db *gorm.DB

	orderRepo      repository.OrderRepository
	txRepo         repository.TransactionRepository
	productRepo    repository.ProductRepository
	vendorRepo     repository.VendorRepository
	commissionRepo repository.CommissionRepository
	webhookRepo    repository.WebhookEventRepository
	addressRepo    repository.SavedAddressRepository

	placetopay *mockGatewayClient
	braintree  *mockGatewayClient
	publisher  *capturingPublisher
	sessions   checkout.Store

	orders      OrderService
	payments    PaymentService
	commissions CommissionService
	checkouts   CheckoutService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// A plain ":memory:" DSN gives every pooled connection its own empty
	// database; a named shared-cache DSN keeps all connections on one DB.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Vendor{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.Transaction{},
		&model.Commission{},
		&model.SavedAddress{},
		&model.WebhookEvent{},
	))

	stock := func(n int32) *int32 { return &n }
	require.NoError(t, db.Create([]*model.Vendor{
		{ID: "tienda-sol", Name: "Tienda Sol"},
		{ID: "tienda-luna", Name: "Tienda Luna"},
	}).Error)
	require.NoError(t, db.Create([]*model.Product{
		{ID: "prod-poncho", Name: "Poncho santandereano", VendorID: "tienda-sol", Price: 50000, Currency: "COP", Stock: stock(10)},
		{ID: "prod-ruana", Name: "Ruana de lana", VendorID: "tienda-sol", Price: 25000, Currency: "COP"},
		{ID: "prod-tinto", Name: "Tinto campesino x12", VendorID: "tienda-luna", Price: 10000, Currency: "COP", Stock: stock(5)},
	}).Error)

	env := &testEnv{
		db:             db,
		orderRepo:      repository.NewOrderRepository(db),
		txRepo:         repository.NewTransactionRepository(db),
		productRepo:    repository.NewProductRepository(db),
		vendorRepo:     repository.NewVendorRepository(db),
		commissionRepo: repository.NewCommissionRepository(db),
		webhookRepo:    repository.NewWebhookEventRepository(db),
		addressRepo:    repository.NewSavedAddressRepository(db),
		publisher:      &capturingPublisher{},
		placetopay: &mockGatewayClient{
			name:    gateway.ProviderPlacetopay,
			methods: map[model.PaymentMethod]bool{model.MethodCard: true, model.MethodPSE: true},
		},
		braintree: &mockGatewayClient{
			name:    gateway.ProviderBraintree,
			methods: map[model.PaymentMethod]bool{model.MethodCard: true},
		},
	}

	log := zap.NewNop()
	pricer := pricing.NewEngine(decimal.RequireFromString("0.19"))
	shipping := pricing.NewShippingCalculator(pricing.FlatRates{Default: 15000}, 200000)
	registry := gateway.NewRegistry(env.placetopay, env.braintree)

	env.sessions = checkout.NewMemoryStore(time.Hour)
	machine := checkout.NewMachine(pricer, shipping)

	env.commissions = NewCommissionService(decimal.RequireFromString("0.12"), env.vendorRepo, env.commissionRepo, log)
	env.orders = NewOrderService(db, pricer, shipping, env.orderRepo, env.productRepo, env.txRepo, env.publisher, log)
	env.payments = NewPaymentService(db, registry, "https://api.mercavio.test", env.orderRepo, env.txRepo, env.webhookRepo, env.commissions, env.publisher, log)
	env.checkouts = NewCheckoutService(machine, env.sessions, registry, env.orders, env.orderRepo, env.productRepo, env.addressRepo, log)

	return env
}

func testShippingAddress() model.ShippingAddress {
	return model.ShippingAddress{
		Name:   "Ana Roa",
		Phone:  "3015550147",
		Line1:  "Cra 7 # 45-10 apto 302",
		City:   "Bogotá",
		Region: "Cundinamarca",
	}
}

// ponchoCart totals 100000 before tax: 19000 IVA and 15000 shipping on top.
func ponchoCart() []model.CartItem {
	return []model.CartItem{{ProductID: "prod-poncho", Quantity: 2, UnitPrice: 50000}}
}

func createOrderInput(method model.PaymentMethod) *CreateOrderInput {
	return &CreateOrderInput{
		BuyerID:       "buyer-ana",
		Items:         ponchoCart(),
		Address:       testShippingAddress(),
		PaymentMethod: method,
	}
}

func placeOrder(t *testing.T, env *testEnv, method model.PaymentMethod) *model.Order {
	t.Helper()
	order, created, err := env.orders.Create(context.Background(), createOrderInput(method))
	require.NoError(t, err)
	require.True(t, created)
	return order
}

func cardSelection() *payment.Selection {
	return &payment.Selection{
		Method: model.MethodCard,
		Card: &payment.CardInput{
			Number:     "4111111111111111",
			HolderName: "Ana Roa",
			Expiry:     "11/27",
			CVV:        "123",
		},
	}
}

func nonceSelection() *payment.Selection {
	return &payment.Selection{Method: model.MethodCard, WidgetNonce: "fake-valid-nonce"}
}

func pseSelection() *payment.Selection {
	return &payment.Selection{
		Method: model.MethodPSE,
		PSE:    &payment.PSEInput{BankCode: "1007", IDNumber: "1017234567"},
	}
}

func redirectInitiate(gatewayID string) *gateway.InitiateResult {
	return &gateway.InitiateResult{
		Mode:                 gateway.ModeRedirect,
		ProcessURL:           "https://checkout.placetopay.com/spa/session/" + gatewayID,
		GatewayTransactionID: gatewayID,
		Status:               model.TransactionStatusProcessing,
	}
}

func inlineInitiate(gatewayID string, status model.TransactionStatus, reason string) *gateway.InitiateResult {
	return &gateway.InitiateResult{
		Mode:                 gateway.ModeInline,
		GatewayTransactionID: gatewayID,
		Status:               status,
		FailureReason:        reason,
	}
}
