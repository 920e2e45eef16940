package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mercavio/checkout/internal/events"
	"github.com/mercavio/checkout/internal/gateway"
	"github.com/mercavio/checkout/internal/model"
	"github.com/mercavio/checkout/internal/payment"
	"github.com/mercavio/checkout/internal/repository"
)

// staleInitiationAge bounds how long a crashed initiation may hold the open
// slot before reconciliation reclaims it.
const staleInitiationAge = 5 * time.Minute

type ProcessInput struct {
	OrderReference string
	Amount         int64
	Currency       string
	Selection      *payment.Selection
	BuyerEmail     string
	ClientIP       string
	UserAgent      string
	// ReturnURL overrides the default return endpoint when the storefront
	// hosts its own landing page
	ReturnURL string
}

type ProcessResult struct {
	Mode                 gateway.Mode
	PaymentURL           string
	TransactionID        uint
	GatewayTransactionID string
	Status               model.TransactionStatus
	FailureReason        string
	// Resumed marks a parked redirect handed back instead of a new attempt
	Resumed bool
}

type ReconcileResult struct {
	Order       *model.Order
	Transaction *model.Transaction
}

type PaymentService interface {
	// Process starts (or resumes) the single payment attempt for an order
	Process(ctx context.Context, provider string, in *ProcessInput) (*ProcessResult, error)
	// HandleReturn reconciles an order after the buyer lands back from a
	// hosted payment page; the outcome comes from the provider, never from
	// the query string
	HandleReturn(ctx context.Context, orderReference string) (*ReconcileResult, error)
	HandleWebhook(ctx context.Context, provider string, headers http.Header, body []byte) error
}

type paymentServiceImpl struct {
	db          *gorm.DB
	registry    *gateway.Registry
	baseURL     string
	orderRepo   repository.OrderRepository
	txRepo      repository.TransactionRepository
	webhookRepo repository.WebhookEventRepository
	commissions CommissionService
	publisher   events.Publisher
	logger      *zap.Logger
}

func NewPaymentService(
	db *gorm.DB,
	registry *gateway.Registry,
	baseURL string,
	orderRepo repository.OrderRepository,
	txRepo repository.TransactionRepository,
	webhookRepo repository.WebhookEventRepository,
	commissions CommissionService,
	publisher events.Publisher,
	logger *zap.Logger,
) PaymentService {
	return &paymentServiceImpl{
		db:          db,
		registry:    registry,
		baseURL:     baseURL,
		orderRepo:   orderRepo,
		txRepo:      txRepo,
		webhookRepo: webhookRepo,
		commissions: commissions,
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *paymentServiceImpl) Process(ctx context.Context, provider string, in *ProcessInput) (*ProcessResult, error) {
	client, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByReference(ctx, in.OrderReference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status != model.OrderStatusPendingPayment {
		return nil, fmt.Errorf("%w: order %s is %s and cannot be paid", ErrValidation, order.Reference, order.Status)
	}
	if !client.Supports(order.PaymentMethod) {
		return nil, fmt.Errorf("%w: %s does not take %s", gateway.ErrUnsupportedMethod, provider, order.PaymentMethod)
	}
	if in.Amount != 0 && in.Amount != order.Total {
		return nil, fmt.Errorf("%w: amount %d does not match order total %d", ErrValidation, in.Amount, order.Total)
	}
	if in.Currency != "" && in.Currency != order.Currency {
		return nil, fmt.Errorf("%w: currency %s does not match order currency %s", ErrValidation, in.Currency, order.Currency)
	}

	req, err := payment.Normalize(in.Selection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if req.Method != order.PaymentMethod {
		return nil, fmt.Errorf("%w: order expects method %s", ErrValidation, order.PaymentMethod)
	}

	tr, resumed, err := s.openAttempt(ctx, order, provider)
	if err != nil {
		return nil, err
	}
	if resumed != nil {
		return resumed, nil
	}

	res, err := client.Initiate(ctx, s.initiateRequest(order, req, in))
	if err != nil {
		// free the slot; nothing settled at the provider for this attempt
		if _, cerr := s.finalize(ctx, order, tr, model.TransactionStatusErrored, truncateReason(err.Error())); cerr != nil {
			s.logger.Error("close failed attempt",
				zap.String("order_reference", order.Reference),
				zap.Uint("transaction_id", tr.ID),
				zap.Error(cerr),
			)
		}
		return nil, s.classifyInitiateError(err)
	}

	if err := s.txRepo.MarkProcessing(ctx, s.db, tr.ID, res.GatewayTransactionID, res.ProcessURL); err != nil {
		return nil, fmt.Errorf("record gateway handle: %w", err)
	}
	tr.GatewayTransactionID = res.GatewayTransactionID

	if res.Mode == gateway.ModeRedirect {
		s.logger.Info("payment redirect initiated",
			zap.String("order_reference", order.Reference),
			zap.Uint("transaction_id", tr.ID),
			zap.String("provider", provider),
		)
		return &ProcessResult{
			Mode:                 gateway.ModeRedirect,
			PaymentURL:           res.ProcessURL,
			TransactionID:        tr.ID,
			GatewayTransactionID: res.GatewayTransactionID,
			Status:               model.TransactionStatusProcessing,
		}, nil
	}

	if res.Status.IsTerminal() {
		if _, err := s.finalize(ctx, order, tr, res.Status, res.FailureReason); err != nil {
			return nil, err
		}
	}

	s.logger.Info("inline payment processed",
		zap.String("order_reference", order.Reference),
		zap.Uint("transaction_id", tr.ID),
		zap.String("provider", provider),
		zap.String("status", string(res.Status)),
	)

	return &ProcessResult{
		Mode:                 gateway.ModeInline,
		TransactionID:        tr.ID,
		GatewayTransactionID: res.GatewayTransactionID,
		Status:               res.Status,
		FailureReason:        res.FailureReason,
	}, nil
}

// openAttempt claims the order's open slot. A slot held by the same provider
// is reconciled first: a parked redirect is handed back, an approved attempt
// is reported, and a slot the reconciliation freed is claimed on the second
// pass. Attempts open on another provider are never touched.
func (s *paymentServiceImpl) openAttempt(ctx context.Context, order *model.Order, provider string) (*model.Transaction, *ProcessResult, error) {
	for attempt := 0; attempt < 2; attempt++ {
		tr := &model.Transaction{
			OrderReference: order.Reference,
			Provider:       provider,
			Amount:         order.Total,
			Currency:       order.Currency,
		}
		err := s.txRepo.CreateOpen(ctx, s.db, tr)
		if err == nil {
			return tr, nil, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, fmt.Errorf("open payment attempt: %w", err)
		}

		open, ferr := s.txRepo.FindOpen(ctx, order.Reference)
		if ferr != nil {
			if errors.Is(ferr, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, nil, ferr
		}

		if open.Provider != provider {
			return nil, nil, ErrTransactionInFlight
		}

		refreshed, rerr := s.reconcile(ctx, order, open)
		if rerr != nil {
			return nil, nil, rerr
		}

		switch {
		case refreshed.Status == model.TransactionStatusProcessing && refreshed.ProcessURL != "":
			return nil, &ProcessResult{
				Mode:                 gateway.ModeRedirect,
				PaymentURL:           refreshed.ProcessURL,
				TransactionID:        refreshed.ID,
				GatewayTransactionID: refreshed.GatewayTransactionID,
				Status:               refreshed.Status,
				Resumed:              true,
			}, nil
		case refreshed.Status == model.TransactionStatusApproved:
			return nil, &ProcessResult{
				Mode:                 gateway.ModeInline,
				TransactionID:        refreshed.ID,
				GatewayTransactionID: refreshed.GatewayTransactionID,
				Status:               refreshed.Status,
			}, nil
		case !refreshed.Status.IsTerminal():
			return nil, nil, ErrTransactionInFlight
		}
		// declined, errored or voided freed the slot; retry the insert
	}

	return nil, nil, ErrTransactionInFlight
}

func (s *paymentServiceImpl) HandleReturn(ctx context.Context, orderReference string) (*ReconcileResult, error) {
	order, err := s.orderRepo.FindByReference(ctx, orderReference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	open, err := s.txRepo.FindOpen(ctx, orderReference)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return s.currentState(ctx, order)
	}

	refreshed, err := s.reconcile(ctx, order, open)
	if err != nil {
		// the provider did not answer; show the attempt as it stands and
		// let the confirmation page keep polling
		s.logger.Warn("return reconciliation failed",
			zap.String("order_reference", orderReference),
			zap.Uint("transaction_id", open.ID),
			zap.Error(err),
		)
		return &ReconcileResult{Order: order, Transaction: open}, nil
	}

	order, err = s.orderRepo.FindByReference(ctx, orderReference)
	if err != nil {
		return nil, err
	}

	return &ReconcileResult{Order: order, Transaction: refreshed}, nil
}

// currentState renders the latest attempt when nothing is open.
func (s *paymentServiceImpl) currentState(ctx context.Context, order *model.Order) (*ReconcileResult, error) {
	all, err := s.txRepo.ListByOrder(ctx, order.Reference)
	if err != nil {
		return nil, err
	}

	var latest *model.Transaction
	if len(all) > 0 {
		latest = all[len(all)-1]
	}

	return &ReconcileResult{Order: order, Transaction: latest}, nil
}

func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, provider string, headers http.Header, body []byte) error {
	client, err := s.registry.Get(provider)
	if err != nil {
		return err
	}

	n, err := client.ParseNotification(headers, body)
	if err != nil {
		return err
	}

	seen, err := s.webhookRepo.Exists(n.EventID)
	if err != nil {
		return fmt.Errorf("check webhook dedup: %w", err)
	}
	if seen {
		s.logger.Debug("webhook already processed", zap.String("event_id", n.EventID))
		return nil
	}

	tr, err := s.txRepo.FindByGatewayID(ctx, provider, n.GatewayTransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("webhook for unknown transaction",
				zap.String("event_id", n.EventID),
				zap.String("gateway_transaction_id", n.GatewayTransactionID),
			)
			return s.webhookRepo.MarkProcessed(n.EventID, provider, string(n.Status))
		}
		return err
	}

	order, err := s.orderRepo.FindByReference(ctx, tr.OrderReference)
	if err != nil {
		return fmt.Errorf("load order %s: %w", tr.OrderReference, err)
	}

	if n.Status.IsTerminal() {
		// a failure here leaves the event unrecorded so the provider retries
		if _, err := s.finalize(ctx, order, tr, n.Status, n.FailureReason); err != nil {
			return err
		}
	}

	return s.webhookRepo.MarkProcessed(n.EventID, provider, string(n.Status))
}

// reconcile refreshes one open attempt against its provider and settles it
// when the provider reports a terminal state. Initiations abandoned mid-crash
// are reclaimed after staleInitiationAge.
func (s *paymentServiceImpl) reconcile(ctx context.Context, order *model.Order, open *model.Transaction) (*model.Transaction, error) {
	if open.Status == model.TransactionStatusInitializing {
		if time.Since(open.CreatedAt) < staleInitiationAge {
			return open, nil
		}
		if _, err := s.finalize(ctx, order, open, model.TransactionStatusErrored, "initiation abandoned"); err != nil {
			return open, err
		}
		return s.txRepo.FindByID(ctx, open.ID)
	}

	if open.Status != model.TransactionStatusProcessing || open.GatewayTransactionID == "" {
		return open, nil
	}

	client, err := s.registry.Get(open.Provider)
	if err != nil {
		return open, err
	}

	res, err := client.QueryStatus(ctx, open.GatewayTransactionID)
	if err != nil {
		return open, s.classifyInitiateError(err)
	}
	if !res.Status.IsTerminal() {
		return open, nil
	}

	if _, err := s.finalize(ctx, order, open, res.Status, res.FailureReason); err != nil {
		return open, err
	}

	return s.txRepo.FindByID(ctx, open.ID)
}

// finalize closes an attempt and, on approval, marks the order paid and
// records the commission split in the same database transaction. The guarded
// close makes racing webhook/return/poll reconciliations settle exactly once.
func (s *paymentServiceImpl) finalize(ctx context.Context, order *model.Order, tr *model.Transaction, status model.TransactionStatus, reason string) (bool, error) {
	if !status.IsTerminal() {
		return false, nil
	}

	var closed bool
	var split *model.Commission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		closed, err = s.txRepo.Close(ctx, tx, tr.ID, status, truncateReason(reason))
		if err != nil {
			return fmt.Errorf("close transaction: %w", err)
		}
		if !closed || status != model.TransactionStatusApproved {
			return nil
		}

		err = s.orderRepo.UpdateStatus(ctx, tx, order.Reference,
			[]model.OrderStatus{model.OrderStatusPendingPayment}, model.OrderStatusPaid)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("mark order paid: %w", err)
		}

		split, err = s.commissions.Split(ctx, tx, order, tr)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if !closed {
		return false, nil
	}

	tr.Status = status
	tr.FailureReason = truncateReason(reason)
	tr.Open = nil

	s.logger.Info("payment attempt settled",
		zap.String("order_reference", order.Reference),
		zap.Uint("transaction_id", tr.ID),
		zap.String("status", string(status)),
	)

	if status == model.TransactionStatusApproved {
		settled := &events.PaymentSettled{
			OrderID:       order.ID,
			Reference:     order.Reference,
			TransactionID: tr.ID,
			Provider:      tr.Provider,
			Amount:        tr.Amount,
			Currency:      tr.Currency,
			SettledAt:     time.Now().UTC(),
		}
		if split != nil {
			settled.VendorAmount = split.VendorAmount
			settled.PlatformAmount = split.PlatformAmount
		}
		if err := s.publisher.PublishPaymentSettled(ctx, settled); err != nil {
			s.logger.Error("publish payment settled",
				zap.String("order_reference", order.Reference),
				zap.Error(err),
			)
		}
	}

	return true, nil
}

func (s *paymentServiceImpl) initiateRequest(order *model.Order, req *payment.Request, in *ProcessInput) *gateway.InitiateRequest {
	returnURL := in.ReturnURL
	if returnURL == "" {
		returnURL = fmt.Sprintf("%s/api/payments/return?reference=%s", s.baseURL, order.Reference)
	}

	return &gateway.InitiateRequest{
		OrderReference: order.Reference,
		Amount:         order.Total,
		Currency:       order.Currency,
		Description:    fmt.Sprintf("Pedido %s", order.Reference),
		Request:        req,
		Payer: gateway.Payer{
			Name:   order.Address.Name,
			Email:  in.BuyerEmail,
			Mobile: order.Address.Phone,
		},
		ReturnURL: returnURL,
		ClientIP:  in.ClientIP,
		UserAgent: in.UserAgent,
	}
}

func (s *paymentServiceImpl) classifyInitiateError(err error) error {
	var ve *payment.ValidationError
	if errors.As(err, &ve) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if errors.Is(err, gateway.ErrUnsupportedMethod) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
}

func truncateReason(msg string) string {
	if len(msg) > 255 {
		return msg[:255]
	}
	return msg
}
