package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/broker"
	"storefront/internal/cache"
	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultPaymentMethod is sent when the caller does not choose one.
const DefaultPaymentMethod = "COD"

// CheckoutLocker serialises checkouts of one user across processes.
type CheckoutLocker interface {
	AcquireCheckoutLock(ctx context.Context, userID, owner string, ttl time.Duration) (bool, error)
	ReleaseCheckoutLock(ctx context.Context, userID, owner string) error
	RememberOrder(ctx context.Context, idempotencyKey, orderID string, ttl time.Duration) error
}

// CheckoutJournal records every attempt and the stage it reached.
type CheckoutJournal interface {
	RecordAttempt(ctx context.Context, attempt *models.CheckoutAttempt) error
	UpdateStage(ctx context.Context, idempotencyKey string, stage models.CheckoutStage, outcome, orderID, reason string) error
}

// CheckoutPublisher emits checkout outcome events.
type CheckoutPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishCheckoutPartialFailure(ctx context.Context, event *models.CheckoutPartialFailureEvent) error
	PublishCheckoutFailed(ctx context.Context, event *models.CheckoutFailedEvent) error
}

type CheckoutConfig struct {
	LockTTL        time.Duration
	IdempotencyTTL time.Duration
}

// PlaceOrderResult describes a completed checkout. Warning is set when the
// order list could not be refreshed afterwards.
type PlaceOrderResult struct {
	Order          *models.Order        `json:"order"`
	Totals         pricing.Totals       `json:"totals"`
	IdempotencyKey string               `json:"idempotencyKey"`
	Stage          models.CheckoutStage `json:"stage"`
	Warning        string               `json:"warning,omitempty"`
	Shared         bool                 `json:"shared"`
}

// Checkout coordinates the place order flow: create the order, clear the
// cart, refresh the order list.
type Checkout struct {
	api       CartOrderAPI
	session   *gateway.Session
	caches    *cache.Store
	rates     *RatesProvider
	cfg       CheckoutConfig
	locker    CheckoutLocker
	journal   CheckoutJournal
	publisher CheckoutPublisher
	logger    *zap.Logger

	flights singleflight.Group

	mu      sync.Mutex
	stages  map[string]models.CheckoutStage
	pending map[string]*pendingOrder
}

// pendingOrder is an order that was created but whose cart clear failed.
type pendingOrder struct {
	order     *models.Order
	key       string
	totals    pricing.Totals
	itemCount int
}

// CartOrderAPI is the subset of the API checkout calls.
type CartOrderAPI interface {
	GetCart(ctx context.Context) (*models.Cart, error)
	ClearCart(ctx context.Context) error
	CreateOrder(ctx context.Context, data *models.OrderData, idempotencyKey string) (*models.Order, error)
	MyOrders(ctx context.Context) ([]models.Order, error)
}

type CheckoutOption func(*Checkout)

func WithLocker(l CheckoutLocker) CheckoutOption {
	return func(c *Checkout) { c.locker = l }
}

func WithJournal(j CheckoutJournal) CheckoutOption {
	return func(c *Checkout) { c.journal = j }
}

func WithPublisher(p CheckoutPublisher) CheckoutOption {
	return func(c *Checkout) { c.publisher = p }
}

// NewCheckout creates a new checkout coordinator
func NewCheckout(
	api CartOrderAPI,
	session *gateway.Session,
	caches *cache.Store,
	rates *RatesProvider,
	cfg CheckoutConfig,
	opts ...CheckoutOption,
) *Checkout {
	c := &Checkout{
		api:     api,
		session: session,
		caches:  caches,
		rates:   rates,
		cfg:     cfg,
		logger:  util.GetLogger(),
		stages:  make(map[string]models.CheckoutStage),
		pending: make(map[string]*pendingOrder),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stage returns the stage the user's latest checkout reached.
func (c *Checkout) Stage(userID string) models.CheckoutStage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stage, ok := c.stages[userID]; ok {
		return stage
	}
	return models.StageIdle
}

func (c *Checkout) setStage(userID string, stage models.CheckoutStage) {
	c.mu.Lock()
	c.stages[userID] = stage
	c.mu.Unlock()
}

// PlaceOrder turns the cached cart into an order shipped to address.
// Concurrent calls for the same user share a single execution.
func (c *Checkout) PlaceOrder(ctx context.Context, address *models.Address, paymentMethod string) (*PlaceOrderResult, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.PlaceOrder")
	defer span.End()

	if address == nil {
		util.CheckoutFailuresTotal.WithLabelValues(string(models.StageIdle)).Inc()
		return nil, invalid(ErrNoAddressSelected)
	}
	if err := address.Validate(); err != nil {
		util.CheckoutFailuresTotal.WithLabelValues(string(models.StageIdle)).Inc()
		return nil, invalid(err)
	}
	if !c.session.Authenticated() {
		return nil, ErrNotSignedIn
	}
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	userID := c.session.UserID()
	span.SetAttributes(attribute.String("user.id", userID))

	v, err, shared := c.flights.Do(userID, func() (interface{}, error) {
		return c.run(context.WithoutCancel(ctx), userID, *address, paymentMethod)
	})
	if shared {
		util.CheckoutDuplicatesTotal.Inc()
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	result := *v.(*PlaceOrderResult)
	result.Shared = shared
	return &result, nil
}

func (c *Checkout) run(ctx context.Context, userID string, address models.Address, paymentMethod string) (*PlaceOrderResult, error) {
	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if p := c.pendingFor(userID); p != nil {
		return c.resume(ctx, userID, p)
	}

	key := uuid.New().String()
	logger := c.logger.With(zap.String("user_id", userID), zap.String("idempotency_key", key))

	cart, err := c.currentCart(ctx)
	if err != nil {
		c.fail(userID, models.StageIdle)
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		c.fail(userID, models.StageIdle)
		return nil, invalid(ErrEmptyCart)
	}

	c.setStage(userID, models.StageAddressSelected)

	release, err := c.lock(ctx, logger, userID, key)
	if err != nil {
		c.fail(userID, models.StageAddressSelected)
		return nil, err
	}
	defer release()

	totals := pricing.Summarize(cart, c.rates.Rates())
	data := BuildOrderData(cart, address, totals, paymentMethod)

	c.record(ctx, logger, &models.CheckoutAttempt{
		IdempotencyKey: key,
		UserID:         userID,
		Stage:          models.StageOrderCreating,
		Outcome:        models.AttemptPending,
		TotalPrice:     totals.Total,
	})

	c.setStage(userID, models.StageOrderCreating)
	order, err := c.api.CreateOrder(ctx, data, key)
	if err != nil {
		c.fail(userID, models.StageOrderCreating)
		c.advance(ctx, logger, key, models.StageOrderCreating, models.AttemptFailed, "", err.Error())
		c.publishFailed(ctx, logger, userID, key, models.StageOrderCreating, err)
		logger.Error("Order creation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrOrderCreationFailed, err)
	}

	c.setStage(userID, models.StageOrderCreated)
	util.CheckoutOrdersPlacedTotal.Inc()
	logger = logger.With(zap.String("order_id", order.ID))
	logger.Info("Order created")

	c.advance(ctx, logger, key, models.StageOrderCreated, models.AttemptPending, order.ID, "")
	if c.locker != nil {
		if err := c.locker.RememberOrder(ctx, key, order.ID, c.cfg.IdempotencyTTL); err != nil {
			logger.Warn("Failed to remember idempotency key", zap.Error(err))
		}
	}
	c.caches.Orders.ApplyCreate(*order)

	return c.finish(ctx, logger, userID, &pendingOrder{
		order:     order,
		key:       key,
		totals:    totals,
		itemCount: len(data.Items),
	})
}

// resume finishes a checkout whose order exists but whose cart was never
// cleared. No second order is created.
func (c *Checkout) resume(ctx context.Context, userID string, p *pendingOrder) (*PlaceOrderResult, error) {
	logger := c.logger.With(
		zap.String("user_id", userID),
		zap.String("idempotency_key", p.key),
		zap.String("order_id", p.order.ID))
	logger.Info("Resuming checkout at cart clearing")

	release, err := c.lock(ctx, logger, userID, p.key)
	if err != nil {
		c.fail(userID, models.StageCartClearing)
		return nil, err
	}
	defer release()

	return c.finish(ctx, logger, userID, p)
}

// finish clears the cart, refreshes the order list and reports the outcome
// of an order that has been created.
func (c *Checkout) finish(ctx context.Context, logger *zap.Logger, userID string, p *pendingOrder) (*PlaceOrderResult, error) {
	order, key := p.order, p.key

	c.setStage(userID, models.StageCartClearing)
	if err := c.api.ClearCart(ctx); err != nil {
		c.fail(userID, models.StageCartClearing)
		c.setPending(userID, p)
		c.caches.Cart.Fail(err)
		c.advance(ctx, logger, key, models.StageCartClearing, models.AttemptPartial, order.ID, err.Error())
		c.publishPartial(ctx, logger, userID, key, order.ID, models.StageCartClearing, err)
		logger.Error("Order placed but cart clear failed", zap.Error(err))
		return nil, &PartialFailure{Stage: models.StageCartClearing, Order: order, Err: err}
	}
	c.setPending(userID, nil)
	c.caches.Cart.Clear()
	c.setStage(userID, models.StageCartCleared)

	result := &PlaceOrderResult{
		Order:          order,
		Totals:         p.totals,
		IdempotencyKey: key,
	}

	c.setStage(userID, models.StageOrdersRefreshing)
	if _, err := c.caches.Orders.List.FetchAll(ctx, c.api.MyOrders); err != nil {
		logger.Warn("Order list refresh failed", zap.Error(err))
		result.Warning = fmt.Sprintf("order placed, but the order list could not be refreshed: %v", err)
	}

	c.setStage(userID, models.StageDone)
	result.Stage = models.StageDone
	c.advance(ctx, logger, key, models.StageDone, models.AttemptSucceeded, order.ID, "")

	if c.publisher != nil {
		event := &models.OrderPlacedEvent{
			BaseEvent:      broker.NewBaseEvent(models.EventTypeOrderPlaced),
			OrderID:        order.ID,
			UserID:         userID,
			IdempotencyKey: key,
			TotalPrice:     p.totals.Total,
			ItemCount:      p.itemCount,
		}
		if err := c.publisher.PublishOrderPlaced(ctx, event); err != nil {
			logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}
	}

	logger.Info("Checkout completed", zap.String("total", pricing.Display(p.totals.Total)))
	return result, nil
}

// lock takes the cross-process checkout lock when one is configured. The
// returned release func is always safe to call.
func (c *Checkout) lock(ctx context.Context, logger *zap.Logger, userID, owner string) (func(), error) {
	noop := func() {}
	if c.locker == nil {
		return noop, nil
	}
	acquired, err := c.locker.AcquireCheckoutLock(ctx, userID, owner, c.cfg.LockTTL)
	switch {
	case err != nil:
		logger.Warn("Checkout lock unavailable, continuing without it", zap.Error(err))
		return noop, nil
	case !acquired:
		util.CheckoutDuplicatesTotal.Inc()
		return noop, invalid(ErrCheckoutInProgress)
	}
	return func() {
		if err := c.locker.ReleaseCheckoutLock(ctx, userID, owner); err != nil {
			logger.Error("Failed to release checkout lock", zap.Error(err))
		}
	}, nil
}

func (c *Checkout) fail(userID string, stage models.CheckoutStage) {
	c.setStage(userID, models.StageFailed)
	util.CheckoutFailuresTotal.WithLabelValues(string(stage)).Inc()
}

func (c *Checkout) pendingFor(userID string) *pendingOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[userID]
}

func (c *Checkout) setPending(userID string, p *pendingOrder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil {
		delete(c.pending, userID)
		return
	}
	c.pending[userID] = p
}

// currentCart returns the cached cart. It is loaded first when it was never
// fetched or when the last mutation left it failed.
func (c *Checkout) currentCart(ctx context.Context) (*models.Cart, error) {
	if status := c.caches.Cart.Status(); status == cache.StatusIdle || status == cache.StatusFailed {
		return c.caches.Cart.Load(ctx, c.api.GetCart)
	}
	return c.caches.Cart.Cart(), nil
}

// BuildOrderData snapshots the cart lines and totals into a create-order payload.
func BuildOrderData(cart *models.Cart, address models.Address, totals pricing.Totals, paymentMethod string) *models.OrderData {
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, models.OrderItem{
			ProductID: item.Product.ID,
			Title:     item.Product.Title.Get(models.DefaultLanguage),
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		})
	}
	return &models.OrderData{
		Items:           items,
		ShippingAddress: address,
		Subtotal:        totals.Subtotal,
		GST:             totals.GST,
		DeliveryFee:     totals.DeliveryFee,
		TotalPrice:      totals.Total,
		PaymentMethod:   paymentMethod,
	}
}

func (c *Checkout) record(ctx context.Context, logger *zap.Logger, attempt *models.CheckoutAttempt) {
	if c.journal == nil {
		return
	}
	if err := c.journal.RecordAttempt(ctx, attempt); err != nil {
		logger.Error("Failed to record checkout attempt", zap.Error(err))
	}
}

func (c *Checkout) advance(ctx context.Context, logger *zap.Logger, key string, stage models.CheckoutStage, outcome, orderID, reason string) {
	if c.journal == nil {
		return
	}
	if err := c.journal.UpdateStage(ctx, key, stage, outcome, orderID, reason); err != nil {
		logger.Error("Failed to update checkout journal", zap.Error(err))
	}
}

func (c *Checkout) publishFailed(ctx context.Context, logger *zap.Logger, userID, key string, stage models.CheckoutStage, cause error) {
	if c.publisher == nil {
		return
	}
	event := &models.CheckoutFailedEvent{
		BaseEvent:      broker.NewBaseEvent(models.EventTypeCheckoutFailed),
		UserID:         userID,
		IdempotencyKey: key,
		Stage:          string(stage),
		Reason:         cause.Error(),
	}
	if err := c.publisher.PublishCheckoutFailed(ctx, event); err != nil {
		logger.Error("Failed to publish CheckoutFailed event", zap.Error(err))
	}
}

func (c *Checkout) publishPartial(ctx context.Context, logger *zap.Logger, userID, key, orderID string, stage models.CheckoutStage, cause error) {
	if c.publisher == nil {
		return
	}
	event := &models.CheckoutPartialFailureEvent{
		BaseEvent:      broker.NewBaseEvent(models.EventTypeCheckoutPartialFailure),
		OrderID:        orderID,
		UserID:         userID,
		IdempotencyKey: key,
		Stage:          string(stage),
		Reason:         cause.Error(),
	}
	if err := c.publisher.PublishCheckoutPartialFailure(ctx, event); err != nil {
		logger.Error("Failed to publish CheckoutPartialFailure event", zap.Error(err))
	}
}
