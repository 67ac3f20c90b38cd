package service

import (
	"context"
	"fmt"

	"storefront/internal/cache"
	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService handles order reads, cancellation and admin status updates
type OrderService struct {
	api     OrderAPI
	session *gateway.Session
	caches  *cache.Store
	logger  *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(api OrderAPI, session *gateway.Session, caches *cache.Store) *OrderService {
	return &OrderService{
		api:     api,
		session: session,
		caches:  caches,
		logger:  util.GetLogger(),
	}
}

// LoadMine loads the signed-in user's orders
func (s *OrderService) LoadMine(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.LoadMine")
	defer span.End()

	return s.caches.Orders.List.FetchAll(ctx, s.api.MyOrders)
}

// LoadAll loads every order; admin only
func (s *OrderService) LoadAll(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.LoadAll")
	defer span.End()

	if err := requireAdmin(s.session); err != nil {
		return nil, err
	}
	return s.caches.Orders.List.FetchAll(ctx, s.api.AllOrders)
}

// Get loads one order into the selection
func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Get", attribute.String("order.id", id))
	defer span.End()

	return s.caches.Orders.Selected.Fetch(ctx, func(ctx context.Context) (*models.Order, error) {
		return s.api.GetOrder(ctx, id)
	})
}

// known returns the cached order, fetching it when it is not cached.
func (s *OrderService) known(ctx context.Context, id string) (*models.Order, error) {
	if sel := s.caches.Orders.Selected.Value(); sel != nil && sel.ID == id {
		return sel, nil
	}
	if o, ok := s.caches.Orders.List.Find(id); ok {
		return &o, nil
	}
	order, err := s.api.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// Cancel cancels an order that has not shipped or finished
func (s *OrderService) Cancel(ctx context.Context, id string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel", attribute.String("order.id", id))
	defer span.End()

	current, err := s.known(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.OrderStatus.Terminal() {
		return nil, invalid(fmt.Errorf("%w: status %s", ErrOrderNotCancellable, current.OrderStatus))
	}

	order, err := s.api.CancelOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	s.caches.Orders.ApplyUpdate(*order)

	s.logger.Info("Order cancelled", zap.String("order_id", id))
	return order, nil
}

// UpdateStatus changes an order's status fields; admin only. Both
// transitions are checked locally before the request is sent.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus", attribute.String("order.id", id))
	defer span.End()

	if err := requireAdmin(s.session); err != nil {
		return nil, err
	}
	if update.OrderStatus == "" && update.PaymentStatus == "" {
		return nil, invalid(fmt.Errorf("%w: nothing to update", ErrInvalidTransition))
	}
	if update.OrderStatus != "" && !update.OrderStatus.Valid() {
		return nil, invalid(fmt.Errorf("%w: unknown order status %q", ErrInvalidTransition, update.OrderStatus))
	}
	if update.PaymentStatus != "" && !update.PaymentStatus.Valid() {
		return nil, invalid(fmt.Errorf("%w: unknown payment status %q", ErrInvalidTransition, update.PaymentStatus))
	}

	current, err := s.known(ctx, id)
	if err != nil {
		return nil, err
	}
	orderStatus, paymentStatus := current.OrderStatus, current.PaymentStatus
	if orderStatus == "" {
		orderStatus = models.OrderStatusPending
	}
	if paymentStatus == "" {
		paymentStatus = models.PaymentStatusPending
	}
	if update.OrderStatus != "" && !orderStatus.CanTransition(update.OrderStatus) {
		return nil, invalid(fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, orderStatus, update.OrderStatus))
	}
	if update.PaymentStatus != "" && !paymentStatus.CanTransition(update.PaymentStatus) {
		return nil, invalid(fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, paymentStatus, update.PaymentStatus))
	}

	order, err := s.api.UpdateOrderStatus(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	s.caches.Orders.ApplyUpdate(*order)

	s.logger.Info("Order status updated",
		zap.String("order_id", id),
		zap.String("order_status", string(order.OrderStatus)),
		zap.String("payment_status", string(order.PaymentStatus)))
	return order, nil
}
