package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/cache"
	"storefront/internal/gateway"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AttemptLister reads the checkout journal
type AttemptLister interface {
	ListAttempts(ctx context.Context, userID string, limit int) ([]models.CheckoutAttempt, error)
	GetAttempt(ctx context.Context, idempotencyKey string) (*models.CheckoutAttempt, error)
}

// OrderResolver maps an idempotency key to the order it produced
type OrderResolver interface {
	OrderFor(ctx context.Context, idempotencyKey string) (string, error)
}

// WithOrderResolver lets /checkout/attempts/:key answer without the journal
func (h *Handler) WithOrderResolver(r OrderResolver) *Handler {
	h.resolver = r
	return h
}

// WithJournal exposes the checkout journal under /checkout/attempts
func (h *Handler) WithJournal(j AttemptLister) *Handler {
	h.journal = j
	return h
}

type quantityRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CheckoutRequest selects a saved address by index or carries one inline.
type CheckoutRequest struct {
	AddressIndex  *int            `json:"addressIndex,omitempty"`
	Address       *models.Address `json:"address,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
}

func (h *Handler) signIn(c *gin.Context) {
	var creds gateway.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.svc.Auth.SignIn(c.Request.Context(), creds)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) signUp(c *gin.Context) {
	var req gateway.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.svc.Auth.SignUp(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) signOut(c *gin.Context) {
	h.svc.Auth.SignOut()
	c.Status(http.StatusNoContent)
}

// bootstrap primes the caches and returns their state, failed or not
func (h *Handler) bootstrap(c *gin.Context) {
	err := h.svc.Auth.Bootstrap(c.Request.Context())
	if err != nil && service.KindOf(err) == service.KindAuth {
		h.writeError(c, err)
		return
	}
	status := http.StatusOK
	body := h.state()
	if err != nil {
		status = http.StatusMultiStatus
		body["warning"] = err.Error()
	}
	c.JSON(status, body)
}

func (h *Handler) state() gin.H {
	caches := h.svc.Caches
	return gin.H{
		"cart":    caches.Cart.Snapshot(),
		"totals":  h.svc.Cart.Totals(),
		"user":    caches.User.Snapshot(),
		"orders":  caches.Orders.List.Snapshot(),
		"catalog": caches.Products.List.Snapshot(),
		"rates":   h.svc.Rates.Rates(),
	}
}

// getCart returns the cached cart, loading it first when asked or never loaded
func (h *Handler) getCart(c *gin.Context) {
	cart := h.svc.Caches.Cart
	if c.Query("refresh") == "true" || cart.Status() == cache.StatusIdle {
		if _, err := h.svc.Cart.Load(c.Request.Context()); err != nil {
			h.writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"cart":   cart.Snapshot(),
		"totals": h.svc.Cart.Totals(),
	})
}

func (h *Handler) cartTotals(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Cart.Totals())
}

func (h *Handler) addToCart(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, err := h.svc.Cart.Add(c.Request.Context(), req.ProductID, req.Quantity)
	h.writeCart(c, cart, err)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, err := h.svc.Cart.UpdateQuantity(c.Request.Context(), c.Param("productId"), req.Quantity)
	h.writeCart(c, cart, err)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	cart, err := h.svc.Cart.Remove(c.Request.Context(), c.Param("productId"))
	h.writeCart(c, cart, err)
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.svc.Cart.Clear(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeCart(c *gin.Context, cart *models.Cart, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cart":   cart,
		"totals": h.svc.Cart.Totals(),
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	q := models.ProductQuery{
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 0),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Order:    c.Query("order"),
	}
	page, err := h.svc.Catalog.List(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getProduct(c *gin.Context) {
	p, err := h.svc.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) createProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		bindError(c, err)
		return
	}
	created, err := h.svc.Catalog.Create(c.Request.Context(), &p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		bindError(c, err)
		return
	}
	p.ID = c.Param("id")
	updated, err := h.svc.Catalog.Update(c.Request.Context(), &p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.svc.Catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listReviews(c *gin.Context) {
	reviews, err := h.svc.Reviews.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews":       reviews,
		"averageRating": h.svc.Caches.Reviews.AverageRating(),
	})
}

func (h *Handler) createReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	review, err := h.svc.Reviews.Create(c.Request.Context(), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) deleteReview(c *gin.Context) {
	if err := h.svc.Reviews.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) myOrders(c *gin.Context) {
	orders, err := h.svc.Orders.LoadMine(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) allOrders(c *gin.Context) {
	orders, err := h.svc.Orders.LoadAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.svc.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	order, err := h.svc.Orders.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var update models.StatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		bindError(c, err)
		return
	}
	order, err := h.svc.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// placeOrder runs checkout against a saved address or an inline one. A missing
// or out of range address reaches the coordinator as nil and is rejected there.
func (h *Handler) placeOrder(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	address := req.Address
	if req.AddressIndex != nil {
		address = h.svc.Profile.Address(*req.AddressIndex)
	}

	result, err := h.svc.Checkout.PlaceOrder(c.Request.Context(), address, req.PaymentMethod)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Warning != "" {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

func (h *Handler) checkoutStatus(c *gin.Context) {
	if !h.svc.Session.Authenticated() {
		h.writeError(c, service.ErrNotSignedIn)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stage": h.svc.Checkout.Stage(h.svc.Session.UserID()),
	})
}

func (h *Handler) checkoutAttempts(c *gin.Context) {
	if !h.svc.Session.Authenticated() {
		h.writeError(c, service.ErrNotSignedIn)
		return
	}
	if h.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "checkout journal is not configured"})
		return
	}
	attempts, err := h.journal.ListAttempts(c.Request.Context(), h.svc.Session.UserID(), queryInt(c, "limit", 20))
	if err != nil {
		h.logger.Error("Failed to list checkout attempts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list checkout attempts"})
		return
	}
	c.JSON(http.StatusOK, attempts)
}

// checkoutAttempt reports what one of the caller's idempotency keys produced.
// The journal row is preferred. The Redis record only knows the order ID, so
// that order is fetched with the caller's session and the API decides whether
// they may see it. Other users' keys read as unknown.
func (h *Handler) checkoutAttempt(c *gin.Context) {
	if !h.svc.Session.Authenticated() {
		h.writeError(c, service.ErrNotSignedIn)
		return
	}
	key := c.Param("key")
	ctx := c.Request.Context()

	if h.journal != nil {
		attempt, err := h.journal.GetAttempt(ctx, key)
		if err != nil {
			h.logger.Error("Failed to get checkout attempt", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get checkout attempt"})
			return
		}
		if attempt != nil {
			if attempt.UserID != h.svc.Session.UserID() {
				unknownKey(c)
				return
			}
			c.JSON(http.StatusOK, attempt)
			return
		}
	}

	if h.resolver != nil {
		orderID, err := h.resolver.OrderFor(ctx, key)
		if err != nil {
			h.logger.Error("Failed to resolve idempotency key", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve idempotency key"})
			return
		}
		if orderID != "" {
			order, err := h.svc.Orders.Get(ctx, orderID)
			if err != nil {
				if errors.Is(err, gateway.ErrNotFound) || errors.Is(err, gateway.ErrForbidden) {
					unknownKey(c)
					return
				}
				h.writeError(c, err)
				return
			}
			if order.UserID != "" && order.UserID != h.svc.Session.UserID() && !h.svc.Session.IsAdmin() {
				unknownKey(c)
				return
			}
			c.JSON(http.StatusOK, gin.H{"idempotencyKey": key, "orderId": order.ID, "order": order})
			return
		}
	}

	unknownKey(c)
}

func unknownKey(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Unknown idempotency key"})
}

func (h *Handler) getProfile(c *gin.Context) {
	user, err := h.svc.Profile.Load(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.svc.Profile.UpdateDetails(c.Request.Context(), req.Name, req.Email, req.Phone)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) addAddress(c *gin.Context) {
	var addr models.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		bindError(c, err)
		return
	}
	addrs, err := h.svc.Profile.AddAddress(c.Request.Context(), addr)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addrs)
}

func (h *Handler) updateAddress(c *gin.Context) {
	index, ok := pathIndex(c)
	if !ok {
		return
	}
	var addr models.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		bindError(c, err)
		return
	}
	addrs, err := h.svc.Profile.UpdateAddress(c.Request.Context(), index, addr)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, addrs)
}

func (h *Handler) deleteAddress(c *gin.Context) {
	index, ok := pathIndex(c)
	if !ok {
		return
	}
	addrs, err := h.svc.Profile.DeleteAddress(c.Request.Context(), index)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, addrs)
}

func (h *Handler) sendContact(c *gin.Context) {
	var msg models.ContactMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		bindError(c, err)
		return
	}
	if err := h.svc.Contact.Send(c.Request.Context(), &msg); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

func pathIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address index"})
		return 0, false
	}
	return index, true
}
