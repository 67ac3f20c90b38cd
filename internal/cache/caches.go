package cache

import (
	"context"
	"sort"
	"sync"

	"storefront/internal/models"
	"storefront/internal/pricing"
)

// CartCache holds the signed-in user's cart. Every stored snapshot is
// normalized so the cart total equals the sum of its line totals.
type CartCache struct {
	entity *Entity[*models.Cart]
}

func NewCartCache() *CartCache {
	return &CartCache{
		entity: NewEntity[*models.Cart]("cart").WithClone(func(c *models.Cart) *models.Cart {
			return c.Clone()
		}),
	}
}

// Load fetches the cart through fn.
func (c *CartCache) Load(ctx context.Context, fn func(ctx context.Context) (*models.Cart, error)) (*models.Cart, error) {
	return c.entity.Fetch(ctx, func(ctx context.Context) (*models.Cart, error) {
		cart, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return pricing.Normalize(cart), nil
	})
}

// Set stores a cart returned by a confirmed mutation.
func (c *CartCache) Set(cart *models.Cart) {
	c.entity.Set(pricing.Normalize(cart))
}

// Cart returns the cached cart, or an empty one before the first load.
func (c *CartCache) Cart() *models.Cart {
	if cart := c.entity.Value(); cart != nil {
		return cart
	}
	return pricing.Normalize(nil)
}

// Clear empties the cached cart after the server has cleared it.
func (c *CartCache) Clear() {
	cleared := pricing.Normalize(nil)
	if cur := c.entity.Value(); cur != nil {
		cleared.ID, cleared.UserID = cur.ID, cur.UserID
	}
	c.entity.Set(cleared)
}

func (c *CartCache) Fail(err error) {
	c.entity.Fail(err)
}

func (c *CartCache) Snapshot() State[*models.Cart] {
	s := c.entity.Snapshot()
	if s.Value == nil {
		s.Value = pricing.Normalize(nil)
	}
	return s
}

func (c *CartCache) Status() Status {
	return c.entity.Status()
}

func (c *CartCache) Reset() {
	c.entity.Reset()
}

// ProductCache holds one catalog page and the product being viewed.
type ProductCache struct {
	List     *Collection[models.Product]
	Selected *Entity[*models.Product]

	mu    sync.Mutex
	total int
	page  int
	pages int
}

func NewProductCache() *ProductCache {
	return &ProductCache{
		List:     NewCollection[models.Product]("products", func(p models.Product) string { return p.ID }),
		Selected: NewEntity[*models.Product]("product").WithClone(cloneProduct),
	}
}

func cloneProduct(p *models.Product) *models.Product {
	if p == nil {
		return nil
	}
	out := *p
	out.Images = append([]string(nil), p.Images...)
	out.Reviews = append([]models.Review(nil), p.Reviews...)
	return &out
}

// LoadPage fetches one catalog page through fn.
func (c *ProductCache) LoadPage(ctx context.Context, fn func(ctx context.Context) (*models.ProductPage, error)) (*models.ProductPage, error) {
	var meta models.ProductPage
	products, err := c.List.FetchAll(ctx, func(ctx context.Context) ([]models.Product, error) {
		page, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		meta = *page
		return page.Products, nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.total, c.page, c.pages = meta.Total, meta.Page, meta.Pages
	c.mu.Unlock()

	meta.Products = products
	return &meta, nil
}

// Page returns the cached page with its pagination metadata.
func (c *ProductCache) Page() *models.ProductPage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &models.ProductPage{Products: c.List.Items(), Total: c.total, Page: c.page, Pages: c.pages}
}

// Visible returns the cached products that are not soft-deleted.
func (c *ProductCache) Visible() []models.Product {
	items := c.List.Items()
	out := make([]models.Product, 0, len(items))
	for _, p := range items {
		if !p.Deleted {
			out = append(out, p)
		}
	}
	return out
}

// Lookup returns the product from the selection or the list.
func (c *ProductCache) Lookup(id string) (*models.Product, bool) {
	if p := c.Selected.Value(); p != nil && p.ID == id {
		return p, true
	}
	if p, ok := c.List.Find(id); ok {
		return &p, true
	}
	return nil, false
}

func (c *ProductCache) ApplyCreate(p models.Product) {
	c.List.ApplyCreate(p)
}

func (c *ProductCache) ApplyUpdate(p models.Product) {
	c.List.ApplyUpdate(p)
	if sel := c.Selected.Value(); sel != nil && sel.ID == p.ID {
		c.Selected.Set(&p)
	}
}

func (c *ProductCache) ApplyDelete(id string) {
	c.List.ApplyDelete(id)
	if sel := c.Selected.Value(); sel != nil && sel.ID == id {
		c.Selected.Reset()
	}
}

func (c *ProductCache) Reset() {
	c.List.Reset()
	c.Selected.Reset()
	c.mu.Lock()
	c.total, c.page, c.pages = 0, 0, 0
	c.mu.Unlock()
}

// OrderCache holds an order list (own orders, or all orders for admins)
// and the order being viewed.
type OrderCache struct {
	List     *Collection[models.Order]
	Selected *Entity[*models.Order]
}

func NewOrderCache() *OrderCache {
	return &OrderCache{
		List:     NewCollection[models.Order]("orders", func(o models.Order) string { return o.ID }),
		Selected: NewEntity[*models.Order]("order").WithClone(cloneOrder),
	}
}

func cloneOrder(o *models.Order) *models.Order {
	if o == nil {
		return nil
	}
	out := *o
	out.Items = append([]models.OrderItem(nil), o.Items...)
	return &out
}

func (c *OrderCache) ApplyCreate(o models.Order) {
	c.List.ApplyCreate(o)
}

func (c *OrderCache) ApplyUpdate(o models.Order) {
	c.List.ApplyUpdate(o)
	if sel := c.Selected.Value(); sel != nil && sel.ID == o.ID {
		c.Selected.Set(&o)
	}
}

func (c *OrderCache) Reset() {
	c.List.Reset()
	c.Selected.Reset()
}

// UserCache holds the signed-in user's profile.
type UserCache struct {
	*Entity[*models.User]
}

func NewUserCache() *UserCache {
	return &UserCache{NewEntity[*models.User]("user").WithClone(cloneUser)}
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	out := *u
	out.Addresses = append([]models.Address(nil), u.Addresses...)
	return &out
}

// Addresses returns the cached address book.
func (c *UserCache) Addresses() []models.Address {
	if u := c.Value(); u != nil {
		return u.Addresses
	}
	return nil
}

// SetAddresses replaces the address book of the cached profile.
func (c *UserCache) SetAddresses(addrs []models.Address) {
	c.Update(func(u *models.User) *models.User {
		if u == nil {
			return nil
		}
		out := cloneUser(u)
		out.Addresses = append([]models.Address(nil), addrs...)
		return out
	})
}

// ReviewCache holds the reviews of one product, newest first.
type ReviewCache struct {
	*Collection[models.Review]

	mu        sync.Mutex
	productID string
}

func NewReviewCache() *ReviewCache {
	return &ReviewCache{
		Collection: NewCollection[models.Review]("reviews", func(r models.Review) string { return r.ID }),
	}
}

// Load fetches the reviews of productID through fn.
func (c *ReviewCache) Load(ctx context.Context, productID string, fn func(ctx context.Context) ([]models.Review, error)) ([]models.Review, error) {
	c.mu.Lock()
	c.productID = productID
	c.mu.Unlock()

	return c.FetchAll(ctx, func(ctx context.Context) ([]models.Review, error) {
		reviews, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		sorted := append([]models.Review(nil), reviews...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
		return sorted, nil
	})
}

// ProductID is the product whose reviews are cached.
func (c *ReviewCache) ProductID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.productID
}

// AverageRating is the mean rating of the cached reviews, 0 when there are none.
func (c *ReviewCache) AverageRating() float64 {
	reviews := c.Items()
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

func (c *ReviewCache) Reset() {
	c.Collection.Reset()
	c.mu.Lock()
	c.productID = ""
	c.mu.Unlock()
}

// Store groups every cache of one storefront session.
type Store struct {
	Cart     *CartCache
	Products *ProductCache
	Orders   *OrderCache
	User     *UserCache
	Reviews  *ReviewCache
}

func NewStore() *Store {
	return &Store{
		Cart:     NewCartCache(),
		Products: NewProductCache(),
		Orders:   NewOrderCache(),
		User:     NewUserCache(),
		Reviews:  NewReviewCache(),
	}
}

// Reset returns every cache to idle, e.g. on sign-out. The catalog is
// public and is kept.
func (s *Store) Reset() {
	s.Cart.Reset()
	s.Orders.Reset()
	s.User.Reset()
	s.Reviews.Reset()
}
