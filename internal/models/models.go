package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The storefront API exchanges money as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// LocalizedText maps a language code to text.
type LocalizedText map[string]string

// DefaultLanguage is used when a requested translation is missing.
const DefaultLanguage = "en"

// Get returns the text for lang, falling back to the default language and
// then to any available translation.
func (t LocalizedText) Get(lang string) string {
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	if v, ok := t[DefaultLanguage]; ok && v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

// Product represents a catalog entry
type Product struct {
	ID                 string          `json:"_id"`
	Title              LocalizedText   `json:"title"`
	Description        LocalizedText   `json:"description,omitempty"`
	Category           LocalizedText   `json:"category,omitempty"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Stock              int             `json:"stock"`
	Brand              string          `json:"brand,omitempty"`
	Thumbnail          string          `json:"thumbnail,omitempty"`
	Images             []string        `json:"images,omitempty"`
	Reviews            []Review        `json:"reviews,omitempty"`
	AverageRating      float64         `json:"averageRating"`
	Deleted            bool            `json:"deleted"`
	CreatedAt          time.Time       `json:"createdAt,omitempty"`
	UpdatedAt          time.Time       `json:"updatedAt,omitempty"`
}

var hundred = decimal.NewFromInt(100)

var (
	ErrNegativePrice   = errors.New("price must not be negative")
	ErrNegativeStock   = errors.New("stock must not be negative")
	ErrDiscountRange   = errors.New("discount percentage must be between 0 and 100")
	ErrMissingTitle    = errors.New("title is required")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrEmptyReview     = errors.New("review body is required")
	ErrInvalidAddress  = errors.New("address requires line1, city and postal code")
	ErrMissingName     = errors.New("name is required")
	ErrMissingEmail    = errors.New("email is required")
	ErrMissingMessage  = errors.New("message is required")
	ErrMissingContact  = errors.New("email or phone is required")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Validate checks the invariants an admin edit must respect before it is sent.
func (p *Product) Validate() error {
	if len(p.Title) == 0 || p.Title.Get(DefaultLanguage) == "" {
		return ErrMissingTitle
	}
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	if p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(hundred) {
		return ErrDiscountRange
	}
	return nil
}

// InStock reports whether qty units can be requested.
func (p *Product) InStock(qty int) bool {
	return !p.Deleted && p.Stock >= qty
}

// ProductRef is the weak reference a cart keeps to a product.
type ProductRef struct {
	ID        string        `json:"_id"`
	Title     LocalizedText `json:"title,omitempty"`
	Thumbnail string        `json:"thumbnail,omitempty"`
}

// CartItem is one line of a cart. UnitPrice is snapshotted at add time.
type CartItem struct {
	Product    ProductRef      `json:"product"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Cart is owned by exactly one user
type Cart struct {
	ID         string          `json:"_id,omitempty"`
	UserID     string          `json:"user,omitempty"`
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Clone returns a deep copy so cached snapshots are never aliased.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = append([]CartItem(nil), c.Items...)
	return &out
}

// Address is an embedded value object on User, edited by index.
type Address struct {
	FullName   string `json:"fullName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"addressLine1"`
	Line2      string `json:"addressLine2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
}

func (a *Address) Validate() error {
	if a.Line1 == "" || a.City == "" || a.PostalCode == "" {
		return ErrInvalidAddress
	}
	return nil
}

// User roles
const (
	RoleUser   = "user"
	RoleVendor = "vendor"
	RoleAdmin  = "admin"
)

// User is the signed-in profile
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Addresses []Address `json:"addresses"`
}

// Review belongs to one product and one user
type Review struct {
	ID        string    `json:"_id"`
	ProductID string    `json:"product"`
	UserID    string    `json:"user"`
	Rating    int       `json:"rating"`
	Body      string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	if r.Body == "" {
		return ErrEmptyReview
	}
	return nil
}

// ContactMessage is a support request sent from the storefront
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

func (m *ContactMessage) Validate() error {
	switch {
	case m.Name == "":
		return ErrMissingName
	case m.Email == "":
		return ErrMissingEmail
	case m.Message == "":
		return ErrMissingMessage
	}
	return nil
}

// ProductQuery carries list filters and pagination for the catalog.
type ProductQuery struct {
	Page     int
	Limit    int
	Category string
	Search   string
	Sort     string
	Order    string
}

// ProductPage is one page of catalog results
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
}
