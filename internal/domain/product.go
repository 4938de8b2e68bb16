package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

type Product struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Material    string           `json:"material"`
	BasePrice   int64            `json:"base_price"`
	IsFeatured  bool             `json:"is_featured"`
	IsActive    bool             `json:"is_active"`
	Images      []ProductImage   `json:"images"`
	Variants    []ProductVariant `json:"variants"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   *time.Time       `json:"-"`
}

type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	IsPrimary bool   `json:"is_primary"`
	Position  int    `json:"position"`
}

// ProductVariant is a purchasable size/SKU of a product. Price is in paise.
type ProductVariant struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price"`
	Stock     int    `json:"stock"`
	IsActive  bool   `json:"is_active"`
}

type ProductFilter struct {
	Category string
	Material string
	Search   string
	Featured *bool
	Limit    int
	Offset   int
}

type UpdateProductInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Material    *string `json:"material"`
	BasePrice   *int64  `json:"base_price" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active"`
}

func (p *Product) IsAvailable() bool {
	return p.IsActive && p.DeletedAt == nil
}

func (p *Product) Variant(id int64) (*ProductVariant, bool) {
	for idx := range p.Variants {
		if p.Variants[idx].ID == id {
			return &p.Variants[idx], true
		}
	}
	return nil, false
}

func (p *Product) PrimaryImage() string {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// CartLine builds the cart snapshot for this product, or the given variant
// when variantID is set.
func (p *Product) CartLine(variantID *int64, quantity int) (CartItem, error) {
	item := CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.PrimaryImage(),
		Price:     p.BasePrice,
		Quantity:  quantity,
	}

	if variantID != nil {
		v, ok := p.Variant(*variantID)
		if !ok || !v.IsActive {
			return CartItem{}, ErrVariantUnavailable
		}
		id := v.ID
		item.VariantID = &id
		item.SKU = v.SKU
		item.Size = v.Size
		item.Price = v.Price
	}

	return item, nil
}

// Slugify lowercases name and joins alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if r < unicode.MaxASCII {
				b.WriteRune(r)
				dash = false
			}
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "product"
	}
	return slug
}

// SlugCandidate returns base for attempt 0 and base-N afterwards.
func SlugCandidate(base string, attempt int) string {
	if attempt == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(attempt+1)
}
