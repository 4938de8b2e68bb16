package domain

import "time"

type GalleryItem struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	ImageURL  string     `json:"image_url"`
	Category  string     `json:"category,omitempty"`
	Position  int        `json:"position"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"-"`
}

// Customization is an engraving or logo request for a product, submitted by
// a user or a guest.
type Customization struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"product_id"`
	UserID        *int64    `json:"user_id,omitempty"`
	GuestID       *string   `json:"guest_id,omitempty"`
	EngravingText string    `json:"engraving_text,omitempty"`
	Font          string    `json:"font,omitempty"`
	LogoURL       string    `json:"logo_url,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SetOwner records who submitted the customization.
func (c *Customization) SetOwner(owner Owner) {
	if id, ok := owner.UserID(); ok {
		c.UserID = &id
		c.GuestID = nil
		return
	}
	guest := owner.ID
	c.GuestID = &guest
	c.UserID = nil
}
