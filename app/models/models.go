// Package models defines the entities persisted in the store document.
package models

import (
	"encoding/json"
	"time"
)

// ProductStatus values accepted by validation.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// MaxFeatured is the cap on concurrently featured active products.
const MaxFeatured = 3

// User is an admin account. Accounts are seeded into the document on first
// run; there is no self-service registration.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"` // bcrypt or legacy sha256 hex
	Role         string `json:"role"`
}

// Public returns the user without credential material, as stored in
// sessions and returned by the verify endpoint.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Role: u.Role}
}

// PublicUser is the identity attached to a session.
type PublicUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Category struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type Product struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"` // category name, no FK enforcement
	Price       float64    `json:"price"`
	Stock       int        `json:"stock"`
	Description string     `json:"description"`
	Image       *string    `json:"image"` // upload path, nil when absent
	Status      string     `json:"status"`
	Featured    bool       `json:"featured"`
	Sales       int        `json:"sales"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Active reports whether the product is visible on the storefront.
func (p Product) Active() bool { return p.Status == StatusActive }

// Stats is the cached aggregate block. totalProducts is recomputed lazily
// on every read; the other counters are maintained by the order flow.
type Stats struct {
	TotalProducts  int     `json:"totalProducts"`
	TotalOrders    int     `json:"totalOrders"`
	TotalRevenue   float64 `json:"totalRevenue"`
	TotalCustomers int     `json:"totalCustomers"`
}

// ActivityEntry is one line of the append-only admin activity feed.
type ActivityEntry struct {
	Product  string    `json:"product,omitempty"`
	Category string    `json:"category,omitempty"`
	Action   string    `json:"action"`
	Date     time.Time `json:"date"`
}

// Document is the single root object persisted as JSON. The in-memory copy
// is the authority between saves.
//
// Orders are kept as raw JSON: the store persists them verbatim and never
// inspects their shape.
type Document struct {
	Users       []User            `json:"users"`
	Categories  []Category        `json:"categories"`
	Products    []Product         `json:"products"`
	Orders      []json.RawMessage `json:"orders"`
	Stats       Stats             `json:"stats"`
	ActivityLog []ActivityEntry   `json:"activityLog"`

	// High-water marks so ids are never reused, even after the
	// highest-id row is deleted. Documents written before these fields
	// existed fall back to max(existing)+1.
	LastCategoryID int `json:"lastCategoryId,omitempty"`
	LastProductID  int `json:"lastProductId,omitempty"`
}

// NextCategoryID assigns the next category id: one past the highest ever
// used, starting at 1.
func (d *Document) NextCategoryID() int {
	next := d.LastCategoryID + 1
	for _, c := range d.Categories {
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	d.LastCategoryID = next
	return next
}

// NextProductID assigns the next product id.
func (d *Document) NextProductID() int {
	next := d.LastProductID + 1
	for _, p := range d.Products {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	d.LastProductID = next
	return next
}

// ActiveProducts returns products visible on the storefront, in document
// order.
func (d *Document) ActiveProducts() []Product {
	var out []Product
	for _, p := range d.Products {
		if p.Active() {
			out = append(out, p)
		}
	}
	return out
}

// FeaturedCount counts active featured products, excluding the product
// with skipID (pass 0 to exclude nothing). Used to enforce MaxFeatured
// before a mutation is applied.
func (d *Document) FeaturedCount(skipID int) int {
	n := 0
	for _, p := range d.Products {
		if p.ID != skipID && p.Featured && p.Active() {
			n++
		}
	}
	return n
}

// RecentActivity returns the last limit entries, newest first.
func (d *Document) RecentActivity(limit int) []ActivityEntry {
	n := len(d.ActivityLog)
	if limit > n {
		limit = n
	}
	out := make([]ActivityEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, d.ActivityLog[i])
	}
	return out
}
