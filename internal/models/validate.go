package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bookstore/internal/storeerr"
)

// Canonical bounds for the range-constrained attributes. The source schema
// revisions disagree on both; these are the fixed values this core enforces.
const (
	RatingMin int16 = 1
	RatingMax int16 = 5

	DiscountPercentMin = 0
	DiscountPercentMax = 100
)

// Per-entity check constraints, independent of persistence so they can be
// unit-tested without a database. Each entity also runs its Validate from a
// BeforeCreate hook, so no insert reaches the engine unvalidated. Partial
// updates never see a fully populated model, so they bypass the hooks and
// re-check the affected invariant at the call site instead.

func (b *Book) Validate() error {
	if b.Title == "" {
		return storeerr.Range("book", "title", "must not be empty")
	}
	if b.Price.IsNegative() {
		return storeerr.Range("book", "price", "must not be negative")
	}
	if b.Stock < 0 {
		return storeerr.Range("book", "stock", "must not be negative")
	}
	return nil
}

func (a *Author) Validate() error {
	if a.Name == "" {
		return storeerr.Range("author", "name", "must not be empty")
	}
	return nil
}

func (c *Category) Validate() error {
	if c.Name == "" {
		return storeerr.Range("category", "name", "must not be empty")
	}
	return nil
}

func (p *Publisher) Validate() error {
	if p.Name == "" {
		return storeerr.Range("publisher", "name", "must not be empty")
	}
	return nil
}

func (u *User) Validate() error {
	if u.Username == "" {
		return storeerr.Range("user", "username", "must not be empty")
	}
	if u.Email == "" {
		return storeerr.Range("user", "email", "must not be empty")
	}
	if u.Password == "" {
		return storeerr.Range("user", "password", "must not be empty")
	}
	if !u.Role.Valid() {
		return storeerr.Enum("user", "role", string(u.Role)+" is not a permitted role")
	}
	return nil
}

func (r *Role) Validate() error {
	if r.Name == "" {
		return storeerr.Range("role", "name", "must not be empty")
	}
	return nil
}

func (a *Address) Validate() error {
	switch {
	case a.Street == "":
		return storeerr.Range("address", "street", "must not be empty")
	case a.City == "":
		return storeerr.Range("address", "city", "must not be empty")
	case a.Country == "":
		return storeerr.Range("address", "country", "must not be empty")
	case a.PostalCode == "":
		return storeerr.Range("address", "postal_code", "must not be empty")
	}
	return nil
}

func (s *OrderStatus) Validate() error {
	if !s.Name.Valid() {
		return storeerr.Enum("order_status", "name", string(s.Name)+" is not a permitted status")
	}
	return nil
}

func (o *Order) Validate() error {
	if o.TotalAmount.IsNegative() {
		return storeerr.Range("order", "total_amount", "must not be negative")
	}
	return nil
}

func (d *OrderDetail) Validate() error {
	if d.Quantity <= 0 {
		return storeerr.Range("order_detail", "quantity", "must be positive")
	}
	if d.UnitPrice.IsNegative() {
		return storeerr.Range("order_detail", "unit_price", "must not be negative")
	}
	return nil
}

func (r *Review) Validate() error {
	if r.Rating < RatingMin || r.Rating > RatingMax {
		return storeerr.Range("review", "rating", "must be between 1 and 5")
	}
	return nil
}

func (d *Discount) Validate() error {
	if d.Code == "" {
		return storeerr.Range("discount", "code", "must not be empty")
	}
	min := decimal.NewFromInt(DiscountPercentMin)
	max := decimal.NewFromInt(DiscountPercentMax)
	if d.DiscountPercent.LessThan(min) || d.DiscountPercent.GreaterThan(max) {
		return storeerr.Range("discount", "discount_percent", "must be between 0 and 100")
	}
	if d.ValidFrom.After(d.ValidUntil) {
		return storeerr.Range("discount", "valid_from", "must not be after valid_until")
	}
	return nil
}

// BeforeCreate hooks wire the pure constraints into integrity enforcement.

func (b *Book) BeforeCreate(*gorm.DB) error        { return b.Validate() }
func (a *Author) BeforeCreate(*gorm.DB) error      { return a.Validate() }
func (c *Category) BeforeCreate(*gorm.DB) error    { return c.Validate() }
func (p *Publisher) BeforeCreate(*gorm.DB) error   { return p.Validate() }
func (u *User) BeforeCreate(*gorm.DB) error        { return u.Validate() }
func (r *Role) BeforeCreate(*gorm.DB) error        { return r.Validate() }
func (a *Address) BeforeCreate(*gorm.DB) error     { return a.Validate() }
func (s *OrderStatus) BeforeCreate(*gorm.DB) error { return s.Validate() }
func (o *Order) BeforeCreate(*gorm.DB) error       { return o.Validate() }
func (d *OrderDetail) BeforeCreate(*gorm.DB) error { return d.Validate() }
func (r *Review) BeforeCreate(*gorm.DB) error      { return r.Validate() }
func (d *Discount) BeforeCreate(*gorm.DB) error    { return d.Validate() }
