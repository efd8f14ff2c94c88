// Package models defines the entity schema of the bookstore persistence core:
// every table, its attributes, defaults and check constraints, plus the pure
// join records realizing the many-to-many associations.
//
// Identifier space: books, authors, categories, publishers, users, addresses,
// reviews and order lines use 16-bit keys, capping each collection at 32,767
// live rows. Orders, order statuses and discounts use 32-bit keys.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID            int16           `gorm:"primaryKey" json:"id"`
	Title         string          `gorm:"size:250;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock         int             `gorm:"not null;default:0" json:"stock"`
	PublishedDate *time.Time      `json:"published_date"`
	ISBN          *string         `gorm:"size:13;uniqueIndex" json:"isbn"`
	CategoryID    int16           `gorm:"not null;index" json:"category_id"`
	Category      Category        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	PublisherID   int16           `gorm:"not null;index" json:"publisher_id"`
	Publisher     Publisher       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Authors       []Author        `gorm:"many2many:books_authors" json:"-"`
	Discounts     []Discount      `gorm:"many2many:books_discounts" json:"-"`
	Reviews       []Review        `json:"-"`
	OrderDetails  []OrderDetail   `json:"-"`
}

type Author struct {
	ID        int16      `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:100;not null" json:"name"`
	Biography string     `gorm:"type:text" json:"biography"`
	BirthDate *time.Time `json:"birth_date"`
	Books     []Book     `gorm:"many2many:books_authors" json:"-"`
}

type Category struct {
	ID          int16  `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Books       []Book `json:"-"`
}

type Publisher struct {
	ID      int16  `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"size:100;not null" json:"name"`
	Address string `gorm:"type:text" json:"address"`
	Books   []Book `json:"-"`
}

type User struct {
	ID        int16     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Email     string    `gorm:"size:150;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:150;not null" json:"-"`
	// Set explicitly by the write path; a column default would make GORM
	// omit a false value on insert.
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	// Role is a denormalized projection of the canonical users_roles
	// association, kept in sync by the write path. Deprecated: read the
	// association instead.
	Role UserRole `gorm:"size:50;not null;default:user" json:"role"`

	Roles     []Role    `gorm:"many2many:users_roles" json:"-"`
	Addresses []Address `json:"-"`
	Orders    []Order   `json:"-"`
	Reviews   []Review  `json:"-"`
}

type Role struct {
	ID          int16  `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Users       []User `gorm:"many2many:users_roles" json:"-"`
}

type Address struct {
	ID         int16  `gorm:"primaryKey" json:"id"`
	UserID     int16  `gorm:"not null;index" json:"user_id"`
	User       User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Street     string `gorm:"size:150;not null" json:"street"`
	City       string `gorm:"size:100;not null" json:"city"`
	State      string `gorm:"size:100" json:"state"`
	Country    string `gorm:"size:100;not null" json:"country"`
	PostalCode string `gorm:"size:20;not null" json:"postal_code"`
}

type OrderStatus struct {
	ID          int32           `gorm:"primaryKey" json:"id"`
	Name        OrderStatusName `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Orders      []Order         `gorm:"foreignKey:StatusID" json:"-"`
}

type Order struct {
	ID       int32       `gorm:"primaryKey" json:"id"`
	UserID   int16       `gorm:"not null;index" json:"user_id"`
	User     User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	StatusID int32       `gorm:"not null;index" json:"status_id"`
	Status   OrderStatus `gorm:"foreignKey:StatusID" json:"-"`

	// Two independent address references distinguished only by which foreign
	// key points at the row. Either may be unset, and both may reference the
	// same Address.
	ShippingAddressID *int16   `gorm:"index" json:"shipping_address_id"`
	ShippingAddress   *Address `gorm:"foreignKey:ShippingAddressID" json:"-"`
	BillingAddressID  *int16   `gorm:"index" json:"billing_address_id"`
	BillingAddress    *Address `gorm:"foreignKey:BillingAddressID" json:"-"`

	TotalAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	OrderDetails []OrderDetail   `json:"order_details"`
}

type OrderDetail struct {
	ID       int16 `gorm:"primaryKey" json:"id"`
	OrderID  int32 `gorm:"not null;index" json:"order_id"`
	Order    Order `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	BookID   int16 `gorm:"not null;index" json:"book_id"`
	Book     Book  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Quantity int16 `gorm:"not null" json:"quantity"`

	// UnitPrice snapshots Book.Price at purchase time, so historical orders
	// are immune to later price changes.
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
}

type Review struct {
	ID        int16     `gorm:"primaryKey" json:"id"`
	UserID    int16     `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	BookID    int16     `gorm:"not null;index" json:"book_id"`
	Book      Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Rating    int16     `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

type Discount struct {
	ID              int32           `gorm:"primaryKey" json:"id"`
	Code            string          `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Description     string          `gorm:"type:text" json:"description"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percent"`
	ValidFrom       time.Time       `gorm:"not null" json:"valid_from"`
	ValidUntil      time.Time       `gorm:"not null" json:"valid_until"`
	IsActive        bool            `gorm:"not null" json:"is_active"`
	Books           []Book          `gorm:"many2many:books_discounts" json:"-"`
}

// Join records: (left, right) pairs with no lifecycle of their own.

type BookAuthor struct {
	BookID   int16 `gorm:"primaryKey;autoIncrement:false" json:"book_id"`
	AuthorID int16 `gorm:"primaryKey;autoIncrement:false" json:"author_id"`
}

func (BookAuthor) TableName() string { return "books_authors" }

type BookDiscount struct {
	BookID     int16 `gorm:"primaryKey;autoIncrement:false" json:"book_id"`
	DiscountID int32 `gorm:"primaryKey;autoIncrement:false" json:"discount_id"`
}

func (BookDiscount) TableName() string { return "books_discounts" }

type UserRoleLink struct {
	UserID int16 `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	RoleID int16 `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
}

func (UserRoleLink) TableName() string { return "users_roles" }

// All lists every schema entity in migration order (referenced tables first,
// join tables last).
func All() []interface{} {
	return []interface{}{
		&Category{},
		&Publisher{},
		&Author{},
		&Book{},
		&User{},
		&Role{},
		&Address{},
		&OrderStatus{},
		&Order{},
		&OrderDetail{},
		&Review{},
		&Discount{},
		&BookAuthor{},
		&BookDiscount{},
		&UserRoleLink{},
	}
}
