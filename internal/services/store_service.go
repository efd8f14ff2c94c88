package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bookstore/internal/logger"
	"bookstore/internal/models"
	"bookstore/internal/repositories"
	"bookstore/internal/session"
	"bookstore/internal/storeerr"
)

// ─── Service Interface ────────────────────────────────────────────────────────

// OrderLine is one requested (book, quantity) pair of a cart.
type OrderLine struct {
	BookID   int16
	Quantity int16
}

// NewBook carries the attributes of a book to be created, including its
// required category/publisher references and any author associations.
type NewBook struct {
	Title         string
	Description   string
	Price         decimal.Decimal
	Stock         int
	PublishedDate *time.Time
	ISBN          *string
	CategoryID    int16
	PublisherID   int16
	AuthorIDs     []int16
}

// NewDiscount carries the attributes of a discount to be created.
type NewDiscount struct {
	Code            string
	Description     string
	DiscountPercent decimal.Decimal
	ValidFrom       time.Time
	ValidUntil      time.Time
	IsActive        bool
}

// StoreService exposes the typed operations external collaborators invoke.
// Every mutation runs inside its own unit of work; a classified error means
// nothing was applied.
type StoreService interface {
	// Identity
	RegisterUser(ctx context.Context, username, email, passwordCredential string) (*models.User, error)
	AssignRole(ctx context.Context, userID int16, roleName string) error
	RevokeRole(ctx context.Context, userID int16, roleName string) error
	RolesOfUser(ctx context.Context, userID int16) ([]models.Role, error)
	GetUser(ctx context.Context, id int16) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUser(ctx context.Context, id int16) error
	CreateAddress(ctx context.Context, userID int16, street, city, state, country, postalCode string) (*models.Address, error)
	ListAddressesOfUser(ctx context.Context, userID int16) ([]models.Address, error)
	DeleteAddress(ctx context.Context, id int16) error

	// Catalog
	CreateCategory(ctx context.Context, name, description string) (*models.Category, error)
	CreatePublisher(ctx context.Context, name, address string) (*models.Publisher, error)
	CreateAuthor(ctx context.Context, name, biography string, birthDate *time.Time) (*models.Author, error)
	CreateRole(ctx context.Context, name, description string) (*models.Role, error)
	CreateBook(ctx context.Context, input NewBook) (*models.Book, error)
	CreateDiscount(ctx context.Context, input NewDiscount) (*models.Discount, error)
	GetBook(ctx context.Context, id int16) (*models.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (*models.Book, error)
	GetDiscountByCode(ctx context.Context, code string) (*models.Discount, error)
	ListBooksByCategory(ctx context.Context, categoryID int16, limit, offset int) ([]models.Book, error)
	AuthorsOfBook(ctx context.Context, bookID int16) ([]models.Author, error)
	AdjustStock(ctx context.Context, bookID int16, delta int) error
	ApplyDiscount(ctx context.Context, bookID int16, discountCode string) error
	RemoveDiscount(ctx context.Context, bookID int16, discountCode string) error
	DeleteCategory(ctx context.Context, id int16) error
	DeletePublisher(ctx context.Context, id int16) error
	DeleteAuthor(ctx context.Context, id int16) error
	DeleteDiscount(ctx context.Context, id int32) error
	DeleteBook(ctx context.Context, id int16) error

	// Commerce
	PlaceOrder(ctx context.Context, userID int16, lines []OrderLine, shippingAddressID, billingAddressID *int16) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID int32) (*models.Order, error)
	CompleteOrder(ctx context.Context, orderID int32) (*models.Order, error)
	GetOrder(ctx context.Context, orderID int32) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID int16, limit, offset int) ([]models.Order, error)

	// Feedback
	PostReview(ctx context.Context, userID, bookID, rating int16, comment string) (*models.Review, error)
	ListReviewsByBook(ctx context.Context, bookID int16, limit, offset int) ([]models.Review, error)

	// SeedDefaults installs the fixed order statuses and the built-in roles.
	// Idempotent; meant for process startup and tests.
	SeedDefaults(ctx context.Context) error
}

// ─── Implementation ───────────────────────────────────────────────────────────

type storeService struct {
	sessions *session.Manager
	repos    *repositories.Registry
	log      *logger.Logger
}

// NewStoreService wires the session manager and repositories into a StoreService.
func NewStoreService(sessions *session.Manager, repos *repositories.Registry, log *logger.Logger) StoreService {
	return &storeService{
		sessions: sessions,
		repos:    repos,
		log:      log.With("component", "store"),
	}
}

// orNotFound maps a gorm record-miss onto the taxonomy, naming the entity.
func orNotFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", entity, storeerr.ErrNotFound)
	}
	return err
}

// ─── Identity ─────────────────────────────────────────────────────────────────

// RegisterUser creates a user with the default role. Username and email are
// globally unique; under a concurrent duplicate registration exactly one call
// succeeds and the other receives a UniquenessViolation. The password
// credential is stored opaquely, never interpreted here.
func (s *storeService) RegisterUser(ctx context.Context, username, email, passwordCredential string) (*models.User, error) {
	var created *models.User

	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		if taken, err := s.repos.Users.UsernameExists(tx, username); err != nil {
			return err
		} else if taken {
			return storeerr.Unique("user", "username", "username already taken")
		}
		if taken, err := s.repos.Users.EmailExists(tx, email); err != nil {
			return err
		} else if taken {
			return storeerr.Unique("user", "email", "email already taken")
		}

		user := &models.User{
			Username:  username,
			Email:     email,
			Password:  passwordCredential,
			IsActive:  true,
			Role:      models.UserRoleUser,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repos.Users.Create(tx, user); err != nil {
			// Two units of work can pass the pre-checks simultaneously; the
			// unique index then rejects the loser.
			return classifyUserUnique(err)
		}

		role, err := s.ensureRole(tx, string(models.UserRoleUser), "default customer role")
		if err != nil {
			return err
		}
		if err := s.repos.Associations.LinkUserRole(tx, user.ID, role.ID); err != nil {
			return err
		}

		created = user
		s.log.Info("user registered", "uow_id", uow.ID(), "user_id", user.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// classifyUserUnique turns a duplicate-key insert error into a field-level
// uniqueness violation.
func classifyUserUnique(err error) error {
	if !storeerr.IsUniqueViolation(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "email"):
		return storeerr.Unique("user", "email", "email already taken")
	case strings.Contains(msg, "username"):
		return storeerr.Unique("user", "username", "username already taken")
	}
	return storeerr.Unique("user", "", msg)
}

// AssignRole links an additional role to the user. The denormalized User.Role
// projection is refreshed when the assigned role is one of the built-in enum
// values.
func (s *storeService) AssignRole(ctx context.Context, userID int16, roleName string) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		if _, err := s.repos.Users.GetByID(tx, userID); err != nil {
			return orNotFound(err, "user")
		}
		role, err := s.repos.Roles.GetByName(tx, roleName)
		if err != nil {
			return orNotFound(err, "role")
		}
		if err := s.repos.Associations.LinkUserRole(tx, userID, role.ID); err != nil {
			return err
		}
		if projected := models.UserRole(role.Name); projected.Valid() {
			if err := s.repos.Users.UpdateRoleProjection(tx, userID, projected); err != nil {
				return err
			}
		}
		s.log.Info("role assigned", "uow_id", uow.ID(), "user_id", userID, "role", roleName)
		return nil
	})
}

// RevokeRole removes a role link. When the revoked role was the cached
// User.Role projection, the projection falls back to the default role.
func (s *storeService) RevokeRole(ctx context.Context, userID int16, roleName string) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		user, err := s.repos.Users.GetByID(tx, userID)
		if err != nil {
			return orNotFound(err, "user")
		}
		role, err := s.repos.Roles.GetByName(tx, roleName)
		if err != nil {
			return orNotFound(err, "role")
		}
		if err := s.repos.Associations.UnlinkUserRole(tx, userID, role.ID); err != nil {
			return err
		}
		if string(user.Role) == role.Name {
			if err := s.repos.Users.UpdateRoleProjection(tx, userID, models.UserRoleUser); err != nil {
				return err
			}
		}
		s.log.Info("role revoked", "uow_id", uow.ID(), "user_id", userID, "role", roleName)
		return nil
	})
}

func (s *storeService) RolesOfUser(ctx context.Context, userID int16) ([]models.Role, error) {
	return s.repos.Associations.RolesOfUser(nil, userID)
}

func (s *storeService) GetUser(ctx context.Context, id int16) (*models.User, error) {
	user, err := s.repos.Users.GetByID(nil, id)
	if err != nil {
		return nil, orNotFound(err, "user")
	}
	return user, nil
}

func (s *storeService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repos.Users.GetByEmail(nil, email)
	if err != nil {
		return nil, orNotFound(err, "user")
	}
	return user, nil
}

func (s *storeService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repos.Users.GetByUsername(nil, username)
	if err != nil {
		return nil, orNotFound(err, "user")
	}
	return user, nil
}

// DeleteUser rejects while order history, reviews or addresses still reference
// the user; role links cascade with it.
func (s *storeService) DeleteUser(ctx context.Context, id int16) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		if _, err := s.repos.Users.GetByID(tx, id); err != nil {
			return orNotFound(err, "user")
		}
		orders, err := s.repos.Orders.CountByUser(tx, id)
		if err != nil {
			return err
		}
		if orders > 0 {
			return storeerr.InUse("user", "orders still reference this user")
		}
		reviews, err := s.repos.Reviews.CountByUser(tx, id)
		if err != nil {
			return err
		}
		if reviews > 0 {
			return storeerr.InUse("user", "reviews still reference this user")
		}
		addresses, err := s.repos.Addresses.ListByUser(tx, id)
		if err != nil {
			return err
		}
		if len(addresses) > 0 {
			return storeerr.InUse("user", "addresses still reference this user")
		}

		roles, err := s.repos.Associations.RolesOfUser(tx, id)
		if err != nil {
			return err
		}
		for _, role := range roles {
			if err := s.repos.Associations.UnlinkUserRole(tx, id, role.ID); err != nil {
				return err
			}
		}
		return s.repos.Users.Delete(tx, id)
	})
}

func (s *storeService) CreateAddress(ctx context.Context, userID int16, street, city, state, country, postalCode string) (*models.Address, error) {
	var created *models.Address
	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()
		if _, err := s.repos.Users.GetByID(tx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storeerr.Referential("address", "user_id", "user does not exist")
			}
			return err
		}
		address := &models.Address{
			UserID:     userID,
			Street:     street,
			City:       city,
			State:      state,
			Country:    country,
			PostalCode: postalCode,
		}
		if err := s.repos.Addresses.Create(tx, address); err != nil {
			return err
		}
		created = address
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *storeService) ListAddressesOfUser(ctx context.Context, userID int16) ([]models.Address, error) {
	return s.repos.Addresses.ListByUser(nil, userID)
}

// DeleteAddress rejects while any order still references the address as its
// shipping or billing target.
func (s *storeService) DeleteAddress(ctx context.Context, id int16) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		if _, err := s.repos.Addresses.GetByID(tx, id); err != nil {
			return orNotFound(err, "address")
		}
		count, err := s.repos.Orders.CountByAddress(tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return storeerr.InUse("address", "orders still reference this address")
		}
		return s.repos.Addresses.Delete(tx, id)
	})
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

func (s *storeService) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	category := &models.Category{Name: name, Description: description}
	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		return s.repos.Categories.Create(uow.DB(), category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *storeService) CreatePublisher(ctx context.Context, name, address string) (*models.Publisher, error) {
	publisher := &models.Publisher{Name: name, Address: address}
	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		return s.repos.Publishers.Create(uow.DB(), publisher)
	})
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

func (s *storeService) CreateAuthor(ctx context.Context, name, biography string, birthDate *time.Time) (*models.Author, error) {
	author := &models.Author{Name: name, Biography: biography, BirthDate: birthDate}
	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		return s.repos.Authors.Create(uow.DB(), author)
	})
	if err != nil {
		return nil, err
	}
	return author, nil
}

func (s *storeService) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	role := &models.Role{Name: name, Description: description}
	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()
		if err := s.repos.Roles.Create(tx, role); err != nil {
			if storeerr.IsUniqueViolation(err) {
				return storeerr.Unique("role", "name", "role name already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// CreateBook creates the book together with its author associations, all
// within a single unit of work.
func (s *storeService) CreateBook(ctx context.Context, input NewBook) (*models.Book, error) {
	var created *models.Book

	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		if _, err := s.repos.Categories.GetByID(tx, input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storeerr.Referential("book", "category_id", "category does not exist")
			}
			return err
		}
		if _, err := s.repos.Publishers.GetByID(tx, input.PublisherID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storeerr.Referential("book", "publisher_id", "publisher does not exist")
			}
			return err
		}

		book := &models.Book{
			Title:         input.Title,
			Description:   input.Description,
			Price:         input.Price,
			Stock:         input.Stock,
			PublishedDate: input.PublishedDate,
			ISBN:          input.ISBN,
			CategoryID:    input.CategoryID,
			PublisherID:   input.PublisherID,
		}
		if err := s.repos.Books.Create(tx, book); err != nil {
			if storeerr.IsUniqueViolation(err) {
				return storeerr.Unique("book", "isbn", "isbn already registered")
			}
			return err
		}
		for _, authorID := range input.AuthorIDs {
			if err := s.repos.Associations.LinkBookAuthor(tx, book.ID, authorID); err != nil {
				return err
			}
		}

		created = book
		s.log.Info("book created", "uow_id", uow.ID(), "book_id", book.ID, "title", book.Title)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *storeService) CreateDiscount(ctx context.Context, input NewDiscount) (*models.Discount, error) {
	discount := &models.Discount{
		Code:            input.Code,
		Description:     input.Description,
		DiscountPercent: input.DiscountPercent,
		ValidFrom:       input.ValidFrom,
		ValidUntil:      input.ValidUntil,
		IsActive:        input.IsActive,
	}
	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		if err := s.repos.Discounts.Create(uow.DB(), discount); err != nil {
			if storeerr.IsUniqueViolation(err) {
				return storeerr.Unique("discount", "code", "discount code already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return discount, nil
}

func (s *storeService) GetBook(ctx context.Context, id int16) (*models.Book, error) {
	book, err := s.repos.Books.GetByID(nil, id)
	if err != nil {
		return nil, orNotFound(err, "book")
	}
	return book, nil
}

func (s *storeService) GetBookByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	book, err := s.repos.Books.GetByISBN(nil, isbn)
	if err != nil {
		return nil, orNotFound(err, "book")
	}
	return book, nil
}

func (s *storeService) GetDiscountByCode(ctx context.Context, code string) (*models.Discount, error) {
	discount, err := s.repos.Discounts.GetByCode(nil, code)
	if err != nil {
		return nil, orNotFound(err, "discount")
	}
	return discount, nil
}

func (s *storeService) ListBooksByCategory(ctx context.Context, categoryID int16, limit, offset int) ([]models.Book, error) {
	return s.repos.Books.ListByCategory(nil, categoryID, limit, offset)
}

func (s *storeService) AuthorsOfBook(ctx context.Context, bookID int16) ([]models.Author, error) {
	return s.repos.Associations.AuthorsOfBook(nil, bookID)
}

// AdjustStock moves a book's stock by delta. A negative delta is applied with
// the same guarded decrement orders use, so stock can never go below zero.
func (s *storeService) AdjustStock(ctx context.Context, bookID int16, delta int) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()
		if _, err := s.repos.Books.GetByID(tx, bookID); err != nil {
			return orNotFound(err, "book")
		}
		if delta >= 0 {
			return s.repos.Books.IncrementStock(tx, bookID, delta)
		}
		return s.repos.Books.DecrementStock(tx, bookID, -delta)
	})
}

// ApplyDiscount links the discount to the book after checking the active flag
// and validity window against the current time.
func (s *storeService) ApplyDiscount(ctx context.Context, bookID int16, discountCode string) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		if _, err := s.repos.Books.GetByID(tx, bookID); err != nil {
			return orNotFound(err, "book")
		}
		discount, err := s.repos.Discounts.GetByCode(tx, discountCode)
		if err != nil {
			return orNotFound(err, "discount")
		}

		now := time.Now().UTC()
		if !discount.IsActive || now.Before(discount.ValidFrom) {
			return storeerr.ErrDiscountInactive
		}
		if now.After(discount.ValidUntil) {
			return storeerr.ErrDiscountExpired
		}

		if err := s.repos.Associations.LinkBookDiscount(tx, bookID, discount.ID); err != nil {
			return err
		}
		s.log.Info("discount applied", "uow_id", uow.ID(), "book_id", bookID, "code", discountCode)
		return nil
	})
}

// RemoveDiscount detaches the discount from the book. Validity is not checked;
// an expired discount can still be removed.
func (s *storeService) RemoveDiscount(ctx context.Context, bookID int16, discountCode string) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		if _, err := s.repos.Books.GetByID(tx, bookID); err != nil {
			return orNotFound(err, "book")
		}
		discount, err := s.repos.Discounts.GetByCode(tx, discountCode)
		if err != nil {
			return orNotFound(err, "discount")
		}
		return s.repos.Associations.UnlinkBookDiscount(tx, bookID, discount.ID)
	})
}

// ─── Deletion Policy ──────────────────────────────────────────────────────────

// Join rows cascade with their owning side; required single-valued references
// reject the deletion instead of orphaning dependents.

func (s *storeService) DeleteCategory(ctx context.Context, id int16) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()
		if _, err := s.repos.Categories.GetByID(tx, id); err != nil {
			return orNotFound(err, "category")
		}
		count, err := s.repos.Books.CountByCategory(tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return storeerr.InUse("category", "books still reference this category")
		}
		return s.repos.Categories.Delete(tx, id)
	})
}

func (s *storeService) DeletePublisher(ctx context.Context, id int16) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()
		if _, err := s.repos.Publishers.GetByID(tx, id); err != nil {
			return orNotFound(err, "publisher")
		}
		count, err := s.repos.Books.CountByPublisher(tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return storeerr.InUse("publisher", "books still reference this publisher")
		}
		return s.repos.Publishers.Delete(tx, id)
	})
}

func (s *storeService) DeleteAuthor(ctx context.Context, id int16) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()
		if _, err := s.repos.Authors.GetByID(tx, id); err != nil {
			return orNotFound(err, "author")
		}
		if err := s.repos.Associations.UnlinkAllForAuthor(tx, id); err != nil {
			return err
		}
		return s.repos.Authors.Delete(tx, id)
	})
}

func (s *storeService) DeleteDiscount(ctx context.Context, id int32) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()
		if _, err := s.repos.Discounts.GetByID(tx, id); err != nil {
			return orNotFound(err, "discount")
		}
		if err := s.repos.Associations.UnlinkAllForDiscount(tx, id); err != nil {
			return err
		}
		return s.repos.Discounts.Delete(tx, id)
	})
}

// DeleteBook rejects when order history references the book (historical orders
// are immutable); reviews and join rows cascade with it.
func (s *storeService) DeleteBook(ctx context.Context, id int16) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()
		if _, err := s.repos.Books.GetByID(tx, id); err != nil {
			return orNotFound(err, "book")
		}
		count, err := s.repos.OrderDetails.CountByBook(tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return storeerr.InUse("book", "order lines still reference this book")
		}
		if err := s.repos.Reviews.DeleteByBook(tx, id); err != nil {
			return err
		}
		if err := s.repos.Associations.UnlinkAllForBook(tx, id); err != nil {
			return err
		}
		return s.repos.Books.Delete(tx, id)
	})
}

// ─── Commerce ─────────────────────────────────────────────────────────────────

// PlaceOrder atomically checks and decrements stock for every line inside one
// unit of work. If any line exceeds available stock the whole order is
// rejected and no stock is altered. Unit prices are snapshotted from the
// current book price, and total_amount is derived as their quantity-weighted
// sum, so the stored order always reconciles with its lines.
func (s *storeService) PlaceOrder(ctx context.Context, userID int16, lines []OrderLine, shippingAddressID, billingAddressID *int16) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, storeerr.Range("order", "lines", "order must contain at least one line")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, storeerr.Range("order_detail", "quantity", "must be positive")
		}
	}

	// Lines are processed in book-id order so two orders touching the same
	// books decrement in the same sequence.
	sorted := make([]OrderLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BookID < sorted[j].BookID })

	var placed *models.Order

	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		if _, err := s.repos.Users.GetByID(tx, userID); err != nil {
			return orNotFound(err, "user")
		}
		if err := s.checkOrderAddress(uow, shippingAddressID, userID, "shipping_address_id"); err != nil {
			return err
		}
		if err := s.checkOrderAddress(uow, billingAddressID, userID, "billing_address_id"); err != nil {
			return err
		}

		pending, err := s.ensureStatus(tx, models.OrderStatusPending)
		if err != nil {
			return err
		}

		total := decimal.Zero
		details := make([]models.OrderDetail, 0, len(sorted))
		for _, line := range sorted {
			book, err := s.repos.Books.GetByID(tx, line.BookID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return storeerr.Referential("order_detail", "book_id", "book does not exist")
				}
				return err
			}
			if err := s.repos.Books.DecrementStock(tx, line.BookID, int(line.Quantity)); err != nil {
				return err
			}
			total = total.Add(book.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			details = append(details, models.OrderDetail{
				BookID:    line.BookID,
				Quantity:  line.Quantity,
				UnitPrice: book.Price,
			})
		}

		order := &models.Order{
			UserID:            userID,
			StatusID:          pending.ID,
			ShippingAddressID: shippingAddressID,
			BillingAddressID:  billingAddressID,
			TotalAmount:       total,
			CreatedAt:         time.Now().UTC(),
		}
		if err := s.repos.Orders.Create(tx, order); err != nil {
			return err
		}
		for i := range details {
			details[i].OrderID = order.ID
			if err := s.repos.OrderDetails.Create(tx, &details[i]); err != nil {
				return err
			}
		}
		order.OrderDetails = details

		placed = order
		s.log.Info("order placed", "uow_id", uow.ID(), "order_id", order.ID,
			"user_id", userID, "lines", len(details), "total", total.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// checkOrderAddress validates one of the two independent address references.
// An address owned by a different user than the order's user is structurally
// allowed but flagged.
func (s *storeService) checkOrderAddress(uow *session.UnitOfWork, addressID *int16, userID int16, field string) error {
	if addressID == nil {
		return nil
	}
	address, err := s.repos.Addresses.GetByID(uow.DB(), *addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storeerr.Referential("order", field, "address does not exist")
		}
		return err
	}
	if address.UserID != userID {
		s.log.Warn("order references address owned by another user",
			"uow_id", uow.ID(), "field", field, "address_id", *addressID,
			"address_owner", address.UserID, "order_user", userID)
	}
	return nil
}

// CancelOrder moves a pending order to cancelled and returns its stock. The
// status transition is a compare-and-set, so two concurrent cancels (or a
// cancel racing a completion) resolve to exactly one winner.
func (s *storeService) CancelOrder(ctx context.Context, orderID int32) (*models.Order, error) {
	var cancelled *models.Order

	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		order, err := s.repos.Orders.GetByID(tx, orderID)
		if err != nil {
			return orNotFound(err, "order")
		}
		pending, err := s.ensureStatus(tx, models.OrderStatusPending)
		if err != nil {
			return err
		}
		target, err := s.ensureStatus(tx, models.OrderStatusCancelled)
		if err != nil {
			return err
		}

		changed, err := s.repos.Orders.UpdateStatusFrom(tx, orderID, pending.ID, target.ID)
		if err != nil {
			return err
		}
		if changed == 0 {
			return fmt.Errorf("order %d is not pending: %w", orderID, storeerr.ErrOrderStateConflict)
		}

		for _, detail := range order.OrderDetails {
			if err := s.repos.Books.IncrementStock(tx, detail.BookID, int(detail.Quantity)); err != nil {
				return err
			}
		}

		order.StatusID = target.ID
		cancelled = order
		s.log.Info("order cancelled", "uow_id", uow.ID(), "order_id", orderID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// CompleteOrder moves a pending order to completed.
func (s *storeService) CompleteOrder(ctx context.Context, orderID int32) (*models.Order, error) {
	var completed *models.Order

	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		order, err := s.repos.Orders.GetByID(tx, orderID)
		if err != nil {
			return orNotFound(err, "order")
		}
		pending, err := s.ensureStatus(tx, models.OrderStatusPending)
		if err != nil {
			return err
		}
		target, err := s.ensureStatus(tx, models.OrderStatusCompleted)
		if err != nil {
			return err
		}

		changed, err := s.repos.Orders.UpdateStatusFrom(tx, orderID, pending.ID, target.ID)
		if err != nil {
			return err
		}
		if changed == 0 {
			return fmt.Errorf("order %d is not pending: %w", orderID, storeerr.ErrOrderStateConflict)
		}

		order.StatusID = target.ID
		completed = order
		s.log.Info("order completed", "uow_id", uow.ID(), "order_id", orderID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

func (s *storeService) GetOrder(ctx context.Context, orderID int32) (*models.Order, error) {
	order, err := s.repos.Orders.GetByID(nil, orderID)
	if err != nil {
		return nil, orNotFound(err, "order")
	}
	return order, nil
}

func (s *storeService) ListOrdersByUser(ctx context.Context, userID int16, limit, offset int) ([]models.Order, error) {
	return s.repos.Orders.ListByUser(nil, userID, limit, offset)
}

// ─── Feedback ─────────────────────────────────────────────────────────────────

func (s *storeService) PostReview(ctx context.Context, userID, bookID, rating int16, comment string) (*models.Review, error) {
	var posted *models.Review

	err := s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()

		if _, err := s.repos.Users.GetByID(tx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storeerr.Referential("review", "user_id", "user does not exist")
			}
			return err
		}
		if _, err := s.repos.Books.GetByID(tx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storeerr.Referential("review", "book_id", "book does not exist")
			}
			return err
		}

		review := &models.Review{
			UserID:    userID,
			BookID:    bookID,
			Rating:    rating,
			Comment:   comment,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repos.Reviews.Create(tx, review); err != nil {
			return err
		}
		posted = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posted, nil
}

func (s *storeService) ListReviewsByBook(ctx context.Context, bookID int16, limit, offset int) ([]models.Review, error) {
	return s.repos.Reviews.ListByBook(nil, bookID, limit, offset)
}

// ─── Seeding & Internal Helpers ───────────────────────────────────────────────

var statusDescriptions = map[models.OrderStatusName]string{
	models.OrderStatusPending:   "order accepted, awaiting completion",
	models.OrderStatusCompleted: "order fulfilled",
	models.OrderStatusCancelled: "order cancelled, stock returned",
}

func (s *storeService) SeedDefaults(ctx context.Context) error {
	return s.sessions.Run(ctx, func(uow *session.UnitOfWork) error {
		tx := uow.DB()
		for _, name := range []models.OrderStatusName{
			models.OrderStatusPending,
			models.OrderStatusCompleted,
			models.OrderStatusCancelled,
		} {
			if _, err := s.ensureStatus(tx, name); err != nil {
				return err
			}
		}
		for role, description := range map[string]string{
			string(models.UserRoleAdmin): "administrative access",
			string(models.UserRoleUser):  "default customer role",
		} {
			if _, err := s.ensureRole(tx, role, description); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *storeService) ensureStatus(db *gorm.DB, name models.OrderStatusName) (*models.OrderStatus, error) {
	status, err := s.repos.Statuses.GetByName(db, name)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	status = &models.OrderStatus{Name: name, Description: statusDescriptions[name]}
	if err := s.repos.Statuses.Create(db, status); err != nil {
		return nil, err
	}
	return status, nil
}

func (s *storeService) ensureRole(db *gorm.DB, name, description string) (*models.Role, error) {
	role, err := s.repos.Roles.GetByName(db, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	role = &models.Role{Name: name, Description: description}
	if err := s.repos.Roles.Create(db, role); err != nil {
		return nil, err
	}
	return role, nil
}
