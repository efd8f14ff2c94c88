package repositories

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bookstore/internal/models"
	"bookstore/internal/storeerr"
	"bookstore/internal/testdb"
)

type fixture struct {
	db    *gorm.DB
	repos *Registry

	book     models.Book
	author   models.Author
	user     models.User
	role     models.Role
	discount models.Discount
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	f := &fixture{db: db, repos: NewRegistry(db)}

	category := models.Category{Name: "fiction"}
	require.NoError(t, db.Create(&category).Error)
	publisher := models.Publisher{Name: "Ace"}
	require.NoError(t, db.Create(&publisher).Error)

	f.book = models.Book{
		Title:       "Dune",
		Price:       decimal.NewFromInt(12),
		Stock:       4,
		CategoryID:  category.ID,
		PublisherID: publisher.ID,
	}
	require.NoError(t, db.Create(&f.book).Error)

	f.author = models.Author{Name: "Frank Herbert"}
	require.NoError(t, db.Create(&f.author).Error)

	f.user = models.User{Username: "ada", Email: "ada@example.com", Password: "x", Role: models.UserRoleUser}
	require.NoError(t, db.Create(&f.user).Error)

	f.role = models.Role{Name: "admin", Description: "administrative access"}
	require.NoError(t, db.Create(&f.role).Error)

	now := time.Now().UTC()
	f.discount = models.Discount{
		Code:            "SPRING10",
		DiscountPercent: decimal.NewFromInt(10),
		ValidFrom:       now.Add(-time.Hour),
		ValidUntil:      now.Add(time.Hour),
		IsActive:        true,
	}
	require.NoError(t, db.Create(&f.discount).Error)

	return f
}

func TestLinkBookAuthor(t *testing.T) {
	f := newFixture(t)
	assoc := f.repos.Associations

	require.NoError(t, assoc.LinkBookAuthor(nil, f.book.ID, f.author.ID))

	authors, err := assoc.AuthorsOfBook(nil, f.book.ID)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Frank Herbert", authors[0].Name)

	books, err := assoc.BooksOfAuthor(nil, f.author.ID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, f.book.ID, books[0].ID)
}

func TestLinkBookAuthorRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	assoc := f.repos.Associations

	require.NoError(t, assoc.LinkBookAuthor(nil, f.book.ID, f.author.ID))
	err := assoc.LinkBookAuthor(nil, f.book.ID, f.author.ID)
	cv, ok := storeerr.AsConstraintViolation(err)
	require.True(t, ok)
	assert.Equal(t, storeerr.UniquenessViolation, cv.Kind)
}

func TestLinkBookAuthorRejectsMissingSides(t *testing.T) {
	f := newFixture(t)
	assoc := f.repos.Associations

	err := assoc.LinkBookAuthor(nil, 9999, f.author.ID)
	cv, ok := storeerr.AsConstraintViolation(err)
	require.True(t, ok)
	assert.Equal(t, storeerr.ReferentialViolation, cv.Kind)
	assert.Equal(t, "book_id", cv.Field)

	err = assoc.LinkBookAuthor(nil, f.book.ID, 9999)
	cv, ok = storeerr.AsConstraintViolation(err)
	require.True(t, ok)
	assert.Equal(t, "author_id", cv.Field)
}

func TestUnlinkBookAuthor(t *testing.T) {
	f := newFixture(t)
	assoc := f.repos.Associations

	require.NoError(t, assoc.LinkBookAuthor(nil, f.book.ID, f.author.ID))
	require.NoError(t, assoc.UnlinkBookAuthor(nil, f.book.ID, f.author.ID))

	authors, err := assoc.AuthorsOfBook(nil, f.book.ID)
	require.NoError(t, err)
	assert.Empty(t, authors)
}

func TestUnlinkAllForAuthorCascadesJoinRows(t *testing.T) {
	f := newFixture(t)
	assoc := f.repos.Associations

	require.NoError(t, assoc.LinkBookAuthor(nil, f.book.ID, f.author.ID))
	require.NoError(t, assoc.UnlinkAllForAuthor(nil, f.author.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.BookAuthor{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestLinkBookDiscount(t *testing.T) {
	f := newFixture(t)
	assoc := f.repos.Associations

	require.NoError(t, assoc.LinkBookDiscount(nil, f.book.ID, f.discount.ID))

	discounts, err := assoc.DiscountsOfBook(nil, f.book.ID)
	require.NoError(t, err)
	require.Len(t, discounts, 1)
	assert.Equal(t, "SPRING10", discounts[0].Code)

	err = assoc.LinkBookDiscount(nil, f.book.ID, f.discount.ID)
	cv, ok := storeerr.AsConstraintViolation(err)
	require.True(t, ok)
	assert.Equal(t, storeerr.UniquenessViolation, cv.Kind)
}

func TestLinkUserRole(t *testing.T) {
	f := newFixture(t)
	assoc := f.repos.Associations

	require.NoError(t, assoc.LinkUserRole(nil, f.user.ID, f.role.ID))

	roles, err := assoc.RolesOfUser(nil, f.user.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "admin", roles[0].Name)

	count, err := assoc.RoleCountOfUser(nil, f.user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	err = assoc.LinkUserRole(nil, 9999, f.role.ID)
	cv, ok := storeerr.AsConstraintViolation(err)
	require.True(t, ok)
	assert.Equal(t, storeerr.ReferentialViolation, cv.Kind)
}

// A projection refresh is a partial update; it must not trip full-entity
// validation on the zero-value statement model.
func TestUpdateRoleProjection(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.repos.Users.UpdateRoleProjection(nil, f.user.ID, models.UserRoleAdmin))

	user, err := f.repos.Users.GetByID(nil, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, user.Role)

	err = f.repos.Users.UpdateRoleProjection(nil, f.user.ID, "superuser")
	cv, ok := storeerr.AsConstraintViolation(err)
	require.True(t, ok)
	assert.Equal(t, storeerr.InvalidEnumValue, cv.Kind)
}

func TestDecrementStockGuard(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.repos.Books.DecrementStock(nil, f.book.ID, 3))

	book, err := f.repos.Books.GetByID(nil, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.Stock)

	err = f.repos.Books.DecrementStock(nil, f.book.ID, 2)
	require.ErrorIs(t, err, storeerr.ErrStockUnavailable)

	book, err = f.repos.Books.GetByID(nil, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.Stock)
}
