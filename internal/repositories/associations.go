package repositories

import (
	"gorm.io/gorm"

	"bookstore/internal/models"
	"bookstore/internal/storeerr"
)

// AssociationRepository realizes the join-table semantics of the three
// many-to-many relations. Linking requires both sides to exist and the pair to
// be absent; unlinking a whole side is used by the deletion policy to cascade
// join rows.
type AssociationRepository interface {
	LinkBookAuthor(db *gorm.DB, bookID, authorID int16) error
	UnlinkBookAuthor(db *gorm.DB, bookID, authorID int16) error
	AuthorsOfBook(db *gorm.DB, bookID int16) ([]models.Author, error)
	BooksOfAuthor(db *gorm.DB, authorID int16) ([]models.Book, error)
	UnlinkAllForAuthor(db *gorm.DB, authorID int16) error

	LinkBookDiscount(db *gorm.DB, bookID int16, discountID int32) error
	UnlinkBookDiscount(db *gorm.DB, bookID int16, discountID int32) error
	DiscountsOfBook(db *gorm.DB, bookID int16) ([]models.Discount, error)
	UnlinkAllForDiscount(db *gorm.DB, discountID int32) error
	UnlinkAllForBook(db *gorm.DB, bookID int16) error

	LinkUserRole(db *gorm.DB, userID, roleID int16) error
	UnlinkUserRole(db *gorm.DB, userID, roleID int16) error
	RolesOfUser(db *gorm.DB, userID int16) ([]models.Role, error)
	RoleCountOfUser(db *gorm.DB, userID int16) (int64, error)
}

type associationRepository struct {
	db *gorm.DB
}

func NewAssociationRepository(db *gorm.DB) AssociationRepository {
	return &associationRepository{db: db}
}

// rowExists checks one side of a pending association.
func rowExists(db *gorm.DB, model interface{}, id interface{}) (bool, error) {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *associationRepository) LinkBookAuthor(db *gorm.DB, bookID, authorID int16) error {
	if db == nil {
		db = r.db
	}
	if ok, err := rowExists(db, &models.Book{}, bookID); err != nil {
		return err
	} else if !ok {
		return storeerr.Referential("book_author", "book_id", "book does not exist")
	}
	if ok, err := rowExists(db, &models.Author{}, authorID); err != nil {
		return err
	} else if !ok {
		return storeerr.Referential("book_author", "author_id", "author does not exist")
	}
	var count int64
	if err := db.Model(&models.BookAuthor{}).
		Where("book_id = ? AND author_id = ?", bookID, authorID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return storeerr.Unique("book_author", "", "association already exists")
	}
	return db.Create(&models.BookAuthor{BookID: bookID, AuthorID: authorID}).Error
}

func (r *associationRepository) UnlinkBookAuthor(db *gorm.DB, bookID, authorID int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.BookAuthor{}, "book_id = ? AND author_id = ?", bookID, authorID).Error
}

func (r *associationRepository) AuthorsOfBook(db *gorm.DB, bookID int16) ([]models.Author, error) {
	if db == nil {
		db = r.db
	}
	var authors []models.Author
	err := db.
		Joins("JOIN books_authors ON books_authors.author_id = authors.id").
		Where("books_authors.book_id = ?", bookID).
		Order("authors.id").
		Find(&authors).Error
	if err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *associationRepository) BooksOfAuthor(db *gorm.DB, authorID int16) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	err := db.
		Joins("JOIN books_authors ON books_authors.book_id = books.id").
		Where("books_authors.author_id = ?", authorID).
		Order("books.id").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *associationRepository) UnlinkAllForAuthor(db *gorm.DB, authorID int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.BookAuthor{}, "author_id = ?", authorID).Error
}

func (r *associationRepository) LinkBookDiscount(db *gorm.DB, bookID int16, discountID int32) error {
	if db == nil {
		db = r.db
	}
	if ok, err := rowExists(db, &models.Book{}, bookID); err != nil {
		return err
	} else if !ok {
		return storeerr.Referential("book_discount", "book_id", "book does not exist")
	}
	if ok, err := rowExists(db, &models.Discount{}, discountID); err != nil {
		return err
	} else if !ok {
		return storeerr.Referential("book_discount", "discount_id", "discount does not exist")
	}
	var count int64
	if err := db.Model(&models.BookDiscount{}).
		Where("book_id = ? AND discount_id = ?", bookID, discountID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return storeerr.Unique("book_discount", "", "association already exists")
	}
	return db.Create(&models.BookDiscount{BookID: bookID, DiscountID: discountID}).Error
}

func (r *associationRepository) UnlinkBookDiscount(db *gorm.DB, bookID int16, discountID int32) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.BookDiscount{}, "book_id = ? AND discount_id = ?", bookID, discountID).Error
}

func (r *associationRepository) DiscountsOfBook(db *gorm.DB, bookID int16) ([]models.Discount, error) {
	if db == nil {
		db = r.db
	}
	var discounts []models.Discount
	err := db.
		Joins("JOIN books_discounts ON books_discounts.discount_id = discounts.id").
		Where("books_discounts.book_id = ?", bookID).
		Order("discounts.id").
		Find(&discounts).Error
	if err != nil {
		return nil, err
	}
	return discounts, nil
}

func (r *associationRepository) UnlinkAllForDiscount(db *gorm.DB, discountID int32) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.BookDiscount{}, "discount_id = ?", discountID).Error
}

func (r *associationRepository) UnlinkAllForBook(db *gorm.DB, bookID int16) error {
	if db == nil {
		db = r.db
	}
	if err := db.Delete(&models.BookAuthor{}, "book_id = ?", bookID).Error; err != nil {
		return err
	}
	return db.Delete(&models.BookDiscount{}, "book_id = ?", bookID).Error
}

func (r *associationRepository) LinkUserRole(db *gorm.DB, userID, roleID int16) error {
	if db == nil {
		db = r.db
	}
	if ok, err := rowExists(db, &models.User{}, userID); err != nil {
		return err
	} else if !ok {
		return storeerr.Referential("user_role", "user_id", "user does not exist")
	}
	if ok, err := rowExists(db, &models.Role{}, roleID); err != nil {
		return err
	} else if !ok {
		return storeerr.Referential("user_role", "role_id", "role does not exist")
	}
	var count int64
	if err := db.Model(&models.UserRoleLink{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return storeerr.Unique("user_role", "", "association already exists")
	}
	return db.Create(&models.UserRoleLink{UserID: userID, RoleID: roleID}).Error
}

func (r *associationRepository) UnlinkUserRole(db *gorm.DB, userID, roleID int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.UserRoleLink{}, "user_id = ? AND role_id = ?", userID, roleID).Error
}

func (r *associationRepository) RolesOfUser(db *gorm.DB, userID int16) ([]models.Role, error) {
	if db == nil {
		db = r.db
	}
	var roles []models.Role
	err := db.
		Joins("JOIN users_roles ON users_roles.role_id = roles.id").
		Where("users_roles.user_id = ?", userID).
		Order("roles.id").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *associationRepository) RoleCountOfUser(db *gorm.DB, userID int16) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.UserRoleLink{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
