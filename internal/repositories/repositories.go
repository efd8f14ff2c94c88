package repositories

import (
	"gorm.io/gorm"

	"bookstore/internal/models"
	"bookstore/internal/storeerr"
)

// Every method takes the transaction of the enclosing unit of work as its
// first argument; passing nil falls back to the repository's own pooled
// handle, which is only appropriate for standalone reads.

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id int16) (*models.User, error)
	GetByUsername(db *gorm.DB, username string) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
	UsernameExists(db *gorm.DB, username string) (bool, error)
	EmailExists(db *gorm.DB, email string) (bool, error)
	UpdateRoleProjection(db *gorm.DB, userID int16, role models.UserRole) error
	Delete(db *gorm.DB, id int16) error
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	GetByID(db *gorm.DB, id int16) (*models.Book, error)
	GetByISBN(db *gorm.DB, isbn string) (*models.Book, error)
	ListByCategory(db *gorm.DB, categoryID int16, limit, offset int) ([]models.Book, error)
	DecrementStock(db *gorm.DB, bookID int16, quantity int) error
	IncrementStock(db *gorm.DB, bookID int16, quantity int) error
	CountByCategory(db *gorm.DB, categoryID int16) (int64, error)
	CountByPublisher(db *gorm.DB, publisherID int16) (int64, error)
	Delete(db *gorm.DB, id int16) error
}

type AuthorRepository interface {
	Create(db *gorm.DB, author *models.Author) error
	GetByID(db *gorm.DB, id int16) (*models.Author, error)
	Delete(db *gorm.DB, id int16) error
}

type CategoryRepository interface {
	Create(db *gorm.DB, category *models.Category) error
	GetByID(db *gorm.DB, id int16) (*models.Category, error)
	Delete(db *gorm.DB, id int16) error
}

type PublisherRepository interface {
	Create(db *gorm.DB, publisher *models.Publisher) error
	GetByID(db *gorm.DB, id int16) (*models.Publisher, error)
	Delete(db *gorm.DB, id int16) error
}

type RoleRepository interface {
	Create(db *gorm.DB, role *models.Role) error
	GetByID(db *gorm.DB, id int16) (*models.Role, error)
	GetByName(db *gorm.DB, name string) (*models.Role, error)
}

type AddressRepository interface {
	Create(db *gorm.DB, address *models.Address) error
	GetByID(db *gorm.DB, id int16) (*models.Address, error)
	ListByUser(db *gorm.DB, userID int16) ([]models.Address, error)
	Delete(db *gorm.DB, id int16) error
}

type OrderStatusRepository interface {
	Create(db *gorm.DB, status *models.OrderStatus) error
	GetByName(db *gorm.DB, name models.OrderStatusName) (*models.OrderStatus, error)
}

type OrderRepository interface {
	Create(db *gorm.DB, order *models.Order) error
	GetByID(db *gorm.DB, id int32) (*models.Order, error)
	ListByUser(db *gorm.DB, userID int16, limit, offset int) ([]models.Order, error)
	// UpdateStatusFrom moves the order from one status to another only if it
	// still holds the expected status, reporting how many rows changed.
	UpdateStatusFrom(db *gorm.DB, orderID, fromStatusID, toStatusID int32) (int64, error)
	CountByAddress(db *gorm.DB, addressID int16) (int64, error)
	CountByUser(db *gorm.DB, userID int16) (int64, error)
}

type OrderDetailRepository interface {
	Create(db *gorm.DB, detail *models.OrderDetail) error
	ListByOrder(db *gorm.DB, orderID int32) ([]models.OrderDetail, error)
	CountByBook(db *gorm.DB, bookID int16) (int64, error)
}

type ReviewRepository interface {
	Create(db *gorm.DB, review *models.Review) error
	ListByBook(db *gorm.DB, bookID int16, limit, offset int) ([]models.Review, error)
	DeleteByBook(db *gorm.DB, bookID int16) error
	CountByUser(db *gorm.DB, userID int16) (int64, error)
}

type DiscountRepository interface {
	Create(db *gorm.DB, discount *models.Discount) error
	GetByID(db *gorm.DB, id int32) (*models.Discount, error)
	GetByCode(db *gorm.DB, code string) (*models.Discount, error)
	Delete(db *gorm.DB, id int32) error
}

// Registry bundles every repository over one pooled handle.
type Registry struct {
	Users        UserRepository
	Books        BookRepository
	Authors      AuthorRepository
	Categories   CategoryRepository
	Publishers   PublisherRepository
	Roles        RoleRepository
	Addresses    AddressRepository
	Statuses     OrderStatusRepository
	Orders       OrderRepository
	OrderDetails OrderDetailRepository
	Reviews      ReviewRepository
	Discounts    DiscountRepository
	Associations AssociationRepository
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{
		Users:        NewUserRepository(db),
		Books:        NewBookRepository(db),
		Authors:      NewAuthorRepository(db),
		Categories:   NewCategoryRepository(db),
		Publishers:   NewPublisherRepository(db),
		Roles:        NewRoleRepository(db),
		Addresses:    NewAddressRepository(db),
		Statuses:     NewOrderStatusRepository(db),
		Orders:       NewOrderRepository(db),
		OrderDetails: NewOrderDetailRepository(db),
		Reviews:      NewReviewRepository(db),
		Discounts:    NewDiscountRepository(db),
		Associations: NewAssociationRepository(db),
	}
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id int16) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(db *gorm.DB, username string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UsernameExists(db *gorm.DB, username string) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) EmailExists(db *gorm.DB, email string) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// UpdateRoleProjection is a column-level write, so it re-checks the enum
// domain itself instead of relying on the create-time hook.
func (r *userRepository) UpdateRoleProjection(db *gorm.DB, userID int16, role models.UserRole) error {
	if db == nil {
		db = r.db
	}
	if !role.Valid() {
		return storeerr.Enum("user", "role", string(role)+" is not a permitted role")
	}
	return db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("role", role).
		Error
}

func (r *userRepository) Delete(db *gorm.DB, id int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.User{}, "id = ?", id).Error
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) GetByID(db *gorm.DB, id int16) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByISBN(db *gorm.DB, isbn string) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) ListByCategory(db *gorm.DB, categoryID int16, limit, offset int) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	err := db.Where("category_id = ?", categoryID).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// DecrementStock performs the guarded compare-and-set the order flow depends
// on: the WHERE clause re-checks remaining stock under the engine's write
// lock, so two concurrent decrements against one remaining unit cannot both
// succeed.
func (r *bookRepository) DecrementStock(db *gorm.DB, bookID int16, quantity int) error {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND stock >= ?", bookID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storeerr.ErrStockUnavailable
	}
	return nil
}

func (r *bookRepository) IncrementStock(db *gorm.DB, bookID int16, quantity int) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).
		Error
}

func (r *bookRepository) CountByCategory(db *gorm.DB, categoryID int16) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Book{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

func (r *bookRepository) CountByPublisher(db *gorm.DB, publisherID int16) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Book{}).Where("publisher_id = ?", publisherID).Count(&count).Error
	return count, err
}

func (r *bookRepository) Delete(db *gorm.DB, id int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

type authorRepository struct {
	db *gorm.DB
}

func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &authorRepository{db: db}
}

func (r *authorRepository) Create(db *gorm.DB, author *models.Author) error {
	if db == nil {
		db = r.db
	}
	return db.Create(author).Error
}

func (r *authorRepository) GetByID(db *gorm.DB, id int16) (*models.Author, error) {
	if db == nil {
		db = r.db
	}
	var author models.Author
	if err := db.First(&author, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *authorRepository) Delete(db *gorm.DB, id int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Author{}, "id = ?", id).Error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(db *gorm.DB, category *models.Category) error {
	if db == nil {
		db = r.db
	}
	return db.Create(category).Error
}

func (r *categoryRepository) GetByID(db *gorm.DB, id int16) (*models.Category, error) {
	if db == nil {
		db = r.db
	}
	var category models.Category
	if err := db.First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) Delete(db *gorm.DB, id int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Category{}, "id = ?", id).Error
}

type publisherRepository struct {
	db *gorm.DB
}

func NewPublisherRepository(db *gorm.DB) PublisherRepository {
	return &publisherRepository{db: db}
}

func (r *publisherRepository) Create(db *gorm.DB, publisher *models.Publisher) error {
	if db == nil {
		db = r.db
	}
	return db.Create(publisher).Error
}

func (r *publisherRepository) GetByID(db *gorm.DB, id int16) (*models.Publisher, error) {
	if db == nil {
		db = r.db
	}
	var publisher models.Publisher
	if err := db.First(&publisher, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &publisher, nil
}

func (r *publisherRepository) Delete(db *gorm.DB, id int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Publisher{}, "id = ?", id).Error
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(db *gorm.DB, role *models.Role) error {
	if db == nil {
		db = r.db
	}
	return db.Create(role).Error
}

func (r *roleRepository) GetByID(db *gorm.DB, id int16) (*models.Role, error) {
	if db == nil {
		db = r.db
	}
	var role models.Role
	if err := db.First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) GetByName(db *gorm.DB, name string) (*models.Role, error) {
	if db == nil {
		db = r.db
	}
	var role models.Role
	if err := db.First(&role, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(db *gorm.DB, address *models.Address) error {
	if db == nil {
		db = r.db
	}
	return db.Create(address).Error
}

func (r *addressRepository) GetByID(db *gorm.DB, id int16) (*models.Address, error) {
	if db == nil {
		db = r.db
	}
	var address models.Address
	if err := db.First(&address, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *addressRepository) ListByUser(db *gorm.DB, userID int16) ([]models.Address, error) {
	if db == nil {
		db = r.db
	}
	var addresses []models.Address
	if err := db.Where("user_id = ?", userID).Order("id").Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

func (r *addressRepository) Delete(db *gorm.DB, id int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Address{}, "id = ?", id).Error
}

type orderStatusRepository struct {
	db *gorm.DB
}

func NewOrderStatusRepository(db *gorm.DB) OrderStatusRepository {
	return &orderStatusRepository{db: db}
}

func (r *orderStatusRepository) Create(db *gorm.DB, status *models.OrderStatus) error {
	if db == nil {
		db = r.db
	}
	return db.Create(status).Error
}

func (r *orderStatusRepository) GetByName(db *gorm.DB, name models.OrderStatusName) (*models.OrderStatus, error) {
	if db == nil {
		db = r.db
	}
	var status models.OrderStatus
	if err := db.First(&status, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(db *gorm.DB, order *models.Order) error {
	if db == nil {
		db = r.db
	}
	return db.Create(order).Error
}

func (r *orderRepository) GetByID(db *gorm.DB, id int32) (*models.Order, error) {
	if db == nil {
		db = r.db
	}
	var order models.Order
	if err := db.Preload("OrderDetails").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(db *gorm.DB, userID int16, limit, offset int) ([]models.Order, error) {
	if db == nil {
		db = r.db
	}
	var orders []models.Order
	err := db.Where("user_id = ?", userID).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatusFrom(db *gorm.DB, orderID, fromStatusID, toStatusID int32) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Order{}).
		Where("id = ? AND status_id = ?", orderID, fromStatusID).
		UpdateColumn("status_id", toStatusID)
	return res.RowsAffected, res.Error
}

func (r *orderRepository) CountByAddress(db *gorm.DB, addressID int16) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Order{}).
		Where("shipping_address_id = ? OR billing_address_id = ?", addressID, addressID).
		Count(&count).Error
	return count, err
}

func (r *orderRepository) CountByUser(db *gorm.DB, userID int16) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

type orderDetailRepository struct {
	db *gorm.DB
}

func NewOrderDetailRepository(db *gorm.DB) OrderDetailRepository {
	return &orderDetailRepository{db: db}
}

func (r *orderDetailRepository) Create(db *gorm.DB, detail *models.OrderDetail) error {
	if db == nil {
		db = r.db
	}
	return db.Create(detail).Error
}

func (r *orderDetailRepository) ListByOrder(db *gorm.DB, orderID int32) ([]models.OrderDetail, error) {
	if db == nil {
		db = r.db
	}
	var details []models.OrderDetail
	if err := db.Where("order_id = ?", orderID).Order("id").Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

func (r *orderDetailRepository) CountByBook(db *gorm.DB, bookID int16) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.OrderDetail{}).Where("book_id = ?", bookID).Count(&count).Error
	return count, err
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(db *gorm.DB, review *models.Review) error {
	if db == nil {
		db = r.db
	}
	return db.Create(review).Error
}

func (r *reviewRepository) ListByBook(db *gorm.DB, bookID int16, limit, offset int) ([]models.Review, error) {
	if db == nil {
		db = r.db
	}
	var reviews []models.Review
	err := db.Where("book_id = ?", bookID).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) DeleteByBook(db *gorm.DB, bookID int16) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Review{}, "book_id = ?", bookID).Error
}

func (r *reviewRepository) CountByUser(db *gorm.DB, userID int16) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Review{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

type discountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

func (r *discountRepository) Create(db *gorm.DB, discount *models.Discount) error {
	if db == nil {
		db = r.db
	}
	return db.Create(discount).Error
}

func (r *discountRepository) GetByID(db *gorm.DB, id int32) (*models.Discount, error) {
	if db == nil {
		db = r.db
	}
	var discount models.Discount
	if err := db.First(&discount, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *discountRepository) GetByCode(db *gorm.DB, code string) (*models.Discount, error) {
	if db == nil {
		db = r.db
	}
	var discount models.Discount
	if err := db.First(&discount, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *discountRepository) Delete(db *gorm.DB, id int32) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Discount{}, "id = ?", id).Error
}
