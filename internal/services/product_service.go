package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/marketplace-be/internal/models"
)

// Live feed actions.
const (
	ActionProductCreated  = "product.created"
	ActionProductDeleted  = "product.deleted"
	ActionCategoryCreated = "category.created"
)

// Publisher pushes listing changes to live subscribers. An empty topic
// reaches only clients following every category.
type Publisher interface {
	Publish(topic, action string, payload interface{})
}

func publish(feed Publisher, topic, action string, payload interface{}) {
	if feed != nil {
		feed.Publish(topic, action, payload)
	}
}

// ProductServiceProvider defines the interface for product listing services.
type ProductServiceProvider interface {
	CreateProduct(ctx context.Context, userID string, input models.ProductInput) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListProductsByCategory(ctx context.Context, category string) ([]models.Product, error)
	GetProductByID(ctx context.Context, id string) (models.Product, error)
	DeleteProduct(ctx context.Context, userID, id string) error
}

// ProductService provides business logic for product listings.
type ProductService struct {
	db         *sql.DB
	categories CategoryServiceProvider
	events     EventServiceProvider
	feed       Publisher
	now        func() time.Time
}

// NewProductService creates a new ProductService. events and feed may be nil.
func NewProductService(db *sql.DB, categories CategoryServiceProvider, events EventServiceProvider, feed Publisher) *ProductService {
	return &ProductService{
		db:         db,
		categories: categories,
		events:     events,
		feed:       feed,
		now:        time.Now,
	}
}

const productColumns = `id, title, category, price, description, item_condition, location,
		       contact, delivery, images_json, created_by, created_at`

// scanProduct is a helper to scan a product from a row or rows object.
func scanProduct(scanner interface{ Scan(...interface{}) error }) (models.Product, error) {
	var p models.Product
	var desc, condition, location, contact, delivery, images, createdBy sql.NullString

	err := scanner.Scan(
		&p.ID, &p.Title, &p.Category, &p.Price, &desc, &condition, &location,
		&contact, &delivery, &images, &createdBy, &p.CreatedAt,
	)
	if err != nil {
		return p, err
	}

	p.Description = desc.String
	p.Condition = condition.String
	p.Location = location.String
	p.Contact = contact.String
	p.Delivery = delivery.String
	p.ImagesJSON = images.String
	p.CreatedBy = createdBy.String
	p.CreatedAt = p.CreatedAt.UTC()

	if err := p.PrepareForAPI(); err != nil {
		return p, err
	}
	return p, nil
}

// CreateProduct validates the listing, checks that its category exists and
// stores it with the current time as createdAt.
func (s *ProductService) CreateProduct(ctx context.Context, userID string, input models.ProductInput) (models.Product, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validateStruct(input); err != nil {
		return models.Product{}, err
	}

	// Category match is exact and case-sensitive.
	if _, err := s.categories.GetCategoryByName(ctx, input.Category); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Product{}, fmt.Errorf("category %q: %w", input.Category, ErrInvalidCategory)
		}
		return models.Product{}, err
	}

	product := models.Product{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Category:    input.Category,
		Price:       *input.Price,
		Description: input.Description,
		Condition:   input.Condition,
		Location:    input.Location,
		Contact:     input.Contact,
		Delivery:    input.Delivery,
		Images:      input.Images,
		CreatedBy:   userID,
		CreatedAt:   s.now().UTC(),
	}
	if err := product.PrepareForSave(); err != nil {
		return models.Product{}, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products(`+productColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Title, product.Category, product.Price, product.Description,
		product.Condition, product.Location, product.Contact, product.Delivery,
		product.ImagesJSON, product.CreatedBy, product.CreatedAt,
	)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to insert product: %w", err)
	}

	recordEvent(ctx, s.events, EventProductCreate,
		fmt.Sprintf("Product '%s' listed in '%s'", product.Title, product.Category), product.ID)
	publish(s.feed, product.Category, ActionProductCreated, product)
	return product, nil
}

// ListProducts returns every product, newest first. The result is never nil.
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.queryProducts(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY created_at DESC, rowid DESC")
}

// ListProductsByCategory returns the products in category, newest first.
// An empty result is reported as ErrNotFound.
func (s *ProductService) ListProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	products, err := s.queryProducts(ctx,
		"SELECT "+productColumns+" FROM products WHERE category = ? ORDER BY created_at DESC, rowid DESC", category)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no products in category %q: %w", category, ErrNotFound)
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (models.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return models.Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// DeleteProduct removes a product. Any authenticated user may delete any
// product; userID is only recorded in the activity log.
func (s *ProductService) DeleteProduct(ctx context.Context, userID, id string) error {
	var category string
	err := s.db.QueryRowContext(ctx, "DELETE FROM products WHERE id = ? RETURNING category", id).Scan(&category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	recordEvent(ctx, s.events, EventProductDelete,
		fmt.Sprintf("Product %s deleted by user %s", id, userID), id)
	publish(s.feed, category, ActionProductDeleted, map[string]string{"id": id, "category": category})
	return nil
}

func (s *ProductService) queryProducts(ctx context.Context, query string, args ...interface{}) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}
