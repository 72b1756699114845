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

// CategoryServiceProvider defines the interface for category services.
type CategoryServiceProvider interface {
	CreateCategory(ctx context.Context, category models.Category) (models.Category, error)
	GetAllCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (models.Category, error)
}

// CategoryService provides business logic for category management.
// Category names are not required to be unique.
type CategoryService struct {
	db     *sql.DB
	events EventServiceProvider
	feed   Publisher
	now    func() time.Time
}

// NewCategoryService creates a new CategoryService. events and feed may be nil.
func NewCategoryService(db *sql.DB, events EventServiceProvider, feed Publisher) *CategoryService {
	return &CategoryService{db: db, events: events, feed: feed, now: time.Now}
}

// scanCategory is a helper to scan a category from a row or rows object.
func scanCategory(scanner interface{ Scan(...interface{}) error }) (models.Category, error) {
	var c models.Category
	var desc, image sql.NullString
	if err := scanner.Scan(&c.ID, &c.Name, &desc, &image, &c.CreatedAt); err != nil {
		return c, err
	}
	c.Description = desc.String
	c.Image = image.String
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

// CreateCategory adds a new category.
func (s *CategoryService) CreateCategory(ctx context.Context, category models.Category) (models.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if err := validateStruct(category); err != nil {
		return models.Category{}, err
	}

	category.ID = uuid.New().String()
	category.CreatedAt = s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO categories(id, name, description, image, created_at) VALUES(?, ?, ?, ?, ?)",
		category.ID, category.Name, category.Description, category.Image, category.CreatedAt)
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to insert category: %w", err)
	}

	recordEvent(ctx, s.events, EventCategoryCreate, fmt.Sprintf("Category '%s' created", category.Name), category.ID)
	publish(s.feed, "", ActionCategoryCreated, category)
	return category, nil
}

// GetAllCategories retrieves all categories. The result is never nil.
func (s *CategoryService) GetAllCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, image, created_at FROM categories ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategoryByName returns the earliest category with exactly this name.
func (s *CategoryService) GetCategoryByName(ctx context.Context, name string) (models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, image, created_at FROM categories WHERE name = ? ORDER BY rowid LIMIT 1", name)

	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Category{}, fmt.Errorf("category %q: %w", name, ErrNotFound)
		}
		return models.Category{}, fmt.Errorf("failed to query category: %w", err)
	}
	return c, nil
}
