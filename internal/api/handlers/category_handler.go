package handlers

import (
	"net/http"

	"github.com/isdelr/marketplace-be/internal/models"
	"github.com/isdelr/marketplace-be/internal/services"
)

// CategoryHandler handles HTTP requests related to categories.
type CategoryHandler struct {
	service services.CategoryServiceProvider
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(service services.CategoryServiceProvider) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// CategoryPayload defines the structure for category creation requests.
type CategoryPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// GetAll handles the request to get all categories.
func (h *CategoryHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.GetAllCategories(r.Context())
	if err != nil {
		respondError(w, r, err, "", "Failed to retrieve categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// Get handles the request to get a single category by name.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	category, err := h.service.GetCategoryByName(r.Context(), name)
	if err != nil {
		respondError(w, r, err, "Category not found", "Failed to retrieve category")
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// Create handles the request to create a new category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload CategoryPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), models.Category{
		Name:        payload.Name,
		Description: payload.Description,
		Image:       payload.Image,
	})
	if err != nil {
		respondError(w, r, err, "", "Failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Category created successfully",
		"category": category,
	})
}
