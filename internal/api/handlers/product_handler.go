package handlers

import (
	"net/http"

	"github.com/isdelr/marketplace-be/internal/auth"
	"github.com/isdelr/marketplace-be/internal/models"
	"github.com/isdelr/marketplace-be/internal/services"
	"github.com/rs/zerolog/log"
)

// ProductHandler handles HTTP requests related to product listings.
type ProductHandler struct {
	service services.ProductServiceProvider
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service services.ProductServiceProvider) *ProductHandler {
	return &ProductHandler{service: service}
}

// GetAll handles the request to list every product, newest first.
func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respondError(w, r, err, "", "Failed to retrieve products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetByCategory lists the products of one category. No matches is a 404.
func (h *ProductHandler) GetByCategory(w http.ResponseWriter, r *http.Request) {
	category := urlParam(r, "category")
	products, err := h.service.ListProductsByCategory(r.Context(), category)
	if err != nil {
		respondError(w, r, err, "No products found for this category", "Failed to retrieve products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Get handles the request to get a single product by its ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	product, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err, "Product not found", "Failed to retrieve product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Create handles the request to list a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user ID from context")
		writeError(w, http.StatusUnauthorized, "Access denied. No token provided", "")
		return
	}

	var input models.ProductInput
	if !decodeJSON(w, r, &input) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), userID, input)
	if err != nil {
		respondError(w, r, err, "", "Failed to create product")
		return
	}

	log.Info().Str("product_id", product.ID).Str("user_id", userID).Msg("Product listed")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Product created successfully",
		"product": product,
	})
}

// Delete handles the request to delete a product.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user ID from context")
		writeError(w, http.StatusUnauthorized, "Access denied. No token provided", "")
		return
	}

	id := urlParam(r, "id")
	if err := h.service.DeleteProduct(r.Context(), userID, id); err != nil {
		respondError(w, r, err, "Product not found", "Failed to delete product")
		return
	}

	log.Info().Str("product_id", id).Str("user_id", userID).Msg("Product deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}
