package transport

import (
	"errors"
	"net/http"
	"strconv"

	"product-api/internal/database"
	"product-api/internal/domain"
	"product-api/internal/middleware"
	"product-api/internal/repository"
	"product-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// versionConflictMessage tells the client their copy is out of date without
// revealing whether the product changed or was deleted.
const versionConflictMessage = "Product version mismatch. The product may have been modified by another user."

// CreateProductRequest represents the product creation payload. Price and
// StockQuantity are pointers so that explicit zeroes survive the required
// check.
type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required,min=1,max=255"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	StockQuantity *int             `json:"stock_quantity" validate:"required,gte=0"`
}

// UpdateProductRequest represents the product update payload. Version is the
// version the client read; the update only applies if it is still current.
type UpdateProductRequest struct {
	Name          string           `json:"name" validate:"required,min=1,max=255"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	StockQuantity *int             `json:"stock_quantity" validate:"required,gte=0"`
	Version       *int             `json:"version" validate:"required,gte=0"`
}

// ListProductsResponse represents one page of products
type ListProductsResponse struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
}

// CreateProduct handles product creation
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	// Decode and validate request
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Create product validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		// JSON decode error
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), req.Name, req.Description, *req.Price, *req.StockQuantity)
	if err != nil {
		h.logger.Error("Failed to create product", zap.Error(err))
		h.respondWithServiceError(w, err)
		return
	}

	h.logger.Info("Product created", zap.Int64("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// ListProducts handles listing products with pagination
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		offset = parsed
	}

	products, total, err := h.productService.ListProducts(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		h.respondWithServiceError(w, err)
		return
	}

	response := ListProductsResponse{
		Products: products,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}

	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// GetProduct handles retrieving a single product
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		h.logger.Debug("Failed to get product", zap.Int64("product_id", id), zap.Error(err))
		h.respondWithServiceError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// UpdateProduct handles a version-checked product update
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req UpdateProductRequest

	// Decode and validate request
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update product validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), id, req.Name, req.Description, *req.Price, *req.StockQuantity, *req.Version)
	if err != nil {
		h.logger.Debug("Failed to update product", zap.Int64("product_id", id), zap.Error(err))
		h.respondWithServiceError(w, err)
		return
	}

	h.logger.Info("Product updated",
		zap.Int64("product_id", product.ID),
		zap.Int("version", product.Version),
	)
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct handles product deletion
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseProductID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if err := h.productService.DeleteProduct(r.Context(), id); err != nil {
		h.logger.Debug("Failed to delete product", zap.Int64("product_id", id), zap.Error(err))
		h.respondWithServiceError(w, err)
		return
	}

	h.logger.Info("Product deleted", zap.Int64("product_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// respondWithServiceError maps service and repository errors to HTTP status
// codes.
func (h *ProductHandler) respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrVersionConflict):
		middleware.RespondWithError(w, http.StatusConflict, versionConflictMessage)
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, database.ErrPoolExhausted):
		w.Header().Set("Retry-After", "1")
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "server is at capacity, please retry")
	default:
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseProductID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
