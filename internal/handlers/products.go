package handlers

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"github.com/kofiasare/kantamanto/internal/models"
	"github.com/kofiasare/kantamanto/internal/store"
)

// ProductHandler serves the public catalog and the admin product endpoints.
type ProductHandler struct {
	Store     *store.Store
	UploadDir string
}

// ListProducts returns active products, optionally filtered by category.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	products, err := h.Store.GetActiveProducts(r.Context(), category, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GetProduct returns a single product by id.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	product, err := h.Store.GetProductByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// GetPriceHistory returns the recorded price changes for a product.
func (h *ProductHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	if _, err := h.Store.GetProductByID(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	history, err := h.Store.GetPriceHistory(r.Context(), id, queryInt(r, "limit", 50))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

type productInput struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	BasePrice     float64 `json:"base_price"`
	CurrentPrice  float64 `json:"current_price"`
	StockQuantity int     `json:"stock_quantity"`
	ImageURL      string  `json:"image_url"`
}

// CreateProduct adds a product to the catalog.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request, _ int) {
	var in productInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Name == "" || in.BasePrice <= 0 {
		respondError(w, http.StatusBadRequest, "Name and a positive base price are required")
		return
	}
	if in.CurrentPrice <= 0 {
		in.CurrentPrice = in.BasePrice
	}
	if in.StockQuantity < 0 {
		respondError(w, http.StatusBadRequest, "Stock quantity cannot be negative")
		return
	}

	product := &models.Product{
		Name:          in.Name,
		Description:   in.Description,
		Category:      in.Category,
		BasePrice:     in.BasePrice,
		CurrentPrice:  in.CurrentPrice,
		StockQuantity: in.StockQuantity,
		ImageURL:      in.ImageURL,
		IsActive:      true,
	}
	if err := h.Store.CreateProduct(r.Context(), product); err != nil {
		respondDomainError(w, err)
		return
	}
	slog.Info("Product created", "product_id", product.ID, "name", product.Name)
	respondJSON(w, http.StatusCreated, product)
}

// productUpdateInput carries only the catalog fields this endpoint may
// change. base_price is immutable, current_price/stock/image have their own
// endpoints; unknown fields are rejected at decode time.
type productUpdateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// UpdateProduct edits catalog fields. Price, stock and image have their own
// endpoints.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request, _ int) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	var in productUpdateInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	product, err := h.Store.GetProductByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if in.Name != "" {
		product.Name = in.Name
	}
	if in.Description != "" {
		product.Description = in.Description
	}
	if in.Category != "" {
		product.Category = in.Category
	}
	if err := h.Store.UpdateProduct(r.Context(), product); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// DeactivateProduct hides a product from the catalog without deleting rows.
func (h *ProductHandler) DeactivateProduct(w http.ResponseWriter, r *http.Request, _ int) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	if err := h.Store.DeactivateProduct(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	slog.Info("Product deactivated", "product_id", id)
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Product deactivated"})
}

// RestockProduct sets the absolute stock quantity.
func (h *ProductHandler) RestockProduct(w http.ResponseWriter, r *http.Request, _ int) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	var in struct {
		StockQuantity int `json:"stock_quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.StockQuantity < 0 {
		respondError(w, http.StatusBadRequest, "Stock quantity cannot be negative")
		return
	}
	if err := h.Store.UpdateProductStock(r.Context(), id, in.StockQuantity); err != nil {
		respondDomainError(w, err)
		return
	}
	slog.Info("Product restocked", "product_id", id, "stock", in.StockQuantity)
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Stock updated"})
}

// SetPrice applies a manual price override and records it in the history.
func (h *ProductHandler) SetPrice(w http.ResponseWriter, r *http.Request, _ int) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	var in struct {
		Price float64 `json:"price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Price <= 0 {
		respondError(w, http.StatusBadRequest, "Price must be positive")
		return
	}
	if err := h.Store.SetProductPrice(r.Context(), id, in.Price, models.ReasonManualOverride); err != nil {
		respondDomainError(w, err)
		return
	}
	slog.Info("Manual price override", "product_id", id, "price", in.Price)
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Price updated"})
}

// SaveCompetitorPrice records an observed competitor price for a product.
func (h *ProductHandler) SaveCompetitorPrice(w http.ResponseWriter, r *http.Request, _ int) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	var in struct {
		CompetitorName string  `json:"competitor_name"`
		Price          float64 `json:"price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.CompetitorName == "" || in.Price <= 0 {
		respondError(w, http.StatusBadRequest, "Competitor name and a positive price are required")
		return
	}
	if _, err := h.Store.GetProductByID(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	cp := &models.CompetitorPrice{
		ProductID:      id,
		CompetitorName: in.CompetitorName,
		Price:          in.Price,
	}
	if err := h.Store.SaveCompetitorPrice(r.Context(), cp); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"detail": "Competitor price recorded"})
}

// UploadImage accepts a product photo, resizes it and stores it on disk.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request, _ int) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	if _, err := h.Store.GetProductByID(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Image file is required")
		return
	}
	defer file.Close()

	var img image.Image
	switch filepath.Ext(header.Filename) {
	case ".png":
		img, err = png.Decode(file)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	default:
		respondError(w, http.StatusBadRequest, "Unsupported image format")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to decode image")
		return
	}

	// Resize image (max width 800px, preserve aspect ratio)
	newImage := resize.Resize(800, 0, img, resize.Lanczos3)

	filename := fmt.Sprintf("%s.jpg", uuid.New().String())
	uploadPath := filepath.Join(h.UploadDir, filename)

	out, err := os.Create(uploadPath)
	if err != nil {
		slog.Error("Failed to save image file", "error", err, "path", uploadPath)
		respondError(w, http.StatusInternalServerError, "Error saving image file")
		return
	}
	defer out.Close()
	if err := jpeg.Encode(out, newImage, &jpeg.Options{Quality: 80}); err != nil {
		slog.Error("Failed to encode image", "error", err)
		respondError(w, http.StatusInternalServerError, "Error saving image file")
		return
	}

	imageURL := "/" + filepath.ToSlash(uploadPath)
	if err := h.Store.UpdateProductImage(r.Context(), id, imageURL); err != nil {
		respondDomainError(w, err)
		return
	}
	slog.Info("Product image updated", "product_id", id, "image_url", imageURL)
	respondJSON(w, http.StatusOK, map[string]string{"image_url": imageURL})
}

func pathID(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("id"))
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
