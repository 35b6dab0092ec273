package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	domain "github.com/lapstore/storefront-api/internal/entity"
)

// CatalogRepo backs the product/brand surface.
type CatalogRepo interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, s string) (*domain.Product, error)
	ListProducts(ctx context.Context, brand string, limit, offset int) ([]domain.Product, error)
	CreateBrand(ctx context.Context, b *domain.Brand) error
	DeleteBrand(ctx context.Context, id string) error
	ListBrands(ctx context.Context) ([]domain.Brand, error)
}

type CatalogHandler struct {
	repo CatalogRepo
}

func NewCatalogHandler(repo CatalogRepo) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

type productReq struct {
	Name          string               `json:"name" binding:"required"`
	Brand         string               `json:"brand" binding:"required"`
	Description   string               `json:"description"`
	PurchasePrice int64                `json:"purchasePrice" binding:"gte=0"`
	SalePrice     int64                `json:"salePrice" binding:"required,gt=0"`
	Quantity      int64                `json:"quantity" binding:"gte=0"`
	Images        []string             `json:"images"`
	Specs         []domain.ProductSpec `json:"specs"`
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	now := time.Now()
	p := &domain.Product{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Slug:          slug.Make(req.Name),
		Brand:         req.Brand,
		Description:   req.Description,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		Quantity:      req.Quantity,
		Images:        req.Images,
		Specs:         req.Specs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.repo.CreateProduct(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": p.ID, "slug": p.Slug})
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p := &domain.Product{
		ID:            c.Param("id"),
		Name:          req.Name,
		Slug:          slug.Make(req.Name),
		Brand:         req.Brand,
		Description:   req.Description,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		Quantity:      req.Quantity,
		Images:        req.Images,
		Specs:         req.Specs,
		UpdatedAt:     time.Now(),
	}
	if err := h.repo.UpdateProduct(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "slug": p.Slug})
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.repo.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetProduct resolves by id first, then by slug, so storefront URLs can use
// either form.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	key := c.Param("id")
	p, err := h.repo.GetProduct(c.Request.Context(), key)
	if err != nil {
		p, err = h.repo.GetProductBySlug(c.Request.Context(), key)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResp(p))
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	limit, offset := pagination(c)
	list, err := h.repo.ListProducts(c.Request.Context(), c.Query("brand"), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, toProductResp(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"products": out, "limit": limit, "offset": offset})
}

func toProductResp(p *domain.Product) gin.H {
	return gin.H{
		"id":          p.ID,
		"name":        p.Name,
		"slug":        p.Slug,
		"brand":       p.Brand,
		"description": p.Description,
		"salePrice":   p.SalePrice,
		"quantity":    p.Quantity,
		"images":      p.Images,
		"specs":       p.Specs,
		"ratingAvg":   p.RatingAvg,
		"ratingCount": p.RatingCount,
	}
}

type brandReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *CatalogHandler) CreateBrand(c *gin.Context) {
	var req brandReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	now := time.Now()
	b := &domain.Brand{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Slug:      slug.Make(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.CreateBrand(c.Request.Context(), b); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": b.ID, "slug": b.Slug})
}

func (h *CatalogHandler) DeleteBrand(c *gin.Context) {
	if err := h.repo.DeleteBrand(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) ListBrands(c *gin.Context) {
	list, err := h.repo.ListBrands(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, b := range list {
		out = append(out, gin.H{"id": b.ID, "name": b.Name, "slug": b.Slug})
	}
	c.JSON(http.StatusOK, gin.H{"brands": out})
}
