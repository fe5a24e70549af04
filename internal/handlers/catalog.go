package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mdnaeem95/halaltech/internal/services"
	"github.com/mdnaeem95/halaltech/pkg/response"
)

// CatalogHandler serves the public service catalog and its admin maintenance.
type CatalogHandler struct {
	svc *services.CatalogService
}

func NewCatalogHandler(svc *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

type createServiceRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Slug        string   `json:"slug" validate:"omitempty,slug,max=255"`
	Category    string   `json:"category" validate:"required,max=64"`
	Description string   `json:"description"`
	BasePrice   *float64 `json:"base_price" validate:"omitempty,gte=0"`
	Features    []string `json:"features" validate:"omitempty,dive,required"`
	SortOrder   int      `json:"sort_order"`
	IsActive    *bool    `json:"is_active"`
}

type updateServiceRequest struct {
	Name           *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Slug           *string  `json:"slug" validate:"omitempty,slug,max=255"`
	Category       *string  `json:"category" validate:"omitempty,min=1,max=64"`
	Description    *string  `json:"description"`
	BasePrice      *float64 `json:"base_price" validate:"omitempty,gte=0"`
	ClearBasePrice bool     `json:"clear_base_price"`
	Features       []string `json:"features" validate:"omitempty,dive,required"`
	SortOrder      *int     `json:"sort_order"`
	IsActive       *bool    `json:"is_active"`
}

type packageRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price" validate:"omitempty,gt=0"`
	DeliveryDays *int     `json:"delivery_days" validate:"omitempty,gte=0"`
	Revisions    *int     `json:"revisions" validate:"omitempty,gte=0"`
	Features     []string `json:"features" validate:"omitempty,dive,required"`
	IsPopular    *bool    `json:"is_popular"`
	IsActive     *bool    `json:"is_active"`
}

type createPackageRequest struct {
	packageRequest
	Name  *string  `json:"name" validate:"required,min=1,max=255"`
	Price *float64 `json:"price" validate:"required,gt=0"`
}

func (r packageRequest) input() services.PackageInput {
	return services.PackageInput{
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		DeliveryDays: r.DeliveryDays,
		Revisions:    r.Revisions,
		Features:     r.Features,
		IsPopular:    r.IsPopular,
		IsActive:     r.IsActive,
	}
}

// GET /api/services
func (h *CatalogHandler) ListServices(c *gin.Context) {
	items, err := h.svc.ListServices(requestContext(c), services.ListServicesOptions{
		Category:        strings.TrimSpace(c.Query("category")),
		IncludeInactive: parseBoolQuery(c, "include_inactive"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// GET /api/services/:id accepts an id or a slug.
func (h *CatalogHandler) GetService(c *gin.Context) {
	service, err := h.svc.GetService(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, service)
}

// GET /api/services/:id/packages
func (h *CatalogHandler) ListPackages(c *gin.Context) {
	packages, err := h.svc.ListPackages(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, packages)
}

// POST /api/admin/services
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var req createServiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	service, err := h.svc.CreateService(requestContext(c), services.CreateServiceInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Category:    req.Category,
		Description: req.Description,
		BasePrice:   req.BasePrice,
		Features:    req.Features,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, service)
}

// PATCH /api/admin/services/:id
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	var req updateServiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	service, err := h.svc.UpdateService(requestContext(c), c.Param("id"), services.UpdateServiceInput{
		Name:           req.Name,
		Slug:           req.Slug,
		Category:       req.Category,
		Description:    req.Description,
		BasePrice:      req.BasePrice,
		ClearBasePrice: req.ClearBasePrice,
		Features:       req.Features,
		SortOrder:      req.SortOrder,
		IsActive:       req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, service)
}

// DELETE /api/admin/services/:id deactivates the service.
func (h *CatalogHandler) DeactivateService(c *gin.Context) {
	if err := h.svc.DeactivateService(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}

// POST /api/admin/services/:id/packages
func (h *CatalogHandler) CreatePackage(c *gin.Context) {
	var req createPackageRequest
	if !bindAndValidate(c, &req) {
		return
	}
	input := req.packageRequest.input()
	input.Name = req.Name
	input.Price = req.Price

	pkg, err := h.svc.CreatePackage(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, pkg)
}

// PATCH /api/admin/packages/:id
func (h *CatalogHandler) UpdatePackage(c *gin.Context) {
	var req packageRequest
	if !bindAndValidate(c, &req) {
		return
	}
	pkg, err := h.svc.UpdatePackage(requestContext(c), c.Param("id"), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, pkg)
}

// DELETE /api/admin/packages/:id
func (h *CatalogHandler) DeactivatePackage(c *gin.Context) {
	if err := h.svc.DeactivatePackage(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}
