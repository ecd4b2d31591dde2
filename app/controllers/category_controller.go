package controllers

import (
	"net/http"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/pkg/bind"
	"github.com/sesamoshop/tienda/pkg/response"
)

type CategoryController struct {
	catalog *services.CatalogService
}

func NewCategoryController(catalog *services.CatalogService) *CategoryController {
	return &CategoryController{catalog: catalog}
}

// Index lists all categories. Public.
func (c *CategoryController) Index(w http.ResponseWriter, r *http.Request) {
	cats := c.catalog.Categories()
	if cats == nil {
		cats = []models.Category{}
	}
	response.Success(w, cats)
}

// Store creates a category.
func (c *CategoryController) Store(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	errs, err := bind.JSON(r, &in)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	created, err := c.catalog.CreateCategory(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Created(w, created)
}

// Update renames or re-describes a category.
func (c *CategoryController) Update(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		response.Error(w, http.StatusBadRequest, "ID inválido")
		return
	}

	var in services.CategoryInput
	errs, err := bind.JSON(r, &in)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	updated, err := c.catalog.UpdateCategory(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Success(w, updated)
}

// Destroy deletes a category unless products still reference it.
func (c *CategoryController) Destroy(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		response.Error(w, http.StatusBadRequest, "ID inválido")
		return
	}

	if err := c.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Categoría eliminada"})
}
