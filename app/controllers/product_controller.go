package controllers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/sesamoshop/tienda/app/services"
	"github.com/sesamoshop/tienda/internal/uploads"
	"github.com/sesamoshop/tienda/pkg/bind"
	"github.com/sesamoshop/tienda/pkg/response"
	"github.com/sesamoshop/tienda/pkg/validate"
)

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

// Index lists active products for the storefront, paginated.
func (c *ProductController) Index(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	items, total := c.catalog.ActiveProducts(page, limit)
	response.Paginated(w, items, pagination(page, limit, total))
}

// AdminIndex lists every product regardless of status, paginated.
func (c *ProductController) AdminIndex(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	items, total := c.catalog.AllProducts(page, limit)
	response.Paginated(w, items, pagination(page, limit, total))
}

// Show returns one product.
func (c *ProductController) Show(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		response.Error(w, http.StatusBadRequest, "ID inválido")
		return
	}
	p, err := c.catalog.Product(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Success(w, p)
}

// Store creates a product. The body is multipart when an image is attached
// and plain JSON otherwise.
func (c *ProductController) Store(w http.ResponseWriter, r *http.Request) {
	in, image, errs, err := productInput(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	created, err := c.catalog.CreateProduct(r.Context(), in, image)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Created(w, created)
}

// Update replaces a product's fields and optionally its image.
func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		response.Error(w, http.StatusBadRequest, "ID inválido")
		return
	}

	in, image, errs, err := productInput(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	updated, err := c.catalog.UpdateProduct(r.Context(), id, in, image)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Success(w, updated)
}

// Destroy deletes a product and its image file.
func (c *ProductController) Destroy(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		response.Error(w, http.StatusBadRequest, "ID inválido")
		return
	}

	if err := c.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Producto eliminado"})
}

// productInput decodes a product payload from either multipart form data
// (the admin form with an image) or a JSON body.
func productInput(r *http.Request) (services.ProductInput, *multipart.FileHeader, map[string]string, error) {
	var in services.ProductInput

	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		errs, err := bind.JSON(r, &in)
		return in, nil, errs, err
	}

	if err := r.ParseMultipartForm(uploads.MaxImageSize); err != nil {
		return in, nil, nil, err
	}

	in.Name = r.FormValue("name")
	in.Category = r.FormValue("category")
	in.Description = r.FormValue("description")
	in.Status = r.FormValue("status")
	in.Featured = r.FormValue("featured") == "true" || r.FormValue("featured") == "1"

	// Form values arrive as strings; a value that does not parse must be a
	// field error, not a silent zero.
	parseErrs := map[string]string{}
	if v, err := strconv.ParseFloat(r.FormValue("price"), 64); err != nil {
		parseErrs["price"] = "El precio debe ser un número válido mayor o igual a 0"
	} else {
		in.Price = v
	}
	if v, err := strconv.Atoi(r.FormValue("stock")); err != nil {
		parseErrs["stock"] = "El stock debe ser un número válido mayor o igual a 0"
	} else {
		in.Stock = v
	}

	var image *multipart.FileHeader
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		image = files[0]
	}

	errs := validate.Struct(&in)
	for field, msg := range parseErrs {
		errs[field] = msg
	}
	if validate.HasErrors(errs) {
		return in, image, errs, nil
	}
	return in, image, nil, nil
}

func pagination(page, limit, total int) response.Pagination {
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return response.Pagination{Page: page, Limit: limit, Total: int64(total), Pages: pages}
}
