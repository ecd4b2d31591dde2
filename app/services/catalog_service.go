package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/internal/store"
	"github.com/sesamoshop/tienda/internal/uploads"
	"github.com/sesamoshop/tienda/pkg/event"
	"github.com/sesamoshop/tienda/pkg/logger"
	"github.com/sesamoshop/tienda/pkg/storage"
)

// ActivityEvent is fired after every catalog mutation, carrying the entry
// that was appended to the activity log.
const ActivityEvent = "catalog.activity"

// ErrNotFound is returned when the referenced category or product does not
// exist.
var ErrNotFound = errors.New("no encontrado")

// ErrDuplicateCategory is returned when a category name already exists,
// compared case-insensitively.
var ErrDuplicateCategory = errors.New("ya existe una categoría con ese nombre")

// ErrFeaturedLimit is returned when a mutation would exceed the cap on
// featured active products.
var ErrFeaturedLimit = fmt.Errorf("solo puede haber %d productos destacados", models.MaxFeatured)

// CategoryInUseError blocks deleting a category that products still
// reference.
type CategoryInUseError struct {
	Count int
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("la categoría está en uso por %d producto(s)", e.Count)
}

// CategoryInput is the payload for category create and update.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"nullable,max=500"`
}

// ProductInput is the payload for product create and update. It arrives as
// multipart form fields when an image is attached.
type ProductInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Category    string  `json:"category" validate:"required,max=100"`
	Price       float64 `json:"price" validate:"numeric,gte=0"`
	Stock       int     `json:"stock" validate:"numeric,gte=0"`
	Description string  `json:"description" validate:"nullable,max=2000"`
	Status      string  `json:"status" validate:"nullable,in=active,inactive"`
	Featured    bool    `json:"featured"`
}

// CatalogService implements category and product management on top of the
// store. Every mutation appends to the activity log in the same update, so
// the entry and the change are persisted together.
type CatalogService struct {
	st    *store.Store
	saver *uploads.Saver
	disk  storage.Disk
	dir   string
}

func NewCatalogService(st *store.Store, saver *uploads.Saver, disk storage.Disk, dir string) *CatalogService {
	return &CatalogService{st: st, saver: saver, disk: disk, dir: dir}
}

// sanitize strips angle brackets and trims whitespace, matching what the
// admin form has always done on the way in.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	return strings.TrimSpace(s)
}

// ─── Categories ──────────────────────────────────────────────────────────────

// Categories returns all categories in document order.
func (s *CatalogService) Categories() []models.Category {
	var out []models.Category
	s.st.View(func(doc *models.Document) {
		out = append(out, doc.Categories...)
	})
	return out
}

// CreateCategory adds a category. Names are unique case-insensitively.
func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (models.Category, error) {
	var created models.Category
	err := s.st.Update(ctx, func(doc *models.Document) error {
		name := sanitize(in.Name)
		if s.categoryNameTaken(doc, name, 0) {
			return ErrDuplicateCategory
		}

		created = models.Category{
			ID:          doc.NextCategoryID(),
			Name:        name,
			Description: sanitize(in.Description),
			CreatedAt:   time.Now(),
		}
		doc.Categories = append(doc.Categories, created)
		s.logActivity(doc, models.ActivityEntry{Category: created.Name, Action: "creada"})
		return nil
	})
	if err != nil {
		return models.Category{}, err
	}
	logger.Info("catalog: category created", "id", created.ID, "name", created.Name)
	return created, nil
}

// UpdateCategory renames or re-describes a category.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int, in CategoryInput) (models.Category, error) {
	var updated models.Category
	err := s.st.Update(ctx, func(doc *models.Document) error {
		idx := -1
		for i := range doc.Categories {
			if doc.Categories[i].ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return ErrNotFound
		}

		name := sanitize(in.Name)
		if s.categoryNameTaken(doc, name, id) {
			return ErrDuplicateCategory
		}

		now := time.Now()
		doc.Categories[idx].Name = name
		doc.Categories[idx].Description = sanitize(in.Description)
		doc.Categories[idx].UpdatedAt = &now
		updated = doc.Categories[idx]
		s.logActivity(doc, models.ActivityEntry{Category: updated.Name, Action: "actualizada"})
		return nil
	})
	if err != nil {
		return models.Category{}, err
	}
	return updated, nil
}

// DeleteCategory removes a category unless products still reference it, in
// which case the blocking count is reported.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int) error {
	return s.st.Update(ctx, func(doc *models.Document) error {
		idx := -1
		for i := range doc.Categories {
			if doc.Categories[i].ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return ErrNotFound
		}

		name := doc.Categories[idx].Name
		inUse := 0
		for _, p := range doc.Products {
			if strings.EqualFold(p.Category, name) {
				inUse++
			}
		}
		if inUse > 0 {
			return &CategoryInUseError{Count: inUse}
		}

		doc.Categories = append(doc.Categories[:idx], doc.Categories[idx+1:]...)
		s.logActivity(doc, models.ActivityEntry{Category: name, Action: "eliminada"})
		return nil
	})
}

func (s *CatalogService) categoryNameTaken(doc *models.Document, name string, skipID int) bool {
	for _, c := range doc.Categories {
		if c.ID != skipID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// ─── Products ────────────────────────────────────────────────────────────────

// ActiveProducts returns the storefront page: active products only.
func (s *CatalogService) ActiveProducts(page, limit int) ([]models.Product, int) {
	var all []models.Product
	s.st.View(func(doc *models.Document) {
		all = doc.ActiveProducts()
	})
	return paginate(all, page, limit)
}

// AllProducts returns the admin page over every product.
func (s *CatalogService) AllProducts(page, limit int) ([]models.Product, int) {
	var all []models.Product
	s.st.View(func(doc *models.Document) {
		all = append(all, doc.Products...)
	})
	return paginate(all, page, limit)
}

// Product returns one product by id.
func (s *CatalogService) Product(id int) (models.Product, error) {
	var found *models.Product
	s.st.View(func(doc *models.Document) {
		for i := range doc.Products {
			if doc.Products[i].ID == id {
				p := doc.Products[i]
				found = &p
				return
			}
		}
	})
	if found == nil {
		return models.Product{}, ErrNotFound
	}
	return *found, nil
}

// CreateProduct stores the image first, then adds the product. If the
// update is rejected the freshly stored image is removed again so it never
// becomes an orphan-in-waiting.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput, image *multipart.FileHeader) (models.Product, error) {
	var imagePath *string
	if image != nil {
		p, err := s.saver.Save(image)
		if err != nil {
			return models.Product{}, err
		}
		imagePath = &p
	}

	var created models.Product
	err := s.st.Update(ctx, func(doc *models.Document) error {
		if in.Featured && doc.FeaturedCount(0) >= models.MaxFeatured {
			return ErrFeaturedLimit
		}

		created = models.Product{
			ID:          doc.NextProductID(),
			Name:        sanitize(in.Name),
			Category:    sanitize(in.Category),
			Price:       in.Price,
			Stock:       in.Stock,
			Description: sanitize(in.Description),
			Image:       imagePath,
			Status:      defaultStatus(in.Status),
			Featured:    in.Featured,
			CreatedAt:   time.Now(),
		}
		doc.Products = append(doc.Products, created)
		doc.Stats.TotalProducts = len(doc.Products)
		s.logActivity(doc, models.ActivityEntry{Product: created.Name, Action: "agregado"})
		return nil
	})
	if err != nil {
		s.removeImage(imagePath)
		return models.Product{}, err
	}

	logger.Info("catalog: product created", "id", created.ID, "name", created.Name)
	return created, nil
}

// UpdateProduct applies the new fields and, when a replacement image comes
// in, deletes the previous file after the update is persisted.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int, in ProductInput, image *multipart.FileHeader) (models.Product, error) {
	var imagePath *string
	if image != nil {
		p, err := s.saver.Save(image)
		if err != nil {
			return models.Product{}, err
		}
		imagePath = &p
	}

	var updated models.Product
	var oldImage *string
	err := s.st.Update(ctx, func(doc *models.Document) error {
		idx := -1
		for i := range doc.Products {
			if doc.Products[i].ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return ErrNotFound
		}

		// Featuring anything while three active products are already
		// featured is rejected, regardless of this product's status.
		if in.Featured && doc.FeaturedCount(id) >= models.MaxFeatured {
			return ErrFeaturedLimit
		}
		status := defaultStatus(in.Status)

		p := &doc.Products[idx]
		now := time.Now()
		p.Name = sanitize(in.Name)
		p.Category = sanitize(in.Category)
		p.Price = in.Price
		p.Stock = in.Stock
		p.Description = sanitize(in.Description)
		p.Status = status
		p.Featured = in.Featured
		p.UpdatedAt = &now
		if imagePath != nil {
			oldImage = p.Image
			p.Image = imagePath
		}
		updated = *p
		s.logActivity(doc, models.ActivityEntry{Product: updated.Name, Action: "actualizado"})
		return nil
	})
	if err != nil {
		s.removeImage(imagePath)
		return models.Product{}, err
	}

	s.removeImage(oldImage)
	return updated, nil
}

// DeleteProduct removes the product and its image file.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int) error {
	var image *string
	err := s.st.Update(ctx, func(doc *models.Document) error {
		idx := -1
		for i := range doc.Products {
			if doc.Products[i].ID == id {
				idx = i
				break
			}
		}
		if idx == -1 {
			return ErrNotFound
		}

		name := doc.Products[idx].Name
		image = doc.Products[idx].Image
		doc.Products = append(doc.Products[:idx], doc.Products[idx+1:]...)
		doc.Stats.TotalProducts = len(doc.Products)
		s.logActivity(doc, models.ActivityEntry{Product: name, Action: "eliminado"})
		return nil
	})
	if err != nil {
		return err
	}

	s.removeImage(image)
	return nil
}

// ─── Stats & activity ────────────────────────────────────────────────────────

// Stats returns the aggregate block with totalProducts recomputed.
func (s *CatalogService) Stats() models.Stats {
	var out models.Stats
	s.st.View(func(doc *models.Document) {
		out = doc.Stats
		out.TotalProducts = len(doc.Products)
	})
	return out
}

// Activity returns the last limit entries, newest first.
func (s *CatalogService) Activity(limit int) []models.ActivityEntry {
	var out []models.ActivityEntry
	s.st.View(func(doc *models.Document) {
		out = doc.RecentActivity(limit)
	})
	return out
}

// PopularProduct is one row of the popular-products panel.
type PopularProduct struct {
	Name  string `json:"name"`
	Sales int    `json:"sales"`
}

// PopularProducts returns the first three active products with name and
// sales count.
func (s *CatalogService) PopularProducts() []PopularProduct {
	out := []PopularProduct{}
	s.st.View(func(doc *models.Document) {
		for _, p := range doc.Products {
			if !p.Active() {
				continue
			}
			out = append(out, PopularProduct{Name: p.Name, Sales: p.Sales})
			if len(out) == 3 {
				return
			}
		}
	})
	return out
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// logActivity appends the entry inside the current update and fires the
// activity event once the handler chain gets to run.
func (s *CatalogService) logActivity(doc *models.Document, e models.ActivityEntry) {
	e.Date = time.Now()
	doc.ActivityLog = append(doc.ActivityLog, e)
	event.FireAsync(ActivityEvent, e)
}

func (s *CatalogService) removeImage(imagePath *string) {
	if imagePath == nil || *imagePath == "" {
		return
	}
	name := path.Base(*imagePath)
	if err := s.disk.Delete(path.Join(s.dir, name)); err != nil {
		logger.Warn("catalog: could not delete image", "file", name, "error", err)
	}
}

func defaultStatus(status string) string {
	if status == "" {
		return models.StatusActive
	}
	return status
}

func paginate(items []models.Product, page, limit int) ([]models.Product, int) {
	total := len(items)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= total {
		return []models.Product{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], total
}
