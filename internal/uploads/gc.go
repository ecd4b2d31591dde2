package uploads

import (
	"path"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/internal/store"
	"github.com/sesamoshop/tienda/pkg/logger"
	"github.com/sesamoshop/tienda/pkg/metrics"
	"github.com/sesamoshop/tienda/pkg/storage"
)

// Report describes one garbage-collection run over the uploads directory.
type Report struct {
	TotalFiles    int      `json:"totalFiles"`
	ProductImages int      `json:"productImages"`
	DeletedCount  int      `json:"deletedCount"`
	DeletedFiles  []string `json:"deletedFiles"`
}

// CheckReport is the dry-run counterpart of Report.
type CheckReport struct {
	TotalFiles    int      `json:"totalFiles"`
	ProductImages int      `json:"productImages"`
	OrphanedCount int      `json:"orphanedCount"`
	OrphanedFiles []string `json:"orphanedFiles"`
}

// Collector removes uploaded images that no product references. Deletion is
// best effort, a file that cannot be removed is logged and skipped so the
// remaining orphans still go.
type Collector struct {
	disk storage.Disk
	dir  string
	st   *store.Store
}

// NewCollector creates a Collector scanning dir on disk against st.
func NewCollector(disk storage.Disk, dir string, st *store.Store) *Collector {
	return &Collector{disk: disk, dir: dir, st: st}
}

// ListUploaded returns the names of the files currently in the uploads
// directory. A missing directory means no uploads, not an error.
func (c *Collector) ListUploaded() ([]string, error) {
	return c.disk.Files(c.dir)
}

// Referenced returns the set of image basenames the catalog points at.
func (c *Collector) Referenced() map[string]bool {
	refs := make(map[string]bool)
	c.st.View(func(doc *models.Document) {
		for _, p := range doc.Products {
			if p.Image != nil && *p.Image != "" {
				refs[path.Base(*p.Image)] = true
			}
		}
	})
	return refs
}

// Collect deletes every orphaned upload and reports what happened.
func (c *Collector) Collect() (Report, error) {
	files, err := c.ListUploaded()
	if err != nil {
		return Report{}, err
	}
	refs := c.Referenced()

	rep := Report{
		TotalFiles:    len(files),
		ProductImages: len(refs),
		DeletedFiles:  []string{},
	}
	for _, name := range files {
		if refs[name] {
			continue
		}
		if err := c.disk.Delete(path.Join(c.dir, name)); err != nil {
			logger.Warn("gc: could not delete orphan", "file", name, "error", err)
			continue
		}
		rep.DeletedCount++
		rep.DeletedFiles = append(rep.DeletedFiles, name)
	}

	if rep.DeletedCount > 0 {
		metrics.GCFilesDeleted.Add(float64(rep.DeletedCount))
		logger.Info("gc: removed orphaned uploads", "deleted", rep.DeletedCount, "total", rep.TotalFiles)
	}
	return rep, nil
}

// Check lists the orphans without deleting anything.
func (c *Collector) Check() (CheckReport, error) {
	files, err := c.ListUploaded()
	if err != nil {
		return CheckReport{}, err
	}
	refs := c.Referenced()

	rep := CheckReport{
		TotalFiles:    len(files),
		ProductImages: len(refs),
		OrphanedFiles: []string{},
	}
	for _, name := range files {
		if refs[name] {
			continue
		}
		rep.OrphanedCount++
		rep.OrphanedFiles = append(rep.OrphanedFiles, name)
	}
	return rep, nil
}
