package controllers

import (
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sesamoshop/tienda/internal/uploads"
	"github.com/sesamoshop/tienda/pkg/response"
	"github.com/sesamoshop/tienda/pkg/storage"
)

type UploadController struct {
	collector *uploads.Collector
	disk      storage.Disk
	dir       string
}

func NewUploadController(collector *uploads.Collector, disk storage.Disk, dir string) *UploadController {
	return &UploadController{collector: collector, disk: disk, dir: dir}
}

// Serve streams one uploaded product image. Only image extensions are
// served and the filename is flattened so the path cannot escape the
// uploads directory.
func (c *UploadController) Serve(w http.ResponseWriter, r *http.Request) {
	name := path.Base(chi.URLParam(r, "filename"))
	if name == "." || name == "/" || !uploads.AllowedExt(name) {
		response.NotFound(w)
		return
	}

	f, err := c.disk.GetStream(path.Join(c.dir, name))
	if err != nil {
		response.NotFound(w)
		return
	}
	defer f.Close()

	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	io.Copy(w, f) //nolint:errcheck
}

// Cleanup deletes orphaned uploads and reports what went.
func (c *UploadController) Cleanup(w http.ResponseWriter, r *http.Request) {
	rep, err := c.collector.Collect()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Success(w, rep)
}

// CheckOrphaned is the dry run over the same scan.
func (c *UploadController) CheckOrphaned(w http.ResponseWriter, r *http.Request) {
	rep, err := c.collector.Check()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Success(w, rep)
}
