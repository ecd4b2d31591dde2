// Package uploads stores product images and reclaims the ones no product
// references anymore.
package uploads

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sesamoshop/tienda/pkg/storage"
)

// MaxImageSize caps uploaded images at 5 MB.
const MaxImageSize = 5 << 20

// ErrNotAnImage is returned when the uploaded content is not an allowed
// image type. The check reads the actual bytes, not the client-declared
// Content-Type.
var ErrNotAnImage = errors.New("uploads: only JPG, PNG and GIF images are allowed")

// ErrTooLarge is returned when the upload exceeds MaxImageSize.
var ErrTooLarge = errors.New("uploads: image exceeds the 5 MB limit")

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

var allowedExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

// Saver writes uploaded images onto a storage disk under dir.
type Saver struct {
	disk storage.Disk
	dir  string
}

// NewSaver creates a Saver storing files under dir on disk.
func NewSaver(disk storage.Disk, dir string) *Saver {
	return &Saver{disk: disk, dir: dir}
}

// Save validates and stores one uploaded image. It returns the public path
// recorded on the product (e.g. "/uploads/products/product-...jpg").
func (s *Saver) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxImageSize {
		return "", ErrTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("uploads: open upload: %w", err)
	}
	defer f.Close()

	// Sniff the real content type from the first bytes.
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return "", fmt.Errorf("uploads: read upload: %w", err)
	}
	contentType := http.DetectContentType(head[:n])
	if _, ok := allowedTypes[contentType]; !ok {
		return "", ErrNotAnImage
	}

	if _, err := f.Seek(0, 0); err != nil {
		return "", fmt.Errorf("uploads: rewind upload: %w", err)
	}

	name := Filename(fh.Filename)
	if err := s.disk.PutStream(path.Join(s.dir, name), f); err != nil {
		return "", err
	}

	return "/" + path.Join(s.dir, name), nil
}

// Filename builds a collision-resistant name for an upload:
// product-<unix-ms>-<short uuid><original extension>.
func Filename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExts[ext] {
		ext = ".jpg"
	}
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("product-%d-%s%s", time.Now().UnixMilli(), suffix, ext)
}

// AllowedExt reports whether a filename carries a servable image
// extension. Used by the image-serving endpoint.
func AllowedExt(name string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(name))]
}
