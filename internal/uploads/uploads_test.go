package uploads_test

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sesamoshop/tienda/internal/uploads"
	"github.com/sesamoshop/tienda/pkg/storage"
)

// pngBytes is the PNG signature plus filler, enough for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["image"][0]
}

func TestSaveStoresImage(t *testing.T) {
	disk := storage.NewLocalDisk(t.TempDir(), "http://localhost:3000")
	saver := uploads.NewSaver(disk, dir)

	path, err := saver.Save(fileHeader(t, "foto.png", pngBytes))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "/"+dir+"/product-"))
	assert.True(t, strings.HasSuffix(path, ".png"))

	name := path[strings.LastIndexByte(path, '/')+1:]
	assert.True(t, disk.Exists(dir+"/"+name))
}

func TestSaveRejectsNonImages(t *testing.T) {
	disk := storage.NewLocalDisk(t.TempDir(), "http://localhost:3000")
	saver := uploads.NewSaver(disk, dir)

	_, err := saver.Save(fileHeader(t, "nota.txt", []byte("plain text, not an image")))
	assert.ErrorIs(t, err, uploads.ErrNotAnImage)
}

func TestFilename(t *testing.T) {
	name := uploads.Filename("Foto de Perfil.JPG")
	assert.True(t, strings.HasPrefix(name, "product-"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	// Unknown extensions are normalised.
	assert.True(t, strings.HasSuffix(uploads.Filename("weird.webp"), ".jpg"))

	// Two names in the same millisecond still differ.
	assert.NotEqual(t, uploads.Filename("a.png"), uploads.Filename("a.png"))
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, uploads.AllowedExt("x.png"))
	assert.True(t, uploads.AllowedExt("x.JPG"))
	assert.False(t, uploads.AllowedExt("x.svg"))
	assert.False(t, uploads.AllowedExt("x"))
}
