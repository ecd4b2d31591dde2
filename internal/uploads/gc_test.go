package uploads_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/internal/store"
	"github.com/sesamoshop/tienda/internal/uploads"
	"github.com/sesamoshop/tienda/pkg/storage"
)

const dir = "uploads/products"

func setup(t *testing.T) (storage.Disk, *store.Store) {
	t.Helper()
	root := t.TempDir()
	disk := storage.NewLocalDisk(root, "http://localhost:3000")

	st := store.Open(filepath.Join(root, "database.json"))
	t.Cleanup(st.Close)
	return disk, st
}

func addProductWithImage(t *testing.T, st *store.Store, name, image string) {
	t.Helper()
	img := "/" + dir + "/" + image
	err := st.Update(context.Background(), func(doc *models.Document) error {
		doc.Products = append(doc.Products, models.Product{
			ID: doc.NextProductID(), Name: name, Image: &img, Status: models.StatusActive,
		})
		return nil
	})
	require.NoError(t, err)
}

func TestCollectDeletesExactlyTheOrphans(t *testing.T) {
	disk, st := setup(t)

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		require.NoError(t, disk.Put(dir+"/"+name, []byte("img")))
	}
	addProductWithImage(t, st, "camiseta", "a.png")

	c := uploads.NewCollector(disk, dir, st)
	rep, err := c.Collect()
	require.NoError(t, err)

	assert.Equal(t, 3, rep.TotalFiles)
	assert.Equal(t, 1, rep.ProductImages)
	assert.Equal(t, 2, rep.DeletedCount)
	assert.ElementsMatch(t, []string{"b.png", "c.png"}, rep.DeletedFiles)

	assert.True(t, disk.Exists(dir+"/a.png"))
	assert.False(t, disk.Exists(dir+"/b.png"))
	assert.False(t, disk.Exists(dir+"/c.png"))
}

func TestCollectMissingDirectoryIsEmpty(t *testing.T) {
	disk, st := setup(t)

	c := uploads.NewCollector(disk, dir, st)
	rep, err := c.Collect()
	require.NoError(t, err)

	assert.Equal(t, 0, rep.TotalFiles)
	assert.Equal(t, 0, rep.DeletedCount)
	assert.Empty(t, rep.DeletedFiles)
}

func TestCheckDeletesNothing(t *testing.T) {
	disk, st := setup(t)

	for _, name := range []string{"a.png", "b.png"} {
		require.NoError(t, disk.Put(dir+"/"+name, []byte("img")))
	}
	addProductWithImage(t, st, "camiseta", "a.png")

	c := uploads.NewCollector(disk, dir, st)
	rep, err := c.Check()
	require.NoError(t, err)

	assert.Equal(t, 2, rep.TotalFiles)
	assert.Equal(t, 1, rep.OrphanedCount)
	assert.Equal(t, []string{"b.png"}, rep.OrphanedFiles)

	assert.True(t, disk.Exists(dir+"/a.png"))
	assert.True(t, disk.Exists(dir+"/b.png"), "check must not delete")
}
