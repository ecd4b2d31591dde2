package store_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/internal/store"
)

func openTemp(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "database.json")
	s := store.Open(path)
	t.Cleanup(s.Close)
	return s, path
}

func TestMissingFileSeedsDefault(t *testing.T) {
	s, _ := openTemp(t)

	s.View(func(doc *models.Document) {
		assert.Len(t, doc.Users, 3, "default document seeds the admin accounts")
		assert.Empty(t, doc.Products)
		assert.Empty(t, doc.Categories)
	})
}

func TestCorruptFileSeedsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := store.Open(path)
	defer s.Close()

	s.View(func(doc *models.Document) {
		assert.Len(t, doc.Users, 3)
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	ctx := context.Background()

	s := store.Open(path)
	err := s.Update(ctx, func(doc *models.Document) error {
		doc.Categories = append(doc.Categories, models.Category{
			ID: doc.NextCategoryID(), Name: "Camisas", CreatedAt: time.Now(),
		})
		doc.Products = append(doc.Products, models.Product{
			ID: doc.NextProductID(), Name: "Camisa blanca", Category: "Camisas",
			Price: 19.9, Stock: 5, Status: models.StatusActive, CreatedAt: time.Now(),
		})
		return nil
	})
	require.NoError(t, err)
	s.Close()

	reopened := store.Open(path)
	defer reopened.Close()

	reopened.View(func(doc *models.Document) {
		require.Len(t, doc.Categories, 1)
		require.Len(t, doc.Products, 1)
		assert.Equal(t, "Camisas", doc.Categories[0].Name)
		assert.Equal(t, "Camisa blanca", doc.Products[0].Name)
		assert.Equal(t, 19.9, doc.Products[0].Price)
	})
}

func TestUpdateErrorAppliesNothing(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	boom := fmt.Errorf("rejected")
	err := s.Update(ctx, func(doc *models.Document) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "a rejected update must not write the file")
}

func TestConcurrentUpdatesKeepFileValid(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	const writers = 10
	const perWriter = 10

	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				err := s.Update(ctx, func(doc *models.Document) error {
					doc.Products = append(doc.Products, models.Product{
						ID:        doc.NextProductID(),
						Name:      fmt.Sprintf("producto %d-%d", w, i),
						Status:    models.StatusActive,
						CreatedAt: time.Now(),
					})
					return nil
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc models.Document
	require.NoError(t, json.Unmarshal(data, &doc), "the file must always be complete valid JSON")
	assert.Len(t, doc.Products, writers*perWriter)

	seen := map[int]bool{}
	for _, p := range doc.Products {
		assert.False(t, seen[p.ID], "id %d assigned twice", p.ID)
		seen[p.ID] = true
	}

	_, statErr := os.Stat(path + ".backup")
	assert.True(t, os.IsNotExist(statErr), "backup is removed after a successful save")
}

func TestIDsNotReusedAfterDeletingMax(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	var lastID int
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Update(ctx, func(doc *models.Document) error {
			lastID = doc.NextProductID()
			doc.Products = append(doc.Products, models.Product{ID: lastID, Name: "p"})
			return nil
		}))
	}
	require.Equal(t, 3, lastID)

	// Delete the highest id, then add another.
	require.NoError(t, s.Update(ctx, func(doc *models.Document) error {
		doc.Products = doc.Products[:len(doc.Products)-1]
		return nil
	}))

	var newID int
	require.NoError(t, s.Update(ctx, func(doc *models.Document) error {
		newID = doc.NextProductID()
		doc.Products = append(doc.Products, models.Product{ID: newID, Name: "p"})
		return nil
	}))
	assert.Equal(t, 4, newID, "a deleted max id must not come back")
}

func TestClosedStoreRejectsSaves(t *testing.T) {
	s, _ := openTemp(t)
	s.Close()

	err := s.Save(context.Background())
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestSaveRacingCloseGetsDefiniteOutcome(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := store.Open(filepath.Join(t.TempDir(), "database.json"))

		done := make(chan error, 1)
		go func() { done <- s.Save(context.Background()) }()
		s.Close()

		select {
		case err := <-done:
			// The save either ran before the writer stopped or was
			// rejected; it must never be dropped without an answer.
			if err != nil {
				assert.ErrorIs(t, err, store.ErrClosed)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("save blocked forever after close")
		}
	}
}

func TestSaveHonorsContext(t *testing.T) {
	s, _ := openTemp(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either the queue send or the wait observes the dead context; both
	// surface it.
	err := s.Save(ctx)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestStripLegacyCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	doc := models.Document{
		Users: []models.User{{ID: 1, Username: "admin"}},
		Categories: []models.Category{
			{ID: 1, Name: "Camisetas"},
			{ID: 2, Name: "Vinilos"},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s := store.Open(path)
	defer s.Close()

	s.View(func(d *models.Document) {
		assert.Empty(t, d.Categories, "a legacy seed name clears the whole category list")
	})
}
