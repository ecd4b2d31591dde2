// Package store persists the whole application state as a single JSON
// document with crash-safe save semantics.
//
// The in-memory document is the authority between saves. All access goes
// through View (shared read lock) or Update (exclusive lock + persist), so
// concurrent handlers can never observe a half-applied mutation. Physical
// writes are serialized through a single writer goroutine: each save copies
// the current file to <path>.backup, writes the full document to
// <path>.tmp, renames it over the main file, then removes the backup. A
// reader of the file therefore always sees a complete, valid document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sesamoshop/tienda/app/models"
	"github.com/sesamoshop/tienda/config"
	"github.com/sesamoshop/tienda/pkg/auth"
	"github.com/sesamoshop/tienda/pkg/logger"
	"github.com/sesamoshop/tienda/pkg/metrics"
)

// ErrClosed is returned by Save and Update after Close.
var ErrClosed = errors.New("store: closed")

// legacyCategoryNames are the seed categories the original shop shipped
// with. Existing documents that still carry any of them get their category
// list cleared on load so the shop owner can recreate categories by hand.
var legacyCategoryNames = []string{"camisetas", "sudaderas", "pantalones", "accesorios"}

type saveReq struct {
	data []byte
	done chan error
}

// Store owns the document and its on-disk representation.
type Store struct {
	path string

	mu  sync.RWMutex
	doc *models.Document

	saves   chan saveReq
	closed  chan struct{}
	drained chan struct{}
	once    sync.Once
}

// Open loads the document at path, or constructs the seeded default when
// the file is absent or unparsable. Open never fails because of document
// content; only the writer goroutine setup is fallible state.
func Open(path string) *Store {
	s := &Store{
		path:    path,
		doc:     load(path),
		saves:   make(chan saveReq, 64),
		closed:  make(chan struct{}),
		drained: make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// View runs fn with shared read access to the document. fn must not retain
// or mutate the document.
func (s *Store) View(fn func(doc *models.Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// Update applies fn under the exclusive lock and, when fn succeeds,
// persists the document before returning. An error from fn aborts the
// update with nothing applied or saved, so validation failures never leave
// partial state. The ctx bounds the wait on the write queue.
func (s *Store) Update(ctx context.Context, fn func(doc *models.Document) error) error {
	s.mu.Lock()
	if err := fn(s.doc); err != nil {
		s.mu.Unlock()
		return err
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	return s.enqueue(ctx, data)
}

// Save persists the current document without mutating it. Used by the
// shutdown path.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.doc, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	return s.enqueue(ctx, data)
}

// Close stops the writer goroutine. Pending saves complete; later calls to
// Save/Update return ErrClosed.
func (s *Store) Close() {
	s.once.Do(func() { close(s.closed) })
}

// Path returns the document file path.
func (s *Store) Path() string { return s.path }

// enqueue hands the serialized document to the writer and waits for a
// definite outcome. A full queue blocks until there is room, the context
// expires, or the store closes. A save is never silently dropped.
func (s *Store) enqueue(ctx context.Context, data []byte) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}

	req := saveReq{data: data, done: make(chan error, 1)}

	select {
	case s.saves <- req:
	case <-ctx.Done():
		return fmt.Errorf("store: save queue: %w", ctx.Err())
	case <-s.closed:
		return ErrClosed
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		// The write itself still happens; only the caller stops waiting.
		return fmt.Errorf("store: save wait: %w", ctx.Err())
	case <-s.closed:
		// The writer drains queued requests on close. Wait for it to
		// finish: either it answered this request during the drain, or
		// the request landed after the drain and the write never ran.
		<-s.drained
		select {
		case err := <-req.done:
			return err
		default:
			return ErrClosed
		}
	}
}

// writeLoop is the single consumer of the save queue: at most one physical
// write is ever in flight.
func (s *Store) writeLoop() {
	defer close(s.drained)
	for {
		select {
		case req := <-s.saves:
			req.done <- s.writeFile(req.data)
		case <-s.closed:
			// Drain whatever was queued before the close.
			for {
				select {
				case req := <-s.saves:
					req.done <- s.writeFile(req.data)
				default:
					return
				}
			}
		}
	}
}

// writeFile performs one atomic save: backup, temp write, rename, cleanup.
// On failure the main file is restored from the backup before the error is
// surfaced.
func (s *Store) writeFile(data []byte) (err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.ObserveStoreSave(status, start)
	}()

	backup := s.path + ".backup"
	tmp := s.path + ".tmp"

	if _, statErr := os.Stat(s.path); statErr == nil {
		if err = copyFile(s.path, backup); err != nil {
			return fmt.Errorf("store: backup: %w", err)
		}
	}

	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		s.restore(backup)
		return fmt.Errorf("store: write temp: %w", err)
	}

	if err = os.Rename(tmp, s.path); err != nil {
		s.restore(backup)
		return fmt.Errorf("store: rename: %w", err)
	}

	if rmErr := os.Remove(backup); rmErr != nil && !os.IsNotExist(rmErr) {
		logger.Warn("store: could not remove backup", "path", backup, "error", rmErr)
	}

	logger.Debug("store: document saved", "path", s.path, "bytes", len(data))
	return nil
}

func (s *Store) restore(backup string) {
	if _, err := os.Stat(backup); err != nil {
		return
	}
	if err := copyFile(backup, s.path); err != nil {
		logger.Error("store: restore from backup failed", "error", err)
		return
	}
	logger.Info("store: document restored from backup")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// ─── Loading ─────────────────────────────────────────────────────────────────

// load reads the document from disk. Any failure short of a missing file is
// logged and answered with the seeded default: a corrupt database must not
// keep the shop from starting.
func load(path string) *models.Document {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("store: read document, seeding default", "path", path, "error", err)
		}
		return defaultDocument()
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Error("store: document unparsable, seeding default", "path", path, "error", err)
		return defaultDocument()
	}

	if config.StripLegacyCategories() {
		stripLegacyCategories(&doc)
	}

	logger.Info("store: document loaded",
		"products", len(doc.Products), "categories", len(doc.Categories))
	return &doc
}

// stripLegacyCategories clears the category list when any of the original
// seed names is still present, mirroring the one-time migration the shop
// ran for years. Gated by STRIP_LEGACY_CATEGORIES.
func stripLegacyCategories(doc *models.Document) {
	for _, c := range doc.Categories {
		name := strings.ToLower(c.Name)
		for _, legacy := range legacyCategoryNames {
			if name == legacy {
				logger.Info("store: removing legacy seed categories", "count", len(doc.Categories))
				doc.Categories = []models.Category{}
				return
			}
		}
	}
}

func defaultDocument() *models.Document {
	adminHash := config.AdminPasswordHash()
	if adminHash == "" {
		adminHash = auth.LegacyHash("admin123")
	}

	return &models.Document{
		Users: []models.User{
			{ID: 1, Username: config.AdminUsername(), PasswordHash: adminHash, Role: "admin"},
			{ID: 2, Username: "Óscar", PasswordHash: "d66a93e05da92d10ddaf5c55b93f3769613713cc5e3d581c1c6befcbf7cdb16f", Role: "admin"},
			{ID: 3, Username: "Gunnar", PasswordHash: auth.LegacyHash("SESAMO123"), Role: "admin"},
		},
		Categories:  []models.Category{},
		Products:    []models.Product{},
		Orders:      []json.RawMessage{},
		Stats:       models.Stats{},
		ActivityLog: []models.ActivityEntry{},
	}
}
