package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vbonduro/jartrack/internal/db"
	"github.com/vbonduro/jartrack/internal/domain"
	"github.com/vbonduro/jartrack/internal/store"
)

// stubImageStore is a minimal in-memory imagestore.ImageStore for tests.
type stubImageStore struct {
	saved   map[string][]byte
	n       int
	saveErr error
}

func newStubImageStore() *stubImageStore {
	return &stubImageStore{saved: make(map[string][]byte)}
}

func (s *stubImageStore) Save(_ context.Context, prefix, _ string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.n++
	key := prefix + "_" + string(rune('a'+s.n)) + ".jpg"
	s.saved[key] = data
	return key, nil
}

func (s *stubImageStore) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := s.saved[key]
	if !ok {
		return nil, "", domain.NotFound("image", key)
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (s *stubImageStore) Delete(_ context.Context, key string) error {
	if _, ok := s.saved[key]; !ok {
		return domain.NotFound("image", key)
	}
	delete(s.saved, key)
	return nil
}

// countingRecorder tallies metrics.Recorder calls.
type countingRecorder struct {
	created, used, duplicates, deleted, batchesDeleted int
	exports, imports, importFailures, reconnects       int
}

func (r *countingRecorder) RecordJarsCreated(n int) { r.created += n }
func (r *countingRecorder) RecordJarUsed()          { r.used++ }
func (r *countingRecorder) RecordDuplicateScan()    { r.duplicates++ }
func (r *countingRecorder) RecordJarsDeleted(n int) { r.deleted += n }
func (r *countingRecorder) RecordBatchDeleted()     { r.batchesDeleted++ }
func (r *countingRecorder) RecordExport()           { r.exports++ }
func (r *countingRecorder) RecordImport()           { r.imports++ }
func (r *countingRecorder) RecordImportFailure()    { r.importFailures++ }
func (r *countingRecorder) RecordReconnect()        { r.reconnects++ }

type testServices struct {
	inventory *InventoryService
	catalog   *CatalogService
	backups   *BackupService
	images    *stubImageStore
	metrics   *countingRecorder
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	images := newStubImageStore()
	rec := &countingRecorder{}
	logger := slog.Default()

	s := &testServices{
		inventory: NewInventoryService(
			store.NewItemTypeStore(d),
			store.NewJarStore(d, 0),
			store.NewStatsStore(d),
			rec,
			logger,
			Options{RunningLowThreshold: 2, DefaultLocation: "Pantry"},
		),
		catalog: NewCatalogService(
			store.NewCategoryStore(d),
			store.NewJarSizeStore(d),
			store.NewRecipeStore(d),
			images,
			logger,
		),
		backups: NewBackupService(store.NewBackupStore(d), rec, logger),
		images:  images,
		metrics: rec,
	}
	require.NoError(t, s.catalog.SeedDefaults(context.Background()))
	return s
}

func (s *testServices) batch(t *testing.T, name string, fillDate string, quantity int) *domain.Batch {
	t.Helper()
	b, err := s.inventory.CreateBatch(context.Background(), CreateBatchRequest{
		Name:     name,
		Category: "jams",
		FillDate: fillDate,
		Quantity: quantity,
		JarSize:  "8 oz",
	})
	require.NoError(t, err)
	return b
}
