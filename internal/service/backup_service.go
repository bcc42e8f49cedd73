package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/vbonduro/jartrack/internal/backup"
	"github.com/vbonduro/jartrack/internal/metrics"
)

// backupRepository is the subset of store.BackupStore that BackupService requires.
type backupRepository interface {
	Export(ctx context.Context) (*backup.Document, error)
	Import(ctx context.Context, doc *backup.Document) (backup.Result, error)
}

type BackupService struct {
	backups backupRepository
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewBackupService(backups backupRepository, recorder metrics.Recorder, logger *slog.Logger) *BackupService {
	return &BackupService{backups: backups, metrics: recorder, logger: logger}
}

func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	doc, err := s.backups.Export(ctx)
	if err != nil {
		return err
	}
	if err := backup.Encode(w, doc); err != nil {
		return err
	}
	s.recordExport(doc)
	return nil
}

// ExportToFile writes the backup to path, replacing it atomically.
func (s *BackupService) ExportToFile(ctx context.Context, path string) error {
	doc, err := s.backups.Export(ctx)
	if err != nil {
		return err
	}
	if err := backup.WriteFile(path, doc); err != nil {
		return err
	}
	s.recordExport(doc)
	s.logger.Info("backup written", "path", path)
	return nil
}

func (s *BackupService) recordExport(doc *backup.Document) {
	s.metrics.RecordExport()
	s.logger.Info("backup exported", "item_types", len(doc.ItemTypes), "jars", len(doc.Jars))
}

// Import replaces the inventory with the document read from r. On any error
// the existing inventory is unchanged.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (backup.Result, error) {
	doc, err := backup.Decode(r)
	if err != nil {
		return s.importFailed(err)
	}
	return s.restore(ctx, doc)
}

func (s *BackupService) ImportFile(ctx context.Context, path string) (backup.Result, error) {
	doc, err := backup.ReadFile(path)
	if err != nil {
		return s.importFailed(err)
	}
	return s.restore(ctx, doc)
}

func (s *BackupService) restore(ctx context.Context, doc *backup.Document) (backup.Result, error) {
	res, err := s.backups.Import(ctx, doc)
	if err != nil {
		return s.importFailed(err)
	}
	s.metrics.RecordImport()
	s.logger.Info("backup imported",
		"item_types", res.ItemTypes,
		"jars", res.Jars,
		"categories", res.Categories,
		"jar_sizes", res.JarSizes,
		"recipes", res.Recipes,
		"batch_recipes", res.BatchRecipes,
	)
	return res, nil
}

func (s *BackupService) importFailed(err error) (backup.Result, error) {
	s.metrics.RecordImportFailure()
	s.logger.Warn("backup import failed", "error", err)
	return backup.Result{}, err
}
