package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/jartrack/internal/domain"
	"github.com/vbonduro/jartrack/internal/label"
	"github.com/vbonduro/jartrack/internal/metrics"
	"github.com/vbonduro/jartrack/internal/store"
)

// itemTypeRepository is the subset of store.ItemTypeStore that InventoryService requires.
type itemTypeRepository interface {
	Upsert(ctx context.Context, t *domain.ItemType) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.ItemType, error)
	List(ctx context.Context) ([]*domain.ItemType, error)
	Delete(ctx context.Context, id int64) (store.ItemTypeDeleted, error)
}

// jarRepository is the subset of store.JarStore that InventoryService requires.
type jarRepository interface {
	CreateBatch(ctx context.Context, nb store.NewBatch) (*store.BatchCreated, error)
	AddJarsToBatch(ctx context.Context, batchID string, add store.AddJars) ([]int64, error)
	UpdateBatch(ctx context.Context, batchID string, u store.BatchUpdate) (int, error)
	DeleteBatch(ctx context.Context, batchID string) (int, error)
	MarkUsed(ctx context.Context, jarID int64) (store.MarkUsedResult, error)
	DeleteJar(ctx context.Context, jarID int64) (store.DeleteJarResult, error)
	GetJar(ctx context.Context, id int64) (*domain.Jar, error)
	GetBatch(ctx context.Context, batchID string) (*domain.Batch, error)
	ListBatches(ctx context.Context) ([]*domain.Batch, error)
	ListByBatch(ctx context.Context, batchID string) ([]*domain.Jar, error)
	ListByItemType(ctx context.Context, itemTypeID int64) ([]*domain.Jar, error)
}

// statsRepository is the subset of store.StatsStore that InventoryService requires.
type statsRepository interface {
	JarStats(ctx context.Context) (domain.JarStats, error)
	ItemStock(ctx context.Context) ([]domain.ItemStock, error)
	RunningLow(ctx context.Context, threshold int) ([]domain.ItemStock, error)
	OutOfStock(ctx context.Context) ([]domain.ItemStock, error)
	YearlyTotals(ctx context.Context) ([]domain.PeriodTotals, error)
	MonthlyTotals(ctx context.Context, year string) ([]domain.PeriodTotals, error)
	CategoryBreakdown(ctx context.Context, dim domain.Dimension, year string) ([]domain.GroupTotals, error)
	ItemTypeBreakdown(ctx context.Context, dim domain.Dimension, year string) ([]domain.GroupTotals, error)
	Locations(ctx context.Context) ([]domain.LocationStock, error)
}

type Options struct {
	RunningLowThreshold int
	DefaultLocation     string
}

// InventoryService covers item types, batches, jars, label scans and stock
// statistics.
type InventoryService struct {
	itemTypes itemTypeRepository
	jars      jarRepository
	stats     statsRepository
	metrics   metrics.Recorder
	logger    *slog.Logger
	opts      Options
}

func NewInventoryService(
	itemTypes itemTypeRepository,
	jars jarRepository,
	stats statsRepository,
	recorder metrics.Recorder,
	logger *slog.Logger,
	opts Options,
) *InventoryService {
	if opts.RunningLowThreshold < 1 {
		opts.RunningLowThreshold = 2
	}
	return &InventoryService{
		itemTypes: itemTypes,
		jars:      jars,
		stats:     stats,
		metrics:   recorder,
		logger:    logger,
		opts:      opts,
	}
}

// CreateBatchRequest names the item type rather than referencing it; a new
// name creates the item type in Category.
type CreateBatchRequest struct {
	Name     string
	Category string
	FillDate string
	Quantity int
	JarSize  string
	Location string
	RecipeID *int64
}

func (s *InventoryService) CreateBatch(ctx context.Context, req CreateBatchRequest) (*domain.Batch, error) {
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = s.opts.DefaultLocation
	}
	created, err := s.jars.CreateBatch(ctx, store.NewBatch{
		ItemTypeName: req.Name,
		Category:     req.Category,
		FillDate:     req.FillDate,
		Quantity:     req.Quantity,
		JarSize:      req.JarSize,
		Location:     location,
		RecipeID:     req.RecipeID,
	})
	if err != nil {
		s.logger.Warn("create batch failed", "item_type", req.Name, "quantity", req.Quantity, "error", err)
		return nil, err
	}
	s.metrics.RecordJarsCreated(len(created.JarIDs))
	s.logger.Info("batch created", "batch_id", created.BatchID, "item_type", created.ItemType.Name, "jars", len(created.JarIDs))

	return s.GetBatch(ctx, created.BatchID)
}

func (s *InventoryService) AddJarsToBatch(ctx context.Context, batchID string, add store.AddJars) (*domain.Batch, error) {
	ids, err := s.jars.AddJarsToBatch(ctx, batchID, add)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordJarsCreated(len(ids))
	s.logger.Info("jars added to batch", "batch_id", batchID, "jars", len(ids))
	return s.GetBatch(ctx, batchID)
}

func (s *InventoryService) UpdateBatch(ctx context.Context, batchID string, u store.BatchUpdate) (*domain.Batch, error) {
	n, err := s.jars.UpdateBatch(ctx, batchID, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("batch updated", "batch_id", batchID, "jars", n)
	return s.GetBatch(ctx, batchID)
}

func (s *InventoryService) DeleteBatch(ctx context.Context, batchID string) (int, error) {
	n, err := s.jars.DeleteBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordJarsDeleted(n)
	s.metrics.RecordBatchDeleted()
	s.logger.Info("batch deleted", "batch_id", batchID, "jars", n)
	return n, nil
}

func (s *InventoryService) ListBatches(ctx context.Context) ([]*domain.Batch, error) {
	return s.jars.ListBatches(ctx)
}

func (s *InventoryService) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	b, err := s.jars.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.NotFound("batch", batchID)
	}
	return b, nil
}

func (s *InventoryService) ListBatchJars(ctx context.Context, batchID string) ([]*domain.Jar, error) {
	return s.jars.ListByBatch(ctx, batchID)
}

func (s *InventoryService) GetJar(ctx context.Context, id int64) (*domain.Jar, error) {
	j, err := s.jars.GetJar(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, domain.NotFound("jar", id)
	}
	return j, nil
}

// MarkJarUsed marks the jar used. A repeat on an already used jar is
// reported in the result, not as an error.
func (s *InventoryService) MarkJarUsed(ctx context.Context, id int64) (store.MarkUsedResult, error) {
	res, err := s.jars.MarkUsed(ctx, id)
	if err != nil {
		return res, err
	}
	if res.Success {
		s.metrics.RecordJarUsed()
		s.logger.Info("jar marked used", "jar_id", id, "used_date", res.UsedDate)
	} else {
		s.metrics.RecordDuplicateScan()
		s.logger.Debug("jar already used", "jar_id", id, "used_date", res.UsedDate)
	}
	return res, nil
}

func (s *InventoryService) DeleteJar(ctx context.Context, id int64) (store.DeleteJarResult, error) {
	res, err := s.jars.DeleteJar(ctx, id)
	if err != nil {
		return res, err
	}
	s.metrics.RecordJarsDeleted(1)
	if res.BatchDeleted {
		s.metrics.RecordBatchDeleted()
	}
	s.logger.Info("jar deleted", "jar_id", id, "batch_id", res.BatchID, "batch_deleted", res.BatchDeleted)
	return res, nil
}

// JarLabel returns the QR payload for an existing jar.
func (s *InventoryService) JarLabel(ctx context.Context, id int64) (string, error) {
	if _, err := s.GetJar(ctx, id); err != nil {
		return "", err
	}
	return label.Encode(id), nil
}

// ScanResult is the outcome of reading a label. Recognized is false for
// payloads that are not jar labels.
type ScanResult struct {
	Recognized bool
	Jar        *domain.Jar
	Batch      *domain.Batch
}

// Scan resolves a scanned payload to its jar. A label for a jar that has
// since been deleted returns ErrNotFound.
func (s *InventoryService) Scan(ctx context.Context, payload string) (*ScanResult, error) {
	id, ok := label.Decode(payload)
	if !ok {
		s.logger.Debug("label not recognized", "bytes", len(payload))
		return &ScanResult{}, nil
	}
	j, err := s.GetJar(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := s.GetBatch(ctx, j.BatchID)
	if err != nil {
		return nil, err
	}
	return &ScanResult{Recognized: true, Jar: j, Batch: b}, nil
}

// UseScannedJar scans payload and marks the jar used when recognized.
func (s *InventoryService) UseScannedJar(ctx context.Context, payload string) (*ScanResult, store.MarkUsedResult, error) {
	scan, err := s.Scan(ctx, payload)
	if err != nil || !scan.Recognized {
		return scan, store.MarkUsedResult{Message: "label not recognized"}, err
	}
	res, err := s.MarkJarUsed(ctx, scan.Jar.ID)
	if err != nil {
		return nil, res, err
	}
	if res.Success {
		if scan, err = s.Scan(ctx, payload); err != nil {
			return nil, res, err
		}
	}
	return scan, res, nil
}

func (s *InventoryService) ListItemTypes(ctx context.Context) ([]*domain.ItemType, error) {
	return s.itemTypes.List(ctx)
}

func (s *InventoryService) GetItemType(ctx context.Context, id int64) (*domain.ItemType, error) {
	t, err := s.itemTypes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NotFound("item type", id)
	}
	return t, nil
}

func (s *InventoryService) SaveItemType(ctx context.Context, t *domain.ItemType) (*domain.ItemType, error) {
	id, err := s.itemTypes.Upsert(ctx, t)
	if err != nil {
		return nil, err
	}
	return s.GetItemType(ctx, id)
}

// DeleteItemType removes the item type and all of its jars.
func (s *InventoryService) DeleteItemType(ctx context.Context, id int64) (int, error) {
	removed, err := s.itemTypes.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordJarsDeleted(removed.Jars)
	for range removed.Batches {
		s.metrics.RecordBatchDeleted()
	}
	s.logger.Info("item type deleted", "item_type_id", id, "jars_removed", removed.Jars, "batches_removed", removed.Batches)
	return removed.Jars, nil
}

func (s *InventoryService) ListItemTypeJars(ctx context.Context, itemTypeID int64) ([]*domain.Jar, error) {
	return s.jars.ListByItemType(ctx, itemTypeID)
}

// Dashboard is the at-a-glance summary.
type Dashboard struct {
	Stats      domain.JarStats
	Threshold  int
	RunningLow []domain.ItemStock
	OutOfStock []domain.ItemStock
}

func (s *InventoryService) Dashboard(ctx context.Context) (*Dashboard, error) {
	stats, err := s.stats.JarStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get jar stats: %w", err)
	}
	low, err := s.stats.RunningLow(ctx, s.opts.RunningLowThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to get running low: %w", err)
	}
	out, err := s.stats.OutOfStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get out of stock: %w", err)
	}
	return &Dashboard{
		Stats:      stats,
		Threshold:  s.opts.RunningLowThreshold,
		RunningLow: low,
		OutOfStock: out,
	}, nil
}

// RunningLow uses the configured threshold when threshold is zero.
func (s *InventoryService) RunningLow(ctx context.Context, threshold int) ([]domain.ItemStock, error) {
	if threshold == 0 {
		threshold = s.opts.RunningLowThreshold
	}
	return s.stats.RunningLow(ctx, threshold)
}

func (s *InventoryService) OutOfStock(ctx context.Context) ([]domain.ItemStock, error) {
	return s.stats.OutOfStock(ctx)
}

func (s *InventoryService) ItemStock(ctx context.Context) ([]domain.ItemStock, error) {
	return s.stats.ItemStock(ctx)
}

func (s *InventoryService) YearlyTotals(ctx context.Context) ([]domain.PeriodTotals, error) {
	return s.stats.YearlyTotals(ctx)
}

func (s *InventoryService) MonthlyTotals(ctx context.Context, year string) ([]domain.PeriodTotals, error) {
	return s.stats.MonthlyTotals(ctx, year)
}

func (s *InventoryService) CategoryBreakdown(ctx context.Context, dim domain.Dimension, year string) ([]domain.GroupTotals, error) {
	return s.stats.CategoryBreakdown(ctx, dim, year)
}

func (s *InventoryService) ItemTypeBreakdown(ctx context.Context, dim domain.Dimension, year string) ([]domain.GroupTotals, error) {
	return s.stats.ItemTypeBreakdown(ctx, dim, year)
}

func (s *InventoryService) Locations(ctx context.Context) ([]domain.LocationStock, error) {
	return s.stats.Locations(ctx)
}
