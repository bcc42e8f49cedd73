// Package metrics counts inventory operations with Prometheus collectors.
// Nothing here listens on the network; callers gather from the registry they
// pass in.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the subset of Collector the service layer depends on.
type Recorder interface {
	RecordJarsCreated(n int)
	RecordJarUsed()
	RecordDuplicateScan()
	RecordJarsDeleted(n int)
	RecordBatchDeleted()
	RecordExport()
	RecordImport()
	RecordImportFailure()
	RecordReconnect()
}

type Collector struct {
	jarsCreated    prometheus.Counter
	jarsUsed       prometheus.Counter
	duplicateScans prometheus.Counter
	jarsDeleted    prometheus.Counter
	batchesDeleted prometheus.Counter
	backups        *prometheus.CounterVec
	importFailures prometheus.Counter
	reconnects     prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jarsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jartrack_jars_created_total",
			Help: "Jars inserted by batch creation or extension.",
		}),
		jarsUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jartrack_jars_used_total",
			Help: "Jars transitioned from available to used.",
		}),
		duplicateScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jartrack_duplicate_scans_total",
			Help: "Mark-used requests for jars that were already used.",
		}),
		jarsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jartrack_jars_deleted_total",
			Help: "Jars removed individually, by batch, or by item type cascade.",
		}),
		batchesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jartrack_batches_deleted_total",
			Help: "Batches that ceased to exist because their last jar was removed.",
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jartrack_backups_total",
			Help: "Backup documents produced or restored, by direction.",
		}, []string{"direction"}),
		importFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jartrack_import_failures_total",
			Help: "Restores rejected or rolled back.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jartrack_storage_reconnects_total",
			Help: "Times the storage handle was reopened after invalidation.",
		}),
	}

	reg.MustRegister(
		c.jarsCreated,
		c.jarsUsed,
		c.duplicateScans,
		c.jarsDeleted,
		c.batchesDeleted,
		c.backups,
		c.importFailures,
		c.reconnects,
	)
	return c
}

func (c *Collector) RecordJarsCreated(n int) { c.jarsCreated.Add(float64(n)) }

func (c *Collector) RecordJarUsed() { c.jarsUsed.Inc() }

func (c *Collector) RecordDuplicateScan() { c.duplicateScans.Inc() }

func (c *Collector) RecordJarsDeleted(n int) { c.jarsDeleted.Add(float64(n)) }

func (c *Collector) RecordBatchDeleted() { c.batchesDeleted.Inc() }

func (c *Collector) RecordExport() { c.backups.WithLabelValues("export").Inc() }

func (c *Collector) RecordImport() { c.backups.WithLabelValues("import").Inc() }

func (c *Collector) RecordImportFailure() { c.importFailures.Inc() }

func (c *Collector) RecordReconnect() { c.reconnects.Inc() }

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordJarsCreated(int) {}
func (Nop) RecordJarUsed()        {}
func (Nop) RecordDuplicateScan()  {}
func (Nop) RecordJarsDeleted(int) {}
func (Nop) RecordBatchDeleted()   {}
func (Nop) RecordExport()         {}
func (Nop) RecordImport()         {}
func (Nop) RecordImportFailure()  {}
func (Nop) RecordReconnect()      {}
