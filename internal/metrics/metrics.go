package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts the service's storage and sweep activity. The
// unmanaged counter tracks entries whose age cannot be determined
// (neither manifest row nor decodable name); those files are never
// cleaned up, so the counter is the only visibility into that leak.
type Metrics interface {
	IncUploads()
	IncSweeps()
	IncDeleted()
	IncUnmanaged()
	IncSweepErrors()
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncUploads()     {}
func (Noop) IncSweeps()      {}
func (Noop) IncDeleted()     {}
func (Noop) IncUnmanaged()   {}
func (Noop) IncSweepErrors() {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	uploads     prometheus.Counter
	sweeps      prometheus.Counter
	deleted     prometheus.Counter
	unmanaged   prometheus.Counter
	sweepErrors prometheus.Counter
	once        sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Files accepted for upload",
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Cleanup sweeps executed",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_deleted_total",
			Help:      "Expired entries removed by the sweeper",
		}),
		unmanaged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_unmanaged_total",
			Help:      "Entries skipped because their upload time is unknown",
		}),
		sweepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
			Help:      "Per-entry or listing failures during sweeps",
		}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.uploads, p.sweeps, p.deleted, p.unmanaged, p.sweepErrors)
	})
}

func (p *Prom) IncUploads()     { p.uploads.Inc() }
func (p *Prom) IncSweeps()      { p.sweeps.Inc() }
func (p *Prom) IncDeleted()     { p.deleted.Inc() }
func (p *Prom) IncUnmanaged()   { p.unmanaged.Inc() }
func (p *Prom) IncSweepErrors() { p.sweepErrors.Inc() }

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
