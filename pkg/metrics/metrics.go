package metrics

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/autobrr/dupefind/pkg/checksum"
	"github.com/autobrr/dupefind/pkg/finder"
)

const namespace = "dupefind"

// Scan holds the gauges describing the last scan, registered on a private
// registry so they can be written as a node_exporter textfile.
type Scan struct {
	registry *prometheus.Registry

	filesFound   prometheus.Gauge
	dirsSearched prometheus.Gauge
	filesIgnored prometheus.Gauge
	groups       prometheus.Gauge
	duplicates   prometheus.Gauge
	wastedBytes  prometheus.Gauge
	duration     prometheus.Gauge
	lastSuccess  prometheus.Gauge
	cacheLookups *prometheus.GaugeVec
}

func New() *Scan {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	gauge := func(name string, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      name,
			Help:      help,
		})
	}

	return &Scan{
		registry:     reg,
		filesFound:   gauge("files_found", "Number of candidate files found"),
		dirsSearched: gauge("dirs_searched", "Number of directories searched"),
		filesIgnored: gauge("files_ignored", "Number of files that could not be checksummed"),
		groups:       gauge("duplicate_groups", "Number of groups of identical files"),
		duplicates:   gauge("duplicate_files", "Number of files identical to another file"),
		wastedBytes:  gauge("wasted_bytes", "Bytes taken by duplicate files"),
		duration:     gauge("duration_seconds", "Duration of the scan in seconds"),
		lastSuccess:  gauge("last_success_timestamp_seconds", "Unix time the last scan finished"),
		cacheLookups: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "checksum_cache",
			Name:      "lookups",
			Help:      "Checksum cache lookups by result",
		}, []string{"result"}),
	}
}

// Observe records the outcome of a finished scan.
func (s *Scan) Observe(res *finder.Result, stats checksum.CacheStats) {
	o := res.Outcome

	s.filesFound.Set(float64(o.FoundFileCount))
	s.dirsSearched.Set(float64(o.SearchedDirCount))
	s.filesIgnored.Set(float64(o.IgnoredCount))
	s.groups.Set(float64(len(res.Groups)))
	s.duplicates.Set(float64(o.DuplicateFileCount))
	s.wastedBytes.Set(float64(o.WastedBytes))
	s.duration.Set(o.Elapsed.Seconds())
	s.lastSuccess.SetToCurrentTime()

	s.cacheLookups.WithLabelValues("hit").Set(float64(stats.Hits))
	s.cacheLookups.WithLabelValues("computed").Set(float64(stats.Computed))
	s.cacheLookups.WithLabelValues("failure").Set(float64(stats.Failures))
}

// WriteTextfile writes all metrics to path in the prometheus text format.
func (s *Scan) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create metrics directory")
	}

	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return errors.Wrapf(err, "write metrics textfile %q", path)
	}

	return nil
}

func (s *Scan) Registry() *prometheus.Registry {
	return s.registry
}
