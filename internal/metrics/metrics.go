package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace for all photodrop metrics
const namespace = "photodrop"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo exposes version information as labels (always set to 1)
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// TokenVerifications counts token checks by outcome: ok, malformed, expired, bad_signature
var TokenVerifications = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of upload token verifications by outcome",
	},
	[]string{"outcome"},
)

// TokensIssued counts shareable links handed out
var TokensIssued = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of upload tokens issued",
	},
)

// Uploads counts upload batches by result: success, failure
var Uploads = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of upload batches by result",
	},
	[]string{"result"},
)

// UploadedFiles counts files stored by successful batches
var UploadedFiles = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_files_total",
		Help:      "Total number of files stored",
	},
)

// UploadedBytes counts bytes stored by successful batches
var UploadedBytes = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes_total",
		Help:      "Total number of bytes stored",
	},
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Init records build information
func Init(version, commit, buildDate string) {
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveVerification counts one token check. It has the shape of photodrop.VerificationObserver.
func ObserveVerification(outcome string) {
	TokenVerifications.WithLabelValues(outcome).Inc()
}

// ObserveIssued counts one issued token
func ObserveIssued() {
	TokensIssued.Inc()
}

// UploadRecorder feeds upload batch results into the registry
type UploadRecorder struct{}

// ObserveUpload implements photodrop.Recorder
func (UploadRecorder) ObserveUpload(files int, bytes int64, err error) {
	if err != nil {
		Uploads.WithLabelValues("failure").Inc()
		return
	}
	Uploads.WithLabelValues("success").Inc()
	UploadedFiles.Add(float64(files))
	UploadedBytes.Add(float64(bytes))
}
