// Package metrics expone en Prometheus los contadores de folios y timbres de la caja.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/boleta-pos/internal/application/pos"
)

var _ pos.MetricsRecorder = (*Recorder)(nil)

// Recorder implementa pos.MetricsRecorder sobre un registro propio.
type Recorder struct {
	registry     *prometheus.Registry
	foliosIssued *prometheus.CounterVec
	foliosLeft   *prometheus.GaugeVec
	stampErrors  *prometheus.CounterVec
	cafsLoaded   *prometheus.CounterVec
}

// NewRecorder registra las métricas; service y env van como etiquetas constantes.
func NewRecorder(service, env string) *Recorder {
	if service == "" {
		service = "boleta-pos"
	}
	if env == "" {
		env = "unknown"
	}
	constLabels := prometheus.Labels{"service": service, "env": env}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		foliosIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_folios_issued_total",
			Help:        "Documentos foliados y timbrados por tipo de documento.",
			ConstLabels: constLabels,
		}, []string{"sii_code"}),
		foliosLeft: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "pos_folios_remaining",
			Help:        "Folios autorizados restantes tras la última emisión.",
			ConstLabels: constLabels,
		}, []string{"sii_code"}),
		stampErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_stamp_failures_total",
			Help:        "Ventas fiscales que no pudieron foliarse, por motivo.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		cafsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_caf_loaded_total",
			Help:        "Archivos CAF aceptados por tipo de documento.",
			ConstLabels: constLabels,
		}, []string{"sii_code"}),
	}
	r.registry.MustRegister(
		r.foliosIssued, r.foliosLeft, r.stampErrors, r.cafsLoaded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry registro a exponer en /metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// FolioIssued cuenta un documento emitido y actualiza los folios restantes.
func (r *Recorder) FolioIssued(siiCode int, left int64) {
	code := strconv.Itoa(siiCode)
	r.foliosIssued.WithLabelValues(code).Inc()
	r.foliosLeft.WithLabelValues(code).Set(float64(left))
}

// StampFailed cuenta un intento de foliar fallido.
func (r *Recorder) StampFailed(reason string) {
	r.stampErrors.WithLabelValues(reason).Inc()
}

// CafLoaded cuenta un CAF aceptado.
func (r *Recorder) CafLoaded(siiCode int) {
	r.cafsLoaded.WithLabelValues(strconv.Itoa(siiCode)).Inc()
}
