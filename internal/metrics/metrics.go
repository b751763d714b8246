// Package metrics registra os contadores Prometheus do serviço.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa os coletores em um registry próprio.
// Métodos aceitam receptor nil para que componentes funcionem sem métricas.
type Metrics struct {
	Registry *prometheus.Registry

	permissionChecks *prometheus.CounterVec
	gateDecisions    *prometheus.CounterVec
	statusUpdates    *prometheus.CounterVec
	recomputes       *prometheus.CounterVec
	progressValue    prometheus.Histogram
}

// New cria registry dedicado, evitando colisão de coletores entre testes.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		permissionChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projetos_permission_checks_total",
				Help: "Permission checks resolved, by domain and result.",
			},
			[]string{"domain", "result"},
		),
		gateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projetos_gate_decisions_total",
				Help: "Mutation gate decisions, by action and result.",
			},
			[]string{"action", "result"},
		),
		statusUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projetos_task_status_updates_total",
				Help: "Task status updates, by outcome.",
			},
			[]string{"outcome"},
		),
		recomputes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "projetos_progress_recomputes_total",
				Help: "Project progress recomputations, by outcome.",
			},
			[]string{"outcome"},
		),
		progressValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "projetos_progress_percentage",
				Help:    "Progress percentages written by recomputation.",
				Buckets: []float64{0, 10, 25, 50, 75, 90, 100},
			},
		),
	}
}

// Handler expõe o registry no formato de exposição do Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// PermissionCheck conta uma resolução de permissão.
func (m *Metrics) PermissionCheck(domain string, allowed bool) {
	if m == nil {
		return
	}
	m.permissionChecks.WithLabelValues(domain, result(allowed)).Inc()
}

// GateDecision conta uma decisão de edição/exclusão.
func (m *Metrics) GateDecision(action string, allowed bool) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(action, result(allowed)).Inc()
}

// StatusUpdate conta uma atualização de status de tarefa.
func (m *Metrics) StatusUpdate(outcome string) {
	if m == nil {
		return
	}
	m.statusUpdates.WithLabelValues(outcome).Inc()
}

// Recompute conta um recálculo de progresso e registra o valor gravado.
func (m *Metrics) Recompute(outcome string, percentage int) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.progressValue.Observe(float64(percentage))
	}
}

func result(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}
