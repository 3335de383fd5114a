package ethereum

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	deploymentsTotal  *prometheus.CounterVec
	transactionsTotal *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	once            sync.Once
)

func GetMetricsInstance(namespace string) *Metrics {
	once.Do(func() {
		metricsInstance = &Metrics{
			deploymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deployments_total",
				Help:      "Total number of contract deployments",
			}, []string{"contract", "status"}),
			transactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of contract transactions",
			}, []string{"contract", "method", "status"}),
		}

		prometheus.MustRegister(metricsInstance.deploymentsTotal, metricsInstance.transactionsTotal)
	})

	return metricsInstance
}

func (m *Metrics) IncDeployments(contract, status string) {
	if m == nil || m.deploymentsTotal == nil {
		return
	}

	m.deploymentsTotal.WithLabelValues(contract, status).Inc()
}

func (m *Metrics) IncTransactions(contract, method, status string) {
	if m == nil || m.transactionsTotal == nil {
		return
	}

	m.transactionsTotal.WithLabelValues(contract, method, status).Inc()
}
