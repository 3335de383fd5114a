package common

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eip3074_protection_runs_total",
		Help: "Total number of scenario runs",
	}, []string{"network", "status"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eip3074_protection_run_duration_seconds",
		Help:    "Time taken to run the scenario end to end",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"network"})

	GasRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eip3074_protection_gas_ratio",
		Help: "Last gas ratio (txgas / gaslimit * 64) reported by a GasInfo event",
	}, []string{"network", "contract", "method"})

	GasRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eip3074_protection_gas_remaining",
		Help: "Last txgas value reported by a GasInfo event",
	}, []string{"network", "contract", "method"})

	TransactionGasUsed = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eip3074_protection_transaction_gas_used",
		Help:    "Gas used by transactions sent during a run",
		Buckets: prometheus.ExponentialBuckets(21000, 2, 10),
	}, []string{"network", "contract", "method"})

	ProtectedCallResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eip3074_protection_protected_call_results_total",
		Help: "Outcomes of calling the EOA-only method from a contract",
	}, []string{"network", "success"})

	RPCCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eip3074_protection_rpc_call_duration_seconds",
		Help:    "Duration of RPC calls to Ethereum nodes",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"chain_id", "node", "method", "status"})

	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eip3074_protection_rpc_calls_total",
		Help: "Total RPC calls made to Ethereum nodes",
	}, []string{"chain_id", "node", "method", "status"})

	ResultsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eip3074_protection_results_stored_total",
		Help: "Total number of run results written to the result store",
	}, []string{"network", "status"})
)

var (
	LeaderElectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eip3074_protection_leader_election_status",
		Help: "Whether this replica holds the scheduling lock (1) or not (0)",
	}, []string{"node_id"})

	LeaderElectionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eip3074_protection_leader_election_transitions_total",
		Help: "Leadership gained and lost events",
	}, []string{"node_id", "transition"})

	LeaderElectionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eip3074_protection_leader_election_errors_total",
		Help: "Errors acquiring or renewing the scheduling lock",
	}, []string{"node_id", "operation"})
)
