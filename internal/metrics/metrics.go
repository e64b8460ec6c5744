// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accrual_tasks_completed_total",
			Help: "Total number of daily tasks settled",
		},
	)

	CommissionsPaidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accrual_commissions_paid_total",
			Help: "Total number of referral commission credits",
		},
		[]string{"event_type", "level"},
	)

	WheelSpinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accrual_wheel_spins_total",
			Help: "Total number of reward wheel spins",
		},
	)

	WithdrawalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accrual_withdrawal_requests_total",
			Help: "Total number of withdrawal requests by outcome",
		},
		[]string{"status"},
	)

	TxRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accrual_tx_retries_total",
			Help: "Total number of transaction retries after a conflict",
		},
	)
)
