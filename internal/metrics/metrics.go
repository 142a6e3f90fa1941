package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ItemsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_items_processed_total",
			Help: "Queue items completed successfully",
		},
		[]string{"queue"},
	)

	ItemsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_items_failed_total",
			Help: "Queue item handler failures",
		},
		[]string{"queue"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Pending items per queue",
		},
		[]string{"queue"},
	)

	DeliveriesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deliveries_sent_total",
			Help: "Deliveries accepted by the vendor",
		},
	)

	DeliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_failures_total",
			Help: "Deliveries rejected or errored at the vendor",
		},
	)

	ReceiptsReconciled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "receipts_reconciled_total",
			Help: "Receipts applied onto communication logs",
		},
	)

	ReceiptBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "receipt_batches_total",
			Help: "Receipt batch flushes",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		ItemsProcessed,
		ItemsFailed,
		QueueDepth,
		DeliveriesSent,
		DeliveryFailures,
		ReceiptsReconciled,
		ReceiptBatches,
	)
}
