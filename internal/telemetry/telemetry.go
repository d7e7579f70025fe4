package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns its registry so that every service instance, including the
// ones built in tests, counts independently.
type Recorder struct {
	registry *prometheus.Registry

	checkouts        *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
	revenue          *prometheus.CounterVec
	settlements      prometheus.Counter
	settledAmount    prometheus.Counter
	cartNoOps        *prometheus.CounterVec
	stockMovements   *prometheus.CounterVec
	advisorAnswers   *prometheus.CounterVec
	outstanding      prometheus.Gauge
	lowStock         prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		checkouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bangunanpro",
			Name:      "checkouts_total",
			Help:      "Committed transactions by payment method and status.",
		}, []string{"payment_method", "status"}),
		checkoutFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bangunanpro",
			Name:      "checkout_failures_total",
			Help:      "Rejected checkouts by reason.",
		}, []string{"reason"}),
		revenue: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bangunanpro",
			Name:      "revenue_rupiah_total",
			Help:      "Sales value committed, in rupiah.",
		}, []string{"payment_method"}),
		settlements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bangunanpro",
			Name:      "debt_settlements_total",
			Help:      "TEMPO transactions settled.",
		}),
		settledAmount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bangunanpro",
			Name:      "debt_settled_rupiah_total",
			Help:      "Outstanding balance collected through settlement.",
		}),
		cartNoOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bangunanpro",
			Name:      "cart_noops_total",
			Help:      "Cart edits ignored by a stock clamp.",
		}, []string{"operation"}),
		stockMovements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bangunanpro",
			Name:      "stock_units_moved_total",
			Help:      "Units moved in or out of stock.",
		}, []string{"direction"}),
		advisorAnswers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bangunanpro",
			Name:      "advisor_answers_total",
			Help:      "Assistant answers by outcome.",
		}, []string{"outcome"}),
		outstanding: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bangunanpro",
			Name:      "outstanding_debt_rupiah",
			Help:      "Total piutang after the last ledger change.",
		}),
		lowStock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bangunanpro",
			Name:      "low_stock_products",
			Help:      "Products at or below their minimum stock.",
		}),
	}
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) CheckoutCommitted(method, status string, total int64) {
	r.checkouts.WithLabelValues(method, status).Inc()
	r.revenue.WithLabelValues(method).Add(float64(total))
}

func (r *Recorder) CheckoutFailed(reason string) {
	r.checkoutFailures.WithLabelValues(reason).Inc()
}

func (r *Recorder) DebtSettled(amount int64) {
	r.settlements.Inc()
	r.settledAmount.Add(float64(amount))
}

func (r *Recorder) CartNoOp(operation string) {
	r.cartNoOps.WithLabelValues(operation).Inc()
}

func (r *Recorder) StockMoved(units int) {
	if units < 0 {
		r.stockMovements.WithLabelValues("out").Add(float64(-units))
		return
	}
	r.stockMovements.WithLabelValues("in").Add(float64(units))
}

func (r *Recorder) AdvisorAnswered(outcome string) {
	r.advisorAnswers.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SetOutstanding(amount int64) {
	r.outstanding.Set(float64(amount))
}

func (r *Recorder) SetLowStock(count int) {
	r.lowStock.Set(float64(count))
}
