// Package metrics exposes game activity as Prometheus metrics.
//
//	stepper_trades_total{direction,reason}  closed trades (partial closes count)
//	stepper_realized_pnl_dollars            sum of realized pnl
//	stepper_balance_dollars                 current balance
//	stepper_turns_total                     candles revealed
//	stepper_orders_total{kind}              limit orders placed
//	stepper_episodes_total                  episodes started
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stepper"

// Collector owns its registry so several engines (and tests) can coexist
// in one process.
type Collector struct {
	reg *prometheus.Registry

	trades   *prometheus.CounterVec
	pnl      prometheus.Gauge
	balance  prometheus.Gauge
	turns    prometheus.Counter
	orders   *prometheus.CounterVec
	episodes prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Closed trades by direction and close reason",
			},
			[]string{"direction", "reason"},
		),
		pnl: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realized_pnl_dollars",
			Help:      "Sum of realized pnl since the process started",
		}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "balance_dollars",
			Help:      "Current session balance",
		}),
		turns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Candles revealed",
		}),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_total",
				Help:      "Limit orders placed by kind",
			},
			[]string{"kind"},
		),
		episodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_total",
			Help:      "Episodes started",
		}),
	}
	c.reg.MustRegister(c.trades, c.pnl, c.balance, c.turns, c.orders, c.episodes)
	return c
}

func (c *Collector) TradeClosed(direction, reason string, pnl float64) {
	c.trades.WithLabelValues(direction, reason).Inc()
	c.pnl.Add(pnl)
}

func (c *Collector) Balance(v float64) { c.balance.Set(v) }

func (c *Collector) TurnAdvanced() { c.turns.Inc() }

func (c *Collector) OrderPlaced(kind string) { c.orders.WithLabelValues(kind).Inc() }

func (c *Collector) EpisodeStarted() { c.episodes.Inc() }

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler serves the registry in the text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}
