// Package metrics exposes the agent's prometheus collectors.
//
//   - spotbot_cycles_total{result}          cycles by result (ok|error)
//   - spotbot_orders_total{side,result}     orders by side (buy|sell) and result (filled|rejected|error|skipped)
//   - spotbot_last_price                    last observed spot price
//   - spotbot_last_trade_price              price of the last executed trade
//   - spotbot_position                      1 while holding, 0 when flat
//   - spotbot_consecutive_failures          failed cycles since the last healthy one
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Metrics struct {
	cycles         *prometheus.CounterVec
	orders         *prometheus.CounterVec
	lastPrice      prometheus.Gauge
	lastTradePrice prometheus.Gauge
	position       prometheus.Gauge
	failures       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A fresh registry
// is used when reg is nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotbot_cycles_total",
				Help: "Trading cycles by result",
			},
			[]string{"result"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotbot_orders_total",
				Help: "Market orders by side and result",
			},
			[]string{"side", "result"},
		),
		lastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spotbot_last_price",
			Help: "Last observed spot price",
		}),
		lastTradePrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spotbot_last_trade_price",
			Help: "Price of the last executed trade",
		}),
		position: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spotbot_position",
			Help: "1 while holding the base asset, 0 when flat",
		}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spotbot_consecutive_failures",
			Help: "Failed cycles since the last healthy one",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.cycles, m.orders, m.lastPrice, m.lastTradePrice, m.position, m.failures)
	return m
}

func f64(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func (m *Metrics) Cycle(ok bool, consecutiveFailures int) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.cycles.WithLabelValues(result).Inc()
	m.failures.Set(float64(consecutiveFailures))
}

func (m *Metrics) Order(side, result string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(side, result).Inc()
}

func (m *Metrics) Price(px decimal.Decimal) {
	if m == nil {
		return
	}
	m.lastPrice.Set(f64(px))
}

// Position records the holding flag and, when known, the last trade price.
func (m *Metrics) Position(holding bool, lastTrade decimal.NullDecimal) {
	if m == nil {
		return
	}
	if holding {
		m.position.Set(1)
	} else {
		m.position.Set(0)
	}
	if lastTrade.Valid {
		m.lastTradePrice.Set(f64(lastTrade.Decimal))
	}
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	if m != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Serve runs the metrics server on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
