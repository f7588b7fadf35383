package metrics

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Execution outcomes used as the "outcome" label
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomePartial  = "partial"
	OutcomeLoss     = "loss"
)

// AgentMetrics tracks scanning and execution activity of the agent
type AgentMetrics struct {
	Scans          prometheus.Counter
	PairsEvaluated prometheus.Counter
	Opportunities  prometheus.Counter
	Executions     *prometheus.CounterVec
	RealizedProfit prometheus.Counter
	RealizedLoss   prometheus.Counter
	Active         prometheus.Gauge
	ExecutionTime  prometheus.Histogram
	AuditFailures  prometheus.Counter
}

// NewAgentMetrics registers the agent metrics on reg
func NewAgentMetrics(reg prometheus.Registerer, namespace string) *AgentMetrics {
	factory := promauto.With(reg)
	return &AgentMetrics{
		Scans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of opportunity scans",
		}),
		PairsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_evaluated_total",
			Help:      "Total number of asset pairs priced on both venues",
		}),
		Opportunities: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Total number of opportunities above the profit threshold",
		}),
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Arbitrage executions by outcome",
		}, []string{"outcome"}),
		RealizedProfit: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realized_profit_tokens_total",
			Help:      "Sum of realized profit in whole tokens (18 decimals)",
		}),
		RealizedLoss: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realized_loss_tokens_total",
			Help:      "Sum of realized losses in whole tokens (18 decimals)",
		}),
		Active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active",
			Help:      "1 while the agent accepts scans and executions",
		}),
		ExecutionTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_seconds",
			Help:      "Time spent executing both legs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit records that could not be written",
		}),
	}
}

var tokenScale = new(big.Float).SetInt(big.NewInt(1e18))

// Tokens converts an 18-decimal base-unit amount into whole tokens for float
// counters
func Tokens(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), tokenScale).Float64()
	return f
}

// Serve exposes /metrics and /healthz on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, log *zap.Logger) {
	if addr == "" {
		log.Info("metrics disabled: empty addr")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("metrics server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown error", zap.Error(err))
		} else {
			log.Info("metrics server stopped")
		}
	}()
}

// Handler returns the scrape handler for reg, or the default registry when reg is nil
func Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
