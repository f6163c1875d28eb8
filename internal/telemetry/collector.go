package telemetry

import (
	"fmt"

	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/rollout"
	"github.com/danielpatrickdp/safe-marl/go-trainer/internal/update"
	"github.com/prometheus/client_golang/prometheus"
)

// #region collector
// Collector holds the Prometheus metrics of one training run on its own registry.
//
// Metrics:
//   - safemarl_train_episodes_total
//   - safemarl_train_episode_reward
//   - safemarl_train_collisions_total
//   - safemarl_train_interventions_total
//   - safemarl_train_infeasible_episodes_total
//   - safemarl_train_update_passes_total
//   - safemarl_train_update_cycle_seconds
//   - safemarl_eval_return (by episode) and safemarl_eval_mean_return
type Collector struct {
	registry *prometheus.Registry

	episodes      prometheus.Counter
	episodeReward prometheus.Gauge
	collisions    prometheus.Counter
	interventions prometheus.Counter
	infeasible    prometheus.Counter
	updatePasses  prometheus.Counter
	updateSeconds prometheus.Histogram
	evalReturn    *prometheus.GaugeVec
	evalMean      prometheus.Gauge
}

// NewCollector creates and registers the run metrics.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "safemarl"
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		episodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "train", Name: "episodes_total",
			Help: "Training episodes completed",
		}),
		episodeReward: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "train", Name: "episode_reward",
			Help: "Reward of the most recent training episode",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "train", Name: "collisions_total",
			Help: "Pairwise agent collisions during training",
		}),
		interventions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "train", Name: "interventions_total",
			Help: "Actions changed by the safety layer during training",
		}),
		infeasible: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "train", Name: "infeasible_episodes_total",
			Help: "Training episodes in which the safety layer could not satisfy every constraint",
		}),
		updatePasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "train", Name: "update_passes_total",
			Help: "Agent update calls completed",
		}),
		updateSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "train", Name: "update_cycle_seconds",
			Help:    "Duration of update cycles",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		evalReturn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "eval", Name: "return",
			Help: "Return of each evaluation episode",
		}, []string{"episode"}),
		evalMean: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "eval", Name: "mean_return",
			Help: "Mean return across evaluation episodes",
		}),
	}
	c.registry.MustRegister(c.episodes, c.episodeReward, c.collisions, c.interventions,
		c.infeasible, c.updatePasses, c.updateSeconds, c.evalReturn, c.evalMean)
	return c
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// #endregion collector

// #region observe
// ObserveEpisode records a completed training episode.
func (c *Collector) ObserveEpisode(res rollout.EpisodeResult) {
	c.episodes.Inc()
	c.episodeReward.Set(res.Reward)
	c.collisions.Add(float64(res.Collisions))
	c.interventions.Add(float64(res.Interventions))
	if res.Infeasible {
		c.infeasible.Inc()
	}
}

// ObserveUpdate records an update cycle. Skipped cycles are ignored.
func (c *Collector) ObserveUpdate(cycle update.Cycle) {
	if cycle.Decision.Action != "update" {
		return
	}
	c.updatePasses.Add(float64(cycle.Metrics.Passes))
	c.updateSeconds.Observe(float64(cycle.Metrics.UpdateTimeMs) / 1000)
}

// ObserveEval records the evaluation returns and their mean.
func (c *Collector) ObserveEval(returns []float64, mean float64) {
	for i, r := range returns {
		c.evalReturn.WithLabelValues(fmt.Sprint(i)).Set(r)
	}
	c.evalMean.Set(mean)
}

// WriteTextfile writes the registry in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// #endregion observe
