package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once         sync.Once
	filesAdded   *prom.CounterVec
	notFound     *prom.CounterVec
	resolutions  *prom.CounterVec
	taskOutcomes *prom.CounterVec
	taskDuration *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.filesAdded = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "taskfiles",
			Name:      "files_added_total",
			Help:      "Files newly added to a task's input or output set",
		}, []string{"set"})
		pr.notFound = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "taskfiles",
			Name:      "not_found_total",
			Help:      "Operations that failed because a named path did not exist",
		}, []string{"op"})
		pr.resolutions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "taskfiles",
			Name:      "output_resolutions_total",
			Help:      "Registered output resolutions by result",
		}, []string{"result"})
		pr.taskOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "taskfiles",
			Name:      "task_outcomes_total",
			Help:      "Task outcomes by final status",
		}, []string{"result"})
		pr.taskDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "taskfiles",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock duration of a task lifecycle",
			Buckets:   prom.DefBuckets,
		}, []string{"task"})
		reg.MustRegister(pr.filesAdded, pr.notFound, pr.resolutions, pr.taskOutcomes, pr.taskDuration)
	})
	return pr
}

func (p *PrometheusRecorder) IncFilesAdded(set SetLabel) {
	if p == nil || p.filesAdded == nil {
		return
	}
	p.filesAdded.WithLabelValues(string(set)).Inc()
}

func (p *PrometheusRecorder) IncNotFound(op string) {
	if p == nil || p.notFound == nil {
		return
	}
	p.notFound.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) IncResolution(result ResultLabel) {
	if p == nil || p.resolutions == nil {
		return
	}
	p.resolutions.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncTaskOutcome(result ResultLabel) {
	if p == nil || p.taskOutcomes == nil {
		return
	}
	p.taskOutcomes.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil || p.taskDuration == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}
