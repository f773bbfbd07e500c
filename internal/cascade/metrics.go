package cascade

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/anand-fs/plantrack/internal/models"
)

var (
	cascadePreviews = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plantrack",
		Subsystem: "cascade",
		Name:      "previews_total",
		Help:      "Total number of cascade previews broken down by root type.",
	}, []string{"root"})

	cascadeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plantrack",
		Subsystem: "cascade",
		Name:      "executions_total",
		Help:      "Total number of cascade executions broken down by root type and outcome.",
	}, []string{"root", "outcome"})

	cascadeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plantrack",
		Subsystem: "cascade",
		Name:      "transitions_total",
		Help:      "Total number of entities transitioned by cascades broken down by entity type.",
	}, []string{"entity"})
)

func recordPreview(root models.EntityType) {
	cascadePreviews.WithLabelValues(string(root)).Inc()
}

func recordExecution(root models.EntityType, outcome string) {
	if outcome == "" {
		outcome = "other"
	}
	cascadeExecutions.WithLabelValues(string(root), outcome).Inc()
}

func recordTransitions(summary Summary) {
	cascadeTransitions.WithLabelValues(string(models.EntityPlan)).Add(float64(summary.Plans))
	cascadeTransitions.WithLabelValues(string(models.EntityMilestone)).Add(float64(summary.Milestones))
	cascadeTransitions.WithLabelValues(string(models.EntityInitiative)).Add(float64(summary.Initiatives))
}
