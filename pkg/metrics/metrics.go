package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	corpusIngest = "corpus_ingest"

	stageOutcomesTotal = "stage_outcomes_total"
	jobsCreatedTotal   = "jobs_created_total"

	stageLabel   = "stage"
	outcomeLabel = "outcome"
)

var stageOutcomeLabels = []string{
	stageLabel,
	outcomeLabel,
}

var stageOutcomesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: corpusIngest,
		Name:      stageOutcomesTotal,
		Help:      "number of stage executions partitioned by stage and outcome",
	},
	stageOutcomeLabels,
)

var jobsCreatedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: corpusIngest,
		Name:      jobsCreatedTotal,
		Help:      "number of ingest jobs created",
	},
)

func IncreaseStageOutcomeMetric(stage string, outcome string) {
	stageOutcomesTotalMetric.With(prometheus.Labels{
		stageLabel:   stage,
		outcomeLabel: outcome,
	}).Inc()
}

func IncreaseJobsCreatedMetric() {
	jobsCreatedTotalMetric.Inc()
}

func init() {
	prometheus.MustRegister(stageOutcomesTotalMetric)
	prometheus.MustRegister(jobsCreatedTotalMetric)
}
