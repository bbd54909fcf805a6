package http

import (
	"context"
	"time"

	"msgdeck/internal/infrastructure/metrics"
	"msgdeck/internal/infrastructure/scheduler"
)

const jobTimeout = 10 * time.Minute

type meteredJob struct {
	name    string
	job     scheduler.BatchJob
	metrics *metrics.Metrics
}

func (j *meteredJob) Execute(ctx context.Context) (int, error) {
	n, err := j.job.Execute(ctx)
	j.metrics.JobRun(j.name, err)
	return n, err
}
