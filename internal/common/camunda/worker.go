// internal/common/camunda/worker.go
package camunda

import (
	"context"
	stderrors "errors"
	"time"

	"edu-content-workers/internal/common/config"
	"edu-content-workers/internal/common/errors"
	"edu-content-workers/internal/common/logger"
	"edu-content-workers/internal/common/metrics"
	"edu-content-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobFunc does the work of one job. The returned value is completed as the
// job variables and must marshal to a JSON object.
type JobFunc func(ctx context.Context, variables map[string]interface{}) (interface{}, error)

// ItemCounter is implemented by outputs that carry generated items.
type ItemCounter interface {
	GeneratedItems() int
}

// Runner carries the plumbing every worker shares: the job timeout, active
// job gauge, completion with retry and the error to BPMN mapping.
type Runner struct {
	TaskType string
	Timeout  time.Duration
	Logger   logger.Logger
	Obs      *observability.Observability
	Retry    *RetryConfig

	errors *errors.ErrorHandler
}

func NewRunner(taskType string, timeout time.Duration, log logger.Logger, obs *observability.Observability) *Runner {
	return &Runner{
		TaskType: taskType,
		Timeout:  timeout,
		Logger:   log,
		Obs:      obs,
		Retry:    DefaultRetryConfig,
		errors:   errors.NewErrorHandler(log),
	}
}

// Handle runs fn for job and reports the outcome to the broker.
func (r *Runner) Handle(client worker.JobClient, job entities.Job, fn JobFunc) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	log := r.Logger.With(map[string]interface{}{
		"taskType":           r.TaskType,
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})
	log.Info("Processing job", nil)

	variables, err := job.GetVariablesAsMap()
	if err != nil {
		r.fail(ctx, client, job, errors.NewInvalidInputError("variables are not a JSON object: "+err.Error()), start)
		return
	}

	output, err := fn(ctx, variables)
	if err != nil {
		r.fail(ctx, client, job, err, start)
		return
	}

	if err := r.complete(ctx, client, job, output); err != nil {
		log.Error("Failed to complete job", map[string]interface{}{"error": err.Error()})
		r.Obs.RecordJobProcessed(ctx, r.TaskType, "complete_failed")
		return
	}

	elapsed := time.Since(start)
	metrics.WorkerJobsCompleted.WithLabelValues(r.TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.TaskType).Observe(elapsed.Seconds())
	r.Obs.RecordJobProcessed(ctx, r.TaskType, "completed")
	r.Obs.RecordJobDuration(ctx, r.TaskType, elapsed, "completed")
	if c, ok := output.(ItemCounter); ok {
		r.Obs.RecordGeneratedItems(ctx, r.TaskType, c.GeneratedItems())
	}

	log.Info("Job completed", map[string]interface{}{"duration": elapsed.String()})
}

func (r *Runner) complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	_, err := executeWithRetry(ctx, r.Retry, func(ctx context.Context) (interface{}, error) {
		cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
		if err != nil {
			return nil, err
		}
		return cmd.Send(ctx)
	}, "complete job")
	return err
}

func (r *Runner) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	var stdErr *errors.StandardError
	if !stderrors.As(err, &stdErr) {
		stdErr = errors.FromExtraction(err)
	}
	code := string(stdErr.Code)

	metrics.WorkerJobsFailed.WithLabelValues(r.TaskType, code).Inc()
	r.Obs.RecordJobProcessed(ctx, r.TaskType, "failed")
	r.Obs.RecordJobDuration(ctx, r.TaskType, time.Since(start), "failed")

	// the job context may already be spent; failing must still reach the broker
	reportCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.errors.HandleJobError(reportCtx, client, job, stdErr)
}

// StartWorker opens a job worker for taskType. The caller closes it on shutdown.
func StartWorker(client zbc.Client, taskType string, cfg config.WorkerConfig, handler worker.JobHandler, log *zap.Logger) worker.JobWorker {
	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(config.GetDuration(cfg.Timeout)).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", cfg.MaxJobsActive),
		zap.Int("timeoutMs", cfg.Timeout),
	)
	return jobWorker
}
