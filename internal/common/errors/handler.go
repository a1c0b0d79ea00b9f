// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports failed jobs to the broker.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Outcome is how a failed job was reported.
type Outcome struct {
	// Throw means a BPMN error was thrown to the process.
	Throw bool
	// Retries is the retry count sent with a fail command.
	Retries int
}

// Decide picks between failing with retries and throwing. remaining is the
// job's retry counter including the current attempt; the last attempt
// always throws so the process can route the error instead of raising an
// incident.
func Decide(stdErr *StandardError, remaining int32) Outcome {
	maxRetries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable || maxRetries == 0 || remaining <= 1 {
		return Outcome{Throw: true}
	}
	retries := int(remaining) - 1
	if retries > maxRetries {
		retries = maxRetries
	}
	return Outcome{Retries: retries}
}

// HandleJobError fails or throws for job and returns what it did.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *StandardError) Outcome {
	bpmnErr := ConvertToBPMNError(stdErr)
	outcome := Decide(stdErr, job.Retries)
	h.logError(job, stdErr, bpmnErr, outcome)

	vars := errorVariablesJSON(bpmnErr)

	var err error
	if outcome.Throw {
		cmd := client.NewThrowErrorCommand().
			JobKey(job.Key).
			ErrorCode(bpmnErr.Code).
			ErrorMessage(bpmnErr.Message)
		if withVars, verr := cmd.VariablesFromString(vars); vars != "" && verr == nil {
			_, err = withVars.Send(ctx)
		} else {
			_, err = cmd.Send(ctx)
		}
	} else {
		cmd := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(int32(outcome.Retries)).
			ErrorMessage(bpmnErr.Message)
		if withVars, verr := cmd.VariablesFromString(vars); vars != "" && verr == nil {
			_, err = withVars.Send(ctx)
		} else {
			_, err = cmd.Send(ctx)
		}
	}

	if err != nil {
		h.logger.Error("Failed to report job error", map[string]interface{}{
			"jobKey":    job.Key,
			"errorCode": string(stdErr.Code),
			"throw":     outcome.Throw,
			"error":     err.Error(),
		})
	}
	return outcome
}

// errorVariablesJSON is empty when the variables cannot be encoded.
func errorVariablesJSON(bpmnErr *BPMNError) string {
	vars := bpmnErr.ToErrorVariables()
	if len(vars) == 0 {
		return ""
	}
	raw, err := json.Marshal(vars)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError, outcome Outcome) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":             job.Key,
		"jobType":            job.Type,
		"errorCode":          string(stdErr.Code),
		"bpmnErrorCode":      bpmnErr.Code,
		"message":            bpmnErr.Message,
		"details":            stdErr.Details,
		"errorCategory":      GetErrorCategory(stdErr.Code),
		"throw":              outcome.Throw,
		"retriesLeft":        outcome.Retries,
		"processInstanceKey": job.ProcessInstanceKey,
		"metadata":           stdErr.Metadata,
	})
}
