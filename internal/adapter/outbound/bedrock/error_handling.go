package bedrock

import (
	"context"
	"errors"

	"medinotes/internal/port/outbound"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// classifyInvokeError converts an AWS Bedrock invocation error into a
// GenerationError with an explicit retryability decision: throttling,
// model-busy, and server faults retry; validation and access faults do not.
func classifyInvokeError(err error) *outbound.GenerationError {
	var throttling *types.ThrottlingException
	if errors.As(err, &throttling) {
		return &outbound.GenerationError{
			Code:      "rate_limit_exceeded",
			Type:      "throttling",
			Message:   "Bedrock throttled the request",
			Retryable: true,
			Cause:     err,
		}
	}

	var quota *types.ServiceQuotaExceededException
	if errors.As(err, &quota) {
		return &outbound.GenerationError{
			Code:      "quota_exceeded",
			Type:      "quota",
			Message:   "service quota exceeded",
			Retryable: false,
			Cause:     err,
		}
	}

	var notReady *types.ModelNotReadyException
	if errors.As(err, &notReady) {
		return &outbound.GenerationError{
			Code:      "model_not_ready",
			Type:      "server",
			Message:   "model is not ready to serve requests",
			Retryable: true,
			Cause:     err,
		}
	}

	var timeout *types.ModelTimeoutException
	if errors.As(err, &timeout) {
		return &outbound.GenerationError{
			Code:      "model_timeout",
			Type:      "server",
			Message:   "model invocation timed out",
			Retryable: true,
			Cause:     err,
		}
	}

	var internal *types.InternalServerException
	if errors.As(err, &internal) {
		return &outbound.GenerationError{
			Code:      "server_error",
			Type:      "server",
			Message:   "Bedrock internal server error",
			Retryable: true,
			Cause:     err,
		}
	}

	var validation *types.ValidationException
	if errors.As(err, &validation) {
		return &outbound.GenerationError{
			Code:      "invalid_request",
			Type:      "validation",
			Message:   "Bedrock rejected the request parameters",
			Retryable: false,
			Cause:     err,
		}
	}

	var accessDenied *types.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return &outbound.GenerationError{
			Code:      "access_denied",
			Type:      "auth",
			Message:   "access denied, check IAM permissions for Bedrock",
			Retryable: false,
			Cause:     err,
		}
	}

	var modelErr *types.ModelErrorException
	if errors.As(err, &modelErr) {
		return &outbound.GenerationError{
			Code:      "model_error",
			Type:      "server",
			Message:   "model returned an error",
			Retryable: false,
			Cause:     err,
		}
	}

	if errors.Is(err, context.Canceled) {
		return &outbound.GenerationError{
			Code:      "request_canceled",
			Type:      "network",
			Message:   "request was canceled",
			Retryable: false,
			Cause:     err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &outbound.GenerationError{
			Code:      "request_timeout",
			Type:      "network",
			Message:   "request deadline exceeded",
			Retryable: true,
			Cause:     err,
		}
	}

	return &outbound.GenerationError{
		Code:      "invoke_error",
		Type:      "server",
		Message:   err.Error(),
		Retryable: true,
		Cause:     err,
	}
}

// IsRetryableError reports whether err is a transient generation failure.
// Used by worker pools to decide requeueing.
func IsRetryableError(err error) bool {
	var genErr *outbound.GenerationError
	if errors.As(err, &genErr) {
		return genErr.IsRetryable()
	}
	return false
}
