package task

// classifyNetworkError reports whether err from a failed HTTP round trip
// (no response received at all) should be treated as a Timeout or a
// NetworkError, and whether it is retryable. Both are retryable per the
// task protocol; the type distinction is for observability only.
func classifyNetworkError(err error, deadlineExceeded bool) (ErrorType, bool) {
	if deadlineExceeded {
		return ErrorTypeTimeout, true
	}
	return ErrorTypeNetworkError, true
}

// classifyHTTPStatus reports the ErrorType and retryability for a received
// HTTP response whose status indicates failure (status was already checked
// to be an error by the caller).
func classifyHTTPStatus(status int) (ErrorType, bool) {
	return ErrorTypeHTTPError, isRetryableHTTPStatus(status)
}

func suggestionFor(errType ErrorType, status int) string {
	switch errType {
	case ErrorTypeCircuitOpen:
		return "the target service is failing repeatedly; wait for the cool-off period to elapse"
	case ErrorTypeTimeout:
		return "the call exceeded its effective deadline; consider raising the task or workflow timeout"
	case ErrorTypeHTTPError:
		if status == 401 || status == 403 {
			return "check credentials or permissions for this request"
		}
		if status == 404 {
			return "verify the resolved URL path and resource identifier"
		}
	case ErrorTypeSchemaError:
		return "the payload does not match the declared schema"
	}
	return ""
}
