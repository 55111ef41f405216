package checker

import (
	"fmt"
	"net/http"
	"strings"

	"keycheck/internal/gemini"
)

// Classify maps the result of a single probe call into an Outcome plus a
// human-readable detail line. It is pure: the caller hands over whatever the
// transport produced and gets a label back.
//
// Mapping:
//
//	2xx, decodable body       -> valid
//	HTTP 403                  -> permission_denied
//	HTTP 429                  -> quota_exhausted
//	HTTP 400                  -> invalid_argument (usually a bad model name)
//	any other HTTP error      -> unknown_error
//	transport failure (no HTTP status) -> transport_error
func Classify(model string, status int, apiMessage string, err error) (Outcome, string) {
	if err != nil {
		if apiErr, ok := gemini.IsAPIError(err); ok {
			return classifyStatus(model, apiErr.StatusCode, apiErr.Envelope.Error.Message)
		}
		if status > 0 {
			// Non-enveloped HTTP failure, e.g. an HTML error page.
			return classifyStatus(model, status, err.Error())
		}
		return OutcomeTransportError, err.Error()
	}
	if status >= 200 && status < 300 {
		return OutcomeValid, ""
	}
	return classifyStatus(model, status, apiMessage)
}

func classifyStatus(model string, status int, message string) (Outcome, string) {
	switch status {
	case http.StatusForbidden:
		return OutcomePermissionDenied, fmt.Sprintf("Invalid API Key (HTTP %d)", status)
	case http.StatusTooManyRequests:
		return OutcomeQuotaExhausted, "Quota limit may have been reached"
	case http.StatusBadRequest:
		return OutcomeInvalidArgument, fmt.Sprintf("Check if model name %q is correct", model)
	default:
		detail := fmt.Sprintf("HTTP %d", status)
		if strings.TrimSpace(message) != "" {
			detail += ": " + strings.TrimSpace(message)
		}
		return OutcomeUnknown, detail
	}
}
