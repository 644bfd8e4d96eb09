package model

import (
	"net/http"
	"time"
)

type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeMissingParameter   Outcome = "missing_parameter"
	OutcomeRateLimited        Outcome = "rate_limited"
	OutcomeInvalidCredentials Outcome = "invalid_credentials"
	OutcomeServerError        Outcome = "server_error"
	OutcomeTransportError     Outcome = "unknown_error"
	OutcomeUnclassified       Outcome = "unclassified"
)

// Classify maps a Free Mobile response code to its outcome. The response
// body carries no information and is never looked at.
func Classify(statusCode int) Outcome {
	switch statusCode {
	case http.StatusOK:
		return OutcomeSuccess
	case http.StatusBadRequest:
		return OutcomeMissingParameter
	case http.StatusPaymentRequired:
		return OutcomeRateLimited
	case http.StatusForbidden:
		return OutcomeInvalidCredentials
	case http.StatusInternalServerError:
		return OutcomeServerError
	default:
		return OutcomeUnclassified
	}
}

func (o Outcome) IsSuccess() bool {
	return o == OutcomeSuccess
}

// Description is the operator-facing explanation of an outcome.
func (o Outcome) Description() string {
	switch o {
	case OutcomeSuccess:
		return "SMS sent"
	case OutcomeMissingParameter:
		return "a required parameter is missing"
	case OutcomeRateLimited:
		return "too many SMS sent in a short time"
	case OutcomeInvalidCredentials:
		return "service not enabled or wrong credentials"
	case OutcomeServerError:
		return "Free Mobile server error"
	case OutcomeTransportError:
		return "could not reach the SMS endpoint"
	default:
		return "unexpected response from the SMS endpoint"
	}
}

// Result is the classified outcome of one send attempt.
type Result struct {
	Outcome    Outcome   `json:"outcome"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}
