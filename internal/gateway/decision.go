// Package gateway runs the request gates in a fixed order. Each gate returns
// a Decision; the first decision that is not Allow ends the pipeline.
package gateway

import (
	apperrors "auth-gateway/pkg/errors"
)

type Outcome int

const (
	// OutcomeAllow passes the request to the next gate.
	OutcomeAllow Outcome = iota
	// OutcomeDeny ends the pipeline with an error body.
	OutcomeDeny
	// OutcomeHalt ends the pipeline with an empty success response, used for
	// preflight answers.
	OutcomeHalt
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	case OutcomeHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating one gate.
type Decision struct {
	Outcome Outcome
	Status  int
	Message string
	Err     error
	// Detail fields are merged into the error body. They must never hold
	// secrets.
	Detail map[string]any
}

func Allow() Decision {
	return Decision{Outcome: OutcomeAllow}
}

// Deny builds a denial whose status is derived from the sentinel err.
func Deny(err error, message string) Decision {
	return Decision{
		Outcome: OutcomeDeny,
		Status:  apperrors.StatusOf(err),
		Message: message,
		Err:     err,
	}
}

func Halt(status int) Decision {
	return Decision{Outcome: OutcomeHalt, Status: status}
}

// With returns a copy of d carrying an extra body field.
func (d Decision) With(key string, value any) Decision {
	detail := make(map[string]any, len(d.Detail)+1)
	for k, v := range d.Detail {
		detail[k] = v
	}
	detail[key] = value
	d.Detail = detail
	return d
}

func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}
