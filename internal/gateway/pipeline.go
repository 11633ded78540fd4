package gateway

import (
	"fmt"
	"net/http"

	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

// Gate is one named check of the pipeline.
type Gate interface {
	Name() string
	Evaluate(c echo.Context) Decision
}

type gateFunc struct {
	name string
	fn   func(c echo.Context) Decision
}

func (g gateFunc) Name() string                     { return g.name }
func (g gateFunc) Evaluate(c echo.Context) Decision { return g.fn(c) }

// NewGate adapts a function to the Gate interface.
func NewGate(name string, fn func(c echo.Context) Decision) Gate {
	return gateFunc{name: name, fn: fn}
}

// Observer is told about every decision a gate makes.
type Observer interface {
	ObserveDecision(c echo.Context, gate string, d Decision)
}

// Pipeline evaluates gates in registration order and stops at the first
// decision that is not Allow.
type Pipeline struct {
	gates     []Gate
	observers []Observer
}

func New(gates ...Gate) *Pipeline {
	return &Pipeline{gates: gates}
}

// Observe registers observers. It returns p for chaining.
func (p *Pipeline) Observe(observers ...Observer) *Pipeline {
	p.observers = append(p.observers, observers...)
	return p
}

// Names lists the gates in evaluation order.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.gates))
	for _, g := range p.gates {
		names = append(names, g.Name())
	}
	return names
}

// Evaluate runs the gates and returns the name of the gate that ended the
// pipeline together with its decision. A fully allowed request returns ""
// and an Allow decision.
func (p *Pipeline) Evaluate(c echo.Context) (string, Decision) {
	for _, g := range p.gates {
		if c.Response().Committed {
			// the client already got an answer; nothing else may write
			return g.Name(), Halt(c.Response().Status)
		}

		d := evaluateSafely(g, c)
		p.notify(c, g.Name(), d)

		if !d.Allowed() {
			return g.Name(), d
		}
	}
	return "", Allow()
}

// Middleware turns the pipeline into echo middleware.
func (p *Pipeline) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, d := p.Evaluate(c); !d.Allowed() {
				return WriteDecision(c, d)
			}
			return next(c)
		}
	}
}

func (p *Pipeline) notify(c echo.Context, gate string, d Decision) {
	for _, o := range p.observers {
		o.ObserveDecision(c, gate, d)
	}
}

// evaluateSafely converts a panicking gate into a denial so the pipeline
// stays fail-closed.
func evaluateSafely(g Gate, c echo.Context) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = Decision{
				Outcome: OutcomeDeny,
				Status:  http.StatusInternalServerError,
				Message: "Internal server error",
				Err:     apperrors.InternalServer(fmt.Sprintf("gate %s panicked: %v", g.Name(), r), apperrors.ErrInternalServer),
			}
		}
	}()
	return g.Evaluate(c)
}
