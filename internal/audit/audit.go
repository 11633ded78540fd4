package audit

import (
	"context"
	"sync"
	"time"

	"auth-gateway/internal/auth"
	"auth-gateway/internal/gateway"
	apperrors "auth-gateway/pkg/errors"
	"auth-gateway/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ActorType represents the type of entity performing an action
type ActorType string

const (
	ActorTypeUser      ActorType = "user"
	ActorTypeAPIKey    ActorType = "api_key"
	ActorTypeAnonymous ActorType = "anonymous"
)

// Status represents the outcome of a gate
type Status string

const StatusDenied Status = "denied"

// Event is one recorded gate decision.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Gate       string         `json:"gate"`
	Status     Status         `json:"status"`
	HTTPStatus int            `json:"httpStatus"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	ActorType  ActorType      `json:"actorType"`
	ActorID    string         `json:"actorId,omitempty"`
	Role       string         `json:"role,omitempty"`
	Method     string         `json:"method"`
	Path       string         `json:"path"`
	Origin     string         `json:"origin,omitempty"`
	IPAddress  string         `json:"ipAddress"`
	UserAgent  string         `json:"userAgent,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, event *Event) error
}

const (
	defaultWriteTimeout = 2 * time.Second
	// DefaultBufferSize is the queue length used when NewLogger gets a
	// non-positive size.
	DefaultBufferSize = 1000
)

// Logger queues denials and hands them to its sinks from a single writer
// goroutine, so a slow sink never holds up a request. Events arriving while
// the queue is full are dropped.
type Logger struct {
	sinks   []Sink
	log     zerolog.Logger
	timeout time.Duration

	events   chan *Event
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLogger creates an audit logger and starts its writer.
func NewLogger(log zerolog.Logger, bufferSize int, sinks ...Sink) *Logger {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	l := &Logger{
		sinks:   sinks,
		log:     log,
		timeout: defaultWriteTimeout,
		events:  make(chan *Event, bufferSize),
		stop:    make(chan struct{}),
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

// Log queues an audit event. It never blocks.
func (l *Logger) Log(event *Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	select {
	case <-l.stop:
		l.log.Warn().Str("event_id", event.ID.String()).Msg("audit logger closed, dropping event")
		return
	default:
	}

	select {
	case l.events <- event:
	default:
		l.log.Warn().
			Str("event_id", event.ID.String()).
			Str("gate", event.Gate).
			Msg("audit event buffer full, dropping event")
	}
}

func (l *Logger) writer() {
	defer l.wg.Done()
	for {
		select {
		case event := <-l.events:
			l.write(event)
		case <-l.stop:
			for {
				select {
				case event := <-l.events:
					l.write(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(event *Event) {
	for _, sink := range l.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		if err := sink.Write(ctx, event); err != nil {
			l.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("audit log failed")
		}
		cancel()
	}
}

// Close stops accepting events and waits until the queued ones have been
// written. It is safe to call more than once.
func (l *Logger) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.wg.Wait()
}

// ObserveDecision records denials. Allowed requests and preflight answers
// are not audited.
func (l *Logger) ObserveDecision(c echo.Context, gate string, d gateway.Decision) {
	if d.Outcome != gateway.OutcomeDeny {
		return
	}
	l.Log(EventFromContext(c, gate, d))
}

// EventFromContext builds the event for a decision taken on c.
func EventFromContext(c echo.Context, gate string, d gateway.Decision) *Event {
	req := c.Request()
	event := &Event{
		Gate:       gate,
		Status:     StatusDenied,
		HTTPStatus: d.Status,
		Code:       apperrors.Code(d.Err),
		Message:    d.Message,
		ActorType:  ActorTypeAnonymous,
		Method:     req.Method,
		Path:       logger.SanitizeURI(req.URL.RequestURI()),
		Origin:     req.Header.Get(echo.HeaderOrigin),
		IPAddress:  c.RealIP(),
		UserAgent:  req.UserAgent(),
		RequestID:  c.Response().Header().Get(echo.HeaderXRequestID),
	}
	if len(d.Detail) > 0 {
		event.Metadata = logger.SanitizeMap(d.Detail)
	}

	if p, ok := auth.GetPrincipal(c); ok {
		event.ActorID = p.UserID
		event.Role = string(p.Role)
		event.ActorType = ActorTypeUser
		if p.AuthType == auth.AuthTypeAPIKey {
			event.ActorType = ActorTypeAPIKey
		}
	}
	return event
}
