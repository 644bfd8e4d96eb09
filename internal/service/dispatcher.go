package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

var ErrEmptyMessage = errors.New("message must not be empty")

type SendClient interface {
	Send(ctx context.Context, creds model.Credentials, message string) (statusCode int, err error)
}

// Observer receives every result a Dispatcher produces.
type Observer interface {
	Observe(res model.Result)
}

type ObserverFunc func(res model.Result)

func (f ObserverFunc) Observe(res model.Result) { f(res) }

// Dispatcher sends messages for one account and reports each outcome to
// the observers it was built with. It never retries.
type Dispatcher struct {
	client    SendClient
	creds     model.Credentials
	observers []Observer

	now    func() time.Time
	logger *slog.Logger
}

func NewDispatcher(client SendClient, creds model.Credentials, observers ...Observer) *Dispatcher {
	return &Dispatcher{
		client:    client,
		creds:     creds,
		observers: observers,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

func (d *Dispatcher) WithLogger(l *slog.Logger) *Dispatcher {
	if l != nil {
		d.logger = l
	}
	return d
}

// Send performs one call to the SMS endpoint. The only error it returns is
// ErrEmptyMessage; transport failures come back as an unknown_error result.
func (d *Dispatcher) Send(ctx context.Context, message string) (model.Result, error) {
	if strings.TrimSpace(message) == "" {
		return model.Result{}, ErrEmptyMessage
	}

	log := d.logger.With("username", d.creds.Username)
	log.Debug("sending sms", "length", len(message))

	code, err := d.client.Send(ctx, d.creds, message)

	res := model.Result{StatusCode: code, At: d.now()}
	switch {
	case err != nil:
		res.Outcome = model.OutcomeTransportError
		res.StatusCode = 0
		res.Error = err.Error()
		log.Error("error sending sms", "error", err)
	default:
		res.Outcome = model.Classify(code)
		if res.Outcome.IsSuccess() {
			log.Info("sms sent")
		} else {
			log.Warn("failed to send sms", "status_code", code, "outcome", string(res.Outcome))
		}
	}

	for _, o := range d.observers {
		o.Observe(res)
	}
	return res, nil
}
