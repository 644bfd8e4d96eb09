package service

import (
	"context"
	"sync"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

const (
	IconIdle    = "mdi:message-alert-outline"
	IconSuccess = "mdi:check-circle-outline"
	IconFailure = "mdi:alert-circle-outline"

	DefaultTestMessage = "Test SMS sent from freesms-notify"
)

// Button sends a fixed test message when pressed and shows whether the
// last press went through.
type Button struct {
	dispatcher *Dispatcher
	message    string

	mu   sync.Mutex
	icon string
	last *model.Result
}

func NewButton(d *Dispatcher, message string) *Button {
	if message == "" {
		message = DefaultTestMessage
	}
	return &Button{
		dispatcher: d,
		message:    message,
		icon:       IconIdle,
	}
}

func (b *Button) Press(ctx context.Context) model.Result {
	// message is never empty, so Send cannot fail
	res, _ := b.dispatcher.Send(ctx, b.message)

	b.mu.Lock()
	defer b.mu.Unlock()

	if res.Outcome.IsSuccess() {
		b.icon = IconSuccess
	} else {
		b.icon = IconFailure
	}
	b.last = &res
	return res
}

func (b *Button) Icon() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.icon
}

func (b *Button) LastResult() (model.Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return model.Result{}, false
	}
	return *b.last, true
}
