// Package flow creates accounts from operator input: it cleans and
// validates the form, refuses duplicates and optionally checks the
// credentials against the SMS endpoint before storing anything.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/LeventeLantos/freesms-notify/internal/model"
	"github.com/LeventeLantos/freesms-notify/internal/repo"
)

// Error reasons, also used as API error codes.
const (
	ReasonAlreadyConfigured  = "username_already_configured"
	ReasonInvalidAuth        = "invalid_auth"
	ReasonCannotConnect      = "cannot_connect"
	ReasonVerificationFailed = "verification_failed"
	ReasonInvalidInput       = "invalid_input"
	ReasonInvalidConfig      = "invalid_config"
)

var (
	ErrAlreadyConfigured  = errors.New(ReasonAlreadyConfigured)
	ErrInvalidAuth        = errors.New(ReasonInvalidAuth)
	ErrCannotConnect      = errors.New(ReasonCannotConnect)
	ErrVerificationFailed = errors.New(ReasonVerificationFailed)
)

const DefaultVerifyMessage = "freesms-notify is now configured"

type Verifier interface {
	Send(ctx context.Context, creds model.Credentials, message string) (statusCode int, err error)
}

type Input struct {
	Username    string `json:"username" validate:"required"`
	AccessToken string `json:"access_token" validate:"required"`
	Name        string `json:"name,omitempty" validate:"omitempty,max=64"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"omitempty,frphone"`
}

type Flow struct {
	repo     repo.AccountRepository
	verifier Verifier
	validate *validator.Validate

	verifyMessage string
	now           func() time.Time
	newID         func() string
	logger        *slog.Logger
}

// New returns a flow that stores accounts in r. A nil verifier skips the
// credential check.
func New(r repo.AccountRepository, verifier Verifier, verifyMessage string) *Flow {
	if verifyMessage == "" {
		verifyMessage = DefaultVerifyMessage
	}
	return &Flow{
		repo:          r,
		verifier:      verifier,
		validate:      newValidator(),
		verifyMessage: verifyMessage,
		now:           time.Now,
		newID:         uuid.NewString,
		logger:        slog.Default(),
	}
}

func (f *Flow) WithLogger(l *slog.Logger) *Flow {
	if l != nil {
		f.logger = l
	}
	return f
}

func (f *Flow) WithClock(now func() time.Time) *Flow {
	f.now = now
	return f
}

func (f *Flow) Create(ctx context.Context, in Input) (model.Account, error) {
	in = clean(in)

	if err := f.validate.Struct(in); err != nil {
		return model.Account{}, toValidationError(err)
	}

	_, err := f.repo.GetByUsername(ctx, in.Username)
	switch {
	case err == nil:
		return model.Account{}, ErrAlreadyConfigured
	case !errors.Is(err, repo.ErrNotFound):
		return model.Account{}, err
	}

	acct := model.Account{
		ID:          f.newID(),
		Username:    in.Username,
		AccessToken: in.AccessToken,
		Name:        in.Name,
		PhoneNumber: in.PhoneNumber,
		CreatedAt:   f.now().UTC(),
	}

	if err := f.verify(ctx, acct.Credentials()); err != nil {
		return model.Account{}, err
	}

	if err := f.repo.Create(ctx, acct); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return model.Account{}, ErrAlreadyConfigured
		}
		f.logger.Error("configuration error", "error", err)
		return model.Account{}, err
	}

	f.logger.Info("account configured", "entry_id", acct.ID, "title", acct.Title())
	return acct, nil
}

func (f *Flow) verify(ctx context.Context, creds model.Credentials) error {
	if f.verifier == nil {
		return nil
	}

	code, err := f.verifier.Send(ctx, creds, f.verifyMessage)
	if err != nil {
		f.logger.Warn("cannot reach sms endpoint", "username", creds.Username, "error", err)
		return ErrCannotConnect
	}

	switch code {
	case http.StatusOK:
		return nil
	case http.StatusForbidden:
		return ErrInvalidAuth
	default:
		f.logger.Warn("credential check failed", "username", creds.Username, "status_code", code)
		return ErrVerificationFailed
	}
}

func clean(in Input) Input {
	return Input{
		Username:    strings.TrimSpace(in.Username),
		AccessToken: strings.TrimSpace(in.AccessToken),
		Name:        cleanName(in.Name),
		PhoneNumber: strings.ReplaceAll(strings.TrimSpace(in.PhoneNumber), " ", ""),
	}
}

// cleanName turns a display name into something usable as a service name.
func cleanName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "_")
}
