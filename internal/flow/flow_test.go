package flow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LeventeLantos/freesms-notify/internal/client"
	"github.com/LeventeLantos/freesms-notify/internal/model"
	"github.com/LeventeLantos/freesms-notify/internal/repo"
)

type fakeVerifier struct {
	code    int
	err     error
	calls   atomic.Int64
	message string
}

func (v *fakeVerifier) Send(ctx context.Context, creds model.Credentials, message string) (int, error) {
	v.calls.Add(1)
	v.message = message
	return v.code, v.err
}

func TestCreate_StoresExactRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := repo.NewMemoryAccountRepo()
	f := New(r, client.NewFreeClient(srv.URL, time.Second), "")

	acct, err := f.Create(context.Background(), Input{
		Username:    "12345678",
		AccessToken: "test_token",
		Name:        "mon_telephone",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if acct.Title() != "Free Mobile SMS (12345678)" {
		t.Fatalf("unexpected title %q", acct.Title())
	}

	stored, err := r.Get(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	want := map[string]string{
		"username":     "12345678",
		"access_token": "test_token",
		"name":         "mon_telephone",
	}
	if got := stored.Data(); !reflect.DeepEqual(got, want) {
		t.Fatalf("stored record = %v, want %v", got, want)
	}
}

func TestCreate_CleansInput(t *testing.T) {
	r := repo.NewMemoryAccountRepo()
	f := New(r, nil, "")

	acct, err := f.Create(context.Background(), Input{
		Username:    "  12345678 ",
		AccessToken: " tok ",
		Name:        "  Mon  Telephone ",
		PhoneNumber: "06 12 34 56 78",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if acct.Username != "12345678" || acct.AccessToken != "tok" {
		t.Fatalf("expected trimmed credentials, got %+v", acct)
	}
	if acct.Name != "mon_telephone" {
		t.Fatalf("expected cleaned name, got %q", acct.Name)
	}
	if acct.PhoneNumber != "0612345678" {
		t.Fatalf("expected compact phone number, got %q", acct.PhoneNumber)
	}
	if acct.ID == "" || acct.CreatedAt.IsZero() {
		t.Fatalf("expected id and creation time, got %+v", acct)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	f := New(repo.NewMemoryAccountRepo(), nil, "")

	cases := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing username", Input{AccessToken: "t"}, "username"},
		{"blank token", Input{Username: "u", AccessToken: "   "}, "access_token"},
		{"bad phone", Input{Username: "u", AccessToken: "t", PhoneNumber: "0112345678"}, "phone_number"},
		{"name too long", Input{Username: "u", AccessToken: "t", Name: strings.Repeat("a", 65)}, "name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.Create(context.Background(), tc.in)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) == 0 || verr.Fields[0].Field != tc.field {
				t.Fatalf("expected failing field %q, got %+v", tc.field, verr.Fields)
			}
			if !strings.Contains(verr.Error(), tc.field) {
				t.Fatalf("expected message to mention %q, got %q", tc.field, verr.Error())
			}
		})
	}
}

func TestCreate_ValidPhoneNumbers(t *testing.T) {
	for _, phone := range []string{"0612345678", "0712345678", "+33612345678"} {
		f := New(repo.NewMemoryAccountRepo(), nil, "")
		if _, err := f.Create(context.Background(), Input{Username: "u", AccessToken: "t", PhoneNumber: phone}); err != nil {
			t.Fatalf("phone %q rejected: %v", phone, err)
		}
	}
}

func TestCreate_DuplicateUsername(t *testing.T) {
	v := &fakeVerifier{code: http.StatusOK}
	f := New(repo.NewMemoryAccountRepo(), v, "")

	if _, err := f.Create(context.Background(), Input{Username: "u", AccessToken: "t"}); err != nil {
		t.Fatalf("first Create() error: %v", err)
	}
	_, err := f.Create(context.Background(), Input{Username: "u", AccessToken: "other"})
	if !errors.Is(err, ErrAlreadyConfigured) {
		t.Fatalf("expected ErrAlreadyConfigured, got %v", err)
	}
	if v.calls.Load() != 1 {
		t.Fatalf("expected duplicate to be refused before verification, got %d calls", v.calls.Load())
	}
}

func TestCreate_VerificationOutcomes(t *testing.T) {
	cases := []struct {
		name string
		v    *fakeVerifier
		want error
	}{
		{"forbidden", &fakeVerifier{code: http.StatusForbidden}, ErrInvalidAuth},
		{"transport", &fakeVerifier{err: errors.New("dial tcp: refused")}, ErrCannotConnect},
		{"rate limited", &fakeVerifier{code: http.StatusPaymentRequired}, ErrVerificationFailed},
		{"server error", &fakeVerifier{code: http.StatusInternalServerError}, ErrVerificationFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := repo.NewMemoryAccountRepo()
			f := New(r, tc.v, "check")

			_, err := f.Create(context.Background(), Input{Username: "u", AccessToken: "t"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.v.message != "check" {
				t.Fatalf("expected verification message %q, got %q", "check", tc.v.message)
			}

			list, _ := r.List(context.Background())
			if len(list) != 0 {
				t.Fatalf("expected nothing stored, got %+v", list)
			}
		})
	}
}

func TestCreate_UsesClock(t *testing.T) {
	at := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	f := New(repo.NewMemoryAccountRepo(), nil, "").WithClock(func() time.Time { return at })

	acct, err := f.Create(context.Background(), Input{Username: "u", AccessToken: "t"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !acct.CreatedAt.Equal(at) {
		t.Fatalf("expected CreatedAt %v, got %v", at, acct.CreatedAt)
	}
}
