package repo

import (
	"context"
	"errors"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

var (
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("account already exists")
)

type AccountRepository interface {
	Create(ctx context.Context, acct model.Account) error
	Get(ctx context.Context, id string) (model.Account, error)
	GetByUsername(ctx context.Context, username string) (model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Delete(ctx context.Context, id string) error
}
