package cache

import (
	"context"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

// StatusCache keeps sensor snapshots across restarts.
type StatusCache interface {
	StoreStatus(ctx context.Context, st model.Status) error
	LoadStatus(ctx context.Context, entryID string) (st model.Status, found bool, err error)
	DeleteStatus(ctx context.Context, entryID string) error
}
