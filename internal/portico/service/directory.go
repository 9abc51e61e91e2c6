package service

import (
	"context"

	"github.com/BrandonDHaskell/Portico/internal/portico/store"
)

// Directory resolves caller numbers to the user who registered them.
type Directory struct {
	store store.DirectoryStore
}

func NewDirectory(st store.DirectoryStore) *Directory {
	return &Directory{store: st}
}

// Resolve normalizes raw and looks it up.  An unnormalizable number is
// reported as not found rather than as an error.
func (d *Directory) Resolve(ctx context.Context, raw string) (userID string, found bool, err error) {
	number := NormalizeNumber(raw)
	if number == "" {
		return "", false, nil
	}
	return d.store.LookupOwner(ctx, number)
}

func (d *Directory) Register(ctx context.Context, raw, userID string) error {
	number := NormalizeNumber(raw)
	if number == "" {
		return ErrInvalidNumber
	}
	return d.store.PutOwner(ctx, number, userID)
}

func (d *Directory) Unregister(ctx context.Context, raw string) error {
	number := NormalizeNumber(raw)
	if number == "" {
		return ErrInvalidNumber
	}
	return d.store.DeleteOwner(ctx, number)
}
