package links

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("link not found")
	ErrExpired    = errors.New("link expired")
	ErrValidation = errors.New("validation failed")
	ErrIDTaken    = errors.New("id taken")
)

type LinkRepository interface {
	Insert(ctx context.Context, link *Link) error
	FindByID(ctx context.Context, id string) (*Link, error)
	CountAll(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int64) ([]Link, error)
}

type IDGenerator interface {
	Generate(length int) (string, error)
}
