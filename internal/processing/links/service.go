package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	aliasMinLen = 3
	aliasMaxLen = 20
)

type Service struct {
	repo     LinkRepository
	ids      IDGenerator
	idLength int
	now      func() time.Time
}

func NewService(repo LinkRepository, ids IDGenerator, idLength int) *Service {
	if idLength <= 0 {
		idLength = DefaultIDLength
	}

	return &Service{
		repo:     repo,
		ids:      ids,
		idLength: idLength,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, in CreateLinkInput) (*Link, error) {
	originalURL := strings.TrimSpace(in.OriginalURL)
	if originalURL == "" {
		return nil, fmt.Errorf("%w: originalURL is required", ErrValidation)
	}

	alias := strings.TrimSpace(in.Alias)
	if alias != "" && (len(alias) < aliasMinLen || len(alias) > aliasMaxLen) {
		return nil, fmt.Errorf("%w: alias must be %d-%d characters", ErrValidation, aliasMinLen, aliasMaxLen)
	}

	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expiration must be in the future", ErrValidation)
	}

	link := &Link{
		OriginalURL: originalURL,
		Alias:       alias,
		CreatedAt:   s.now().UTC(),
		ExpiresAt:   in.ExpiresAt,
	}

	const maxAttempts = 10
	for range maxAttempts {
		id, err := s.ids.Generate(s.idLength)
		if err != nil {
			return nil, err
		}
		link.ID = id

		if err := s.repo.Insert(ctx, link); err != nil {
			if errors.Is(err, ErrIDTaken) {
				continue
			}
			return nil, err
		}

		return link, nil
	}

	return nil, ErrIDTaken
}

func (s *Service) Get(ctx context.Context, id string) (*Link, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	return s.repo.FindByID(ctx, id)
}

// Resolve returns the destination link for a redirect. A link whose
// expiration is set and not in the future yields ErrExpired.
func (s *Service) Resolve(ctx context.Context, id string) (*Link, error) {
	link, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if link.ExpiresAt != nil && !link.ExpiresAt.UTC().After(s.now().UTC()) {
		return nil, ErrExpired
	}

	return link, nil
}
