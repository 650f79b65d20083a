package links

import "time"

type Link struct {
	ID          string
	OriginalURL string
	Alias       string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

type CreateLinkInput struct {
	OriginalURL string
	Alias       string
	ExpiresAt   *time.Time
}
