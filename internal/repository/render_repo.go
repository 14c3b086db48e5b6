package repository

import (
	"context"
	"time"
)

// RenderSession renders pages in one browser. A session serves one request
// at a time and belongs to a single worker.
type RenderSession interface {
	// Render navigates to url and returns the rendered document. A positive
	// settle keeps the page open that long before the DOM is read.
	Render(ctx context.Context, url string, settle time.Duration) (string, error)
	Close() error
}

// SessionProvider starts new rendering sessions.
type SessionProvider interface {
	NewSession(ctx context.Context) (RenderSession, error)
}
