// Package ticket renders the ticket document attached to booking mails and
// served by the download endpoint.
package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/smartticket/internal/domain"
)

const ContentTypePDF = "application/pdf"

// Artifact is a rendered ticket.
type Artifact struct {
	BookingID   int64
	FileName    string
	ContentType string
	Content     []byte
}

// Renderer turns a document into bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
}

type Generator struct {
	renderer Renderer
	currency string
	now      func() time.Time
}

type GeneratorOption func(*Generator)

func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

func NewGenerator(renderer Renderer, currency string, opts ...GeneratorOption) *Generator {
	g := &Generator{renderer: renderer, currency: currency, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Compose builds the document for b without rendering it.
func (g *Generator) Compose(b domain.Booking) Document {
	return compose(b, g.currency, g.now().UTC())
}

// Generate renders the ticket for b. Renderer failures are returned as is.
func (g *Generator) Generate(ctx context.Context, b domain.Booking) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := g.renderer.Render(g.Compose(b))
	if err != nil {
		return nil, fmt.Errorf("render ticket %d: %w", b.ID, err)
	}
	return &Artifact{
		BookingID:   b.ID,
		FileName:    FileName(b.ID),
		ContentType: g.renderer.ContentType(),
		Content:     content,
	}, nil
}

func FileName(bookingID int64) string {
	return fmt.Sprintf("SmartTicket_%d.pdf", bookingID)
}
