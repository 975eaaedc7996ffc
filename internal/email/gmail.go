package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/Domenick1991/smartticket/internal/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSender delivers mail through the Gmail API as the authorised account.
type GmailSender struct {
	service *gmail.Service
	from    string
	log     logger.Logger
}

// GmailTokenSource exchanges a stored refresh token for access tokens.
func GmailTokenSource(ctx context.Context, clientID, clientSecret, refreshToken string) oauth2.TokenSource {
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now(), // Force refresh
	}
	return cfg.TokenSource(ctx, token)
}

func NewGmailSender(ctx context.Context, tokenSource oauth2.TokenSource, from string, log logger.Logger) (*GmailSender, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &GmailSender{service: service, from: from, log: log}, nil
}

func (s *GmailSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.From == "" {
		msg.From = s.from
	}

	raw, err := BuildMIME(msg)
	if err != nil {
		return fmt.Errorf("build mime for %s: %w", msg.ID, err)
	}

	sent, err := s.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send %s: %w", msg.ID, err)
	}

	s.log.Info("mail sent", "id", msg.ID, "to", msg.To, "gmailID", sent.Id)
	return nil
}

var _ Sender = (*GmailSender)(nil)
