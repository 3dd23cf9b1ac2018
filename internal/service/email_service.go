package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// EmailSender sends transactional emails.
type EmailSender interface {
	SendWelcome(ctx context.Context, toEmail, fullName, role string) error
}

// NoopEmailSender is used when no Resend key is configured.
type NoopEmailSender struct {
	Logger *zap.Logger
}

func (s *NoopEmailSender) SendWelcome(ctx context.Context, toEmail, fullName, role string) error {
	if s.Logger != nil {
		s.Logger.Info("noop welcome email", zap.String("to", toEmail), zap.String("role", role))
	}
	return nil
}

// ResendEmailSender sends emails via the Resend REST API.
type ResendEmailSender struct {
	from         string
	dashboardURL string
	client       *resend.Client
}

func NewResendEmailSender(apiKey, from, dashboardURL string) (*ResendEmailSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailSender{
		from:         from,
		dashboardURL: dashboardURL,
		client:       resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailSender) SendWelcome(ctx context.Context, toEmail, fullName, role string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Your dealership dashboard account",
		Text:    welcomeText(fullName, role, s.dashboardURL),
		Html:    welcomeHTML(fullName, role, s.dashboardURL),
	}
	options := &resend.SendEmailOptions{IdempotencyKey: "welcome:" + strings.ToLower(toEmail)}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}
		return fmt.Errorf("resend send failed: %w", err)
	}
	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func welcomeText(fullName, role, dashboardURL string) string {
	text := fmt.Sprintf("Hello %s,\n\nAn account with the %s role was created for you.", fullName, role)
	if dashboardURL != "" {
		text += "\nSign in at " + dashboardURL
	}
	return text
}

func welcomeHTML(fullName, role, dashboardURL string) string {
	body := fmt.Sprintf("<p>Hello %s,</p><p>An account with the <strong>%s</strong> role was created for you.</p>",
		html.EscapeString(fullName), html.EscapeString(role))
	if dashboardURL != "" {
		body += fmt.Sprintf(`<p><a href="%s">Open the dashboard</a></p>`, html.EscapeString(dashboardURL))
	}
	return body
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}
	return 0, false
}
