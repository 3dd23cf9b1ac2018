package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SMSSender delivers a text message to a canonical 94XXXXXXXXX number.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// GatewaySMSSender posts messages to an HTTP SMS gateway. Sends are not
// retried.
type GatewaySMSSender struct {
	apiURL     string
	apiKey     string
	sender     string
	dryRun     bool
	httpClient *http.Client
	logger     *zap.Logger
}

type gatewayResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewGatewaySMSSender creates a sender. With dryRun the message is only
// logged; without dryRun an empty apiKey makes every Send fail with
// ErrDelivery.
func NewGatewaySMSSender(apiURL, apiKey, sender string, dryRun bool, timeout time.Duration, logger *zap.Logger) *GatewaySMSSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewaySMSSender{
		apiURL:     apiURL,
		apiKey:     apiKey,
		sender:     sender,
		dryRun:     dryRun,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("sms"),
	}
}

func (s *GatewaySMSSender) Send(ctx context.Context, to, message string) error {
	if s.dryRun {
		s.logger.Info("dry-run sms", zap.String("to", to), zap.String("sender", s.sender), zap.String("text", maskDigits(message)))
		s.logger.Debug("dry-run sms body", zap.String("to", to), zap.String("text", message))
		return nil
	}
	if s.apiKey == "" {
		return fmt.Errorf("%w: sms api key is not configured", ErrDelivery)
	}

	form := url.Values{
		"api_key": {s.apiKey},
		"to":      {to},
		"message": {message},
	}
	if s.sender != "" {
		form.Set("sender_id", s.sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send sms request: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway returned %d: %s", ErrDelivery, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result gatewayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("%w: parse gateway response: %v", ErrDelivery, err)
	}
	if !strings.EqualFold(result.Status, "success") {
		return fmt.Errorf("%w: gateway status %q: %s", ErrDelivery, result.Status, result.Message)
	}

	s.logger.Debug("sms sent", zap.String("to", to))
	return nil
}

// maskDigits hides codes in log output.
func maskDigits(message string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '*'
		}
		return r
	}, message)
}
