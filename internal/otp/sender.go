package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"solar-monitor-backend/config"
)

// Sender delivers a one-time code to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// WhatsAppSender dispatches OTP codes through the WhatsApp template
// bulk-message API.
type WhatsAppSender struct {
	cfg    config.OtpConfig
	client *http.Client
}

// NewWhatsAppSender creates a sender for the configured WhatsApp API.
func NewWhatsAppSender(cfg config.OtpConfig) *WhatsAppSender {
	return &WhatsAppSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Send posts the OTP template message. Any transport or non-2xx failure
// is returned to the caller; the signup flow treats dispatch as
// essential.
func (s *WhatsAppSender) Send(ctx context.Context, phone, code string) error {
	payload := map[string]any{
		"integrated_number": s.cfg.IntegratedNumber,
		"content_type":      "template",
		"payload": map[string]any{
			"messaging_product": "whatsapp",
			"type":              "template",
			"template": map[string]any{
				"name":      s.cfg.TemplateName,
				"namespace": s.cfg.TemplateNamespace,
				"language": map[string]any{
					"code":   "en_US",
					"policy": "deterministic",
				},
				"to_and_components": []map[string]any{
					{
						"to": []string{s.cfg.CountryPrefix + phone},
						"components": map[string]any{
							"body_1": map[string]string{"type": "text", "value": ""},
							"body_2": map[string]string{"type": "text", "value": code},
						},
					},
				},
			},
		},
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal otp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create otp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", s.cfg.AuthKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("otp http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("otp api returned status %d: %s", resp.StatusCode, body)
	}

	log.Printf("OTP dispatched to %s%s", s.cfg.CountryPrefix, phone)
	return nil
}
