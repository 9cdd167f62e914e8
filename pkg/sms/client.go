package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/arsmn/go-smsir/smsir"
	"github.com/nyaruka/phonenumbers"

	"github.com/Alijeyrad/simorq_screening/config"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// LinkSender delivers an assessment link to a patient's phone.
type LinkSender interface {
	SendAssessmentLink(ctx context.Context, phone, link string) error
}

// Client provides SMS sending functionality via sms.ir.
type Client struct {
	client     *smsir.Client
	enabled    bool
	region     string
	templateID string
}

// NewFromConfig creates a new SMS client from the application configuration.
// If SMS is disabled, returns a client that no-ops on all operations.
func NewFromConfig(cfg config.SMSConfig) (*Client, error) {
	region := cfg.DefaultRegion
	if region == "" {
		region = "IR"
	}
	if !cfg.Enabled {
		return &Client{enabled: false, region: region}, nil
	}

	if cfg.SMSIR.APIKey == "" {
		return nil, fmt.Errorf("sms.ir API key required when SMS enabled")
	}
	if cfg.SMSIR.TemplateID == "" {
		return nil, fmt.Errorf("sms.ir template id required when SMS enabled")
	}

	return &Client{
		client:     smsir.NewClient().WithAuthentication(cfg.SMSIR.APIKey, cfg.SMSIR.SecretKey),
		enabled:    true,
		region:     region,
		templateID: cfg.SMSIR.TemplateID,
	}, nil
}

// SendAssessmentLink sends link through the configured sms.ir template, which
// must declare a "link" parameter. The number is normalized to E.164 first.
// If SMS is disabled, this is a no-op and returns nil.
func (c *Client) SendAssessmentLink(ctx context.Context, phone, link string) error {
	if !c.enabled {
		return nil
	}
	if link == "" {
		return fmt.Errorf("link is required")
	}

	mobile, err := NormalizeE164(phone, c.region)
	if err != nil {
		return err
	}

	req := &smsir.UltraFastSendRequest{
		Mobile:     mobile,
		TemplateID: c.templateID,
		Parameters: []smsir.UltraFastParameter{
			{Key: "link", Value: link},
		},
	}
	if _, err := c.client.Verification.UltraFastSend(ctx, req); err != nil {
		return fmt.Errorf("sms.ir send failed: %w", err)
	}
	return nil
}

// IsEnabled returns whether SMS sending is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// NormalizeE164 parses phone, interpreting national numbers in region, and
// returns it in E.164 form.
func NormalizeE164(phone, region string) (string, error) {
	if phone == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPhone)
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: %s is not a valid number", ErrInvalidPhone, phonenumbers.Format(num, phonenumbers.INTERNATIONAL))
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
