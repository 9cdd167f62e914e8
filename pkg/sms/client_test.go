package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/Alijeyrad/simorq_screening/config"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.SMSConfig
		wantErr     bool
		wantEnabled bool
	}{
		{
			name: "disabled",
			cfg:  config.SMSConfig{Enabled: false},
		},
		{
			name:    "enabled without api key",
			cfg:     config.SMSConfig{Enabled: true, SMSIR: config.SMSIRConfig{TemplateID: "t"}},
			wantErr: true,
		},
		{
			name:    "enabled without template",
			cfg:     config.SMSConfig{Enabled: true, SMSIR: config.SMSIRConfig{APIKey: "k"}},
			wantErr: true,
		},
		{
			name:        "enabled",
			cfg:         config.SMSConfig{Enabled: true, SMSIR: config.SMSIRConfig{APIKey: "k", SecretKey: "s", TemplateID: "t"}},
			wantEnabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.IsEnabled() != tt.wantEnabled {
				t.Fatalf("enabled = %v, want %v", c.IsEnabled(), tt.wantEnabled)
			}
		})
	}
}

func TestSendAssessmentLink_DisabledNoop(t *testing.T) {
	c, _ := NewFromConfig(config.SMSConfig{Enabled: false})
	if err := c.SendAssessmentLink(context.Background(), "", ""); err != nil {
		t.Fatalf("disabled client returned %v", err)
	}
}

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		phone, region string
		want          string
		wantErr       bool
	}{
		{"09121234567", "IR", "+989121234567", false},
		{"+98 912 123 4567", "", "+989121234567", false},
		{"(415) 555-2671", "US", "+14155552671", false},
		{"", "IR", "", true},
		{"12", "IR", "", true},
		{"not a number", "IR", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeE164(tt.phone, tt.region)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPhone) {
				t.Errorf("NormalizeE164(%q) err = %v, want ErrInvalidPhone", tt.phone, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeE164(%q, %q) = %q, %v; want %q", tt.phone, tt.region, got, err, tt.want)
		}
	}
}
