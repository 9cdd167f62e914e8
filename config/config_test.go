package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadConfig_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	body := `
server:
  port: 9090
database:
  host: db.internal
screening:
  token_ttl_hours: 48
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := ReadConfig(dir)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if got := cfg.Screening.TokenTTL(); got != 48*time.Hour {
		t.Errorf("TokenTTL() = %v, want 48h", got)
	}
	if got := cfg.Screening.TokenBytes(); got != DefaultTokenByteLength {
		t.Errorf("TokenBytes() = %d, want %d", got, DefaultTokenByteLength)
	}
	if cfg.Screening.Store != StorePostgres {
		t.Errorf("Store = %q, want postgres", cfg.Screening.Store)
	}
}

func TestReadConfig_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database:\n  host: a\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCREENING_DATABASE_HOST", "from-env")

	cfg, err := ReadConfig(dir)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if cfg.Database.Host != "from-env" {
		t.Errorf("Database.Host = %q, want from-env", cfg.Database.Host)
	}
}

func TestReadConfig_MemoryDirectory(t *testing.T) {
	dir := t.TempDir()
	body := `
screening:
  store: memory
  directory:
    patients:
      - id: 0190a2b4-0000-7000-8000-000000000001
        full_name: Demo Patient
        phone: "+989121234567"
    doctors:
      - id: 0190a2b4-0000-7000-8000-000000000002
        full_name: Demo Doctor
        email: dr@example.com
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := ReadConfig(dir)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	d := cfg.Screening.Directory
	if len(d.Patients) != 1 || d.Patients[0].FullName != "Demo Patient" || d.Patients[0].Phone != "+989121234567" {
		t.Errorf("patients = %+v", d.Patients)
	}
	if len(d.Doctors) != 1 || d.Doctors[0].Email != "dr@example.com" {
		t.Errorf("doctors = %+v", d.Doctors)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "zero value", cfg: Config{}},
		{name: "short token", cfg: Config{Screening: ScreeningConfig{TokenByteLength: 8}}, wantErr: ErrTokenTooShort},
		{name: "negative ttl", cfg: Config{Screening: ScreeningConfig{TokenTTLHours: -1}}, wantErr: ErrTokenTTL},
		{name: "unknown store", cfg: Config{Screening: ScreeningConfig{Store: "mongo"}}, wantErr: ErrUnknownStore},
		{name: "memory store", cfg: Config{Screening: ScreeningConfig{Store: StoreMemory, TokenByteLength: 16}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
