package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Save original env vars
	origBaseURL := os.Getenv("PORTAL_BASE_URL")
	origUsername := os.Getenv("PORTAL_USERNAME")
	origPassword := os.Getenv("PORTAL_PASSWORD")

	// Clean up after test
	defer func() {
		restore := func(key, val string) {
			if val != "" {
				os.Setenv(key, val)
			} else {
				os.Unsetenv(key)
			}
		}
		restore("PORTAL_BASE_URL", origBaseURL)
		restore("PORTAL_USERNAME", origUsername)
		restore("PORTAL_PASSWORD", origPassword)
	}()

	// Test missing required fields
	os.Unsetenv("PORTAL_BASE_URL")
	os.Unsetenv("PORTAL_USERNAME")
	os.Unsetenv("PORTAL_PASSWORD")

	_, err := LoadConfig()
	if err == nil {
		t.Error("expected error for missing PORTAL_BASE_URL")
	}

	// Test with valid config
	os.Setenv("PORTAL_BASE_URL", "http://portal.test")
	os.Setenv("PORTAL_USERNAME", "testuser")
	os.Setenv("PORTAL_PASSWORD", "testpass")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}

	if cfg.Username != "testuser" {
		t.Errorf("expected username 'testuser' but got %q", cfg.Username)
	}

	if cfg.Password != "testpass" {
		t.Errorf("expected password 'testpass' but got %q", cfg.Password)
	}

	// Test defaults
	if cfg.MaxLoginRetries != 3 {
		t.Errorf("expected default MaxLoginRetries=3 but got %d", cfg.MaxLoginRetries)
	}

	if cfg.FetchInterval != 2*time.Minute {
		t.Errorf("expected default FetchInterval=2m but got %v", cfg.FetchInterval)
	}

	if cfg.StorageFile != "complaints.csv" {
		t.Errorf("expected default StorageFile=complaints.csv but got %q", cfg.StorageFile)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "env var set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			expected:     "custom",
		},
		{
			name:         "env var not set",
			key:          "NONEXISTENT_VAR",
			defaultValue: "default",
			envValue:     "",
			expected:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getEnvOrDefault(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("expected %q but got %q", tt.expected, result)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		expected     int
	}{
		{
			name:         "valid int",
			key:          "TEST_INT",
			defaultValue: 10,
			envValue:     "25",
			expected:     25,
		},
		{
			name:         "invalid int uses default",
			key:          "TEST_INT_INVALID",
			defaultValue: 10,
			envValue:     "notanumber",
			expected:     10,
		},
		{
			name:         "empty uses default",
			key:          "TEST_INT_EMPTY",
			defaultValue: 10,
			envValue:     "",
			expected:     10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getEnvInt(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("expected %d but got %d", tt.expected, result)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		expected     time.Duration
	}{
		{
			name:         "valid duration",
			key:          "TEST_DUR",
			defaultValue: time.Minute,
			envValue:     "90s",
			expected:     90 * time.Second,
		},
		{
			name:         "invalid duration uses default",
			key:          "TEST_DUR_INVALID",
			defaultValue: time.Minute,
			envValue:     "soon",
			expected:     time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getEnvDuration(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("expected %v but got %v", tt.expected, result)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BaseURL:        "http://portal.test",
			Username:       "user",
			Password:       "pass",
			MaxPages:       5,
			WorkerPoolSize: 10,
			BatchSize:      50,
			ReportHour:     18,
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		expectErr bool
	}{
		{
			name:      "valid config",
			mutate:    func(c *Config) {},
			expectErr: false,
		},
		{
			name:      "missing base URL",
			mutate:    func(c *Config) { c.BaseURL = "" },
			expectErr: true,
		},
		{
			name:      "missing username",
			mutate:    func(c *Config) { c.Username = "" },
			expectErr: true,
		},
		{
			name:      "missing password",
			mutate:    func(c *Config) { c.Password = "" },
			expectErr: true,
		},
		{
			name:      "zero max pages",
			mutate:    func(c *Config) { c.MaxPages = 0 },
			expectErr: true,
		},
		{
			name:      "report hour out of range",
			mutate:    func(c *Config) { c.ReportHour = 24 },
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}
