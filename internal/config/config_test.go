package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "database:\n  path: "+filepath.Join(t.TempDir(), "test.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "primary", cfg.Google.CalendarID)
	assert.Equal(t, 30, cfg.Booking.ConsultationMinutes)
	assert.Equal(t, []int{30, 15}, cfg.Reminders.OffsetsMinutes)
	assert.Equal(t, 8081, cfg.Monitoring.HealthCheckPort)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_SENDGRID_KEY", "sg-secret")
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "test.db")+`
email:
  sendgrid_api_key: ${TEST_SENDGRID_KEY}
  from_email: noreply@example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sg-secret", cfg.Email.SendGridAPIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestReminderOffsets(t *testing.T) {
	cfg := &Config{}
	cfg.Reminders.OffsetsMinutes = []int{30, 15, 0, -5}
	assert.Equal(t, []time.Duration{30 * time.Minute, 15 * time.Minute}, cfg.ReminderOffsets())
}
