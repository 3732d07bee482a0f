package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsToLongPoll(t *testing.T) {
	cfg, err := Load(writeFile(t, `
telegram:
  token: "123:abc"
  run_mode: polling
rate_limit:
  exclude_updates: [" Callback ", ""]
`))
	require.NoError(t, err)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_ADMIN_ID", "77")
	cfg, err := Load(writeFile(t, "telegram:\n  token: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(77), cfg.Telegram.AdminID)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"no token":      {},
		"bad mode":      {Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}},
		"webhook bare":  {Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}},
		"negative poll": {Telegram: TelegramConfig{Token: "t", LongPollTimeoutSeconds: -1}},
		"bad exclude":   {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}}},
		"bad interval":  {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{IntervalMS: -5}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(&cfg))
		})
	}
	assert.Error(t, Normalize(nil))
}

func TestWebhookRequiresAllFields(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{Token: "t", RunMode: "WEBHOOK"},
		Webhook:  WebhookConfig{URL: "https://bot.example.com/hook"},
	}
	err := Normalize(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.listen, webhook.port")

	cfg.Webhook.Listen, cfg.Webhook.Port = "0.0.0.0", 8443
	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
}

func TestDecodeMissingFile(t *testing.T) {
	var cfg Config
	assert.Error(t, Decode(filepath.Join(t.TempDir(), "absent.yaml"), &cfg))
}
