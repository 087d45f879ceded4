package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "tick.db", cfg.DatabaseURL)
	require.NotNil(t, cfg.Location)
	require.Empty(t, cfg.TelegramToken)
}

func TestLoad_TelegramTokenNeedsChatID(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("TELEGRAM_CHAT_ID", "42")
	cfg, err := Load()
	require.NoError(t, err)
	require.EqualValues(t, 42, cfg.TelegramChatID)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("TIMEZONE", "")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err = Load()
	require.Error(t, err)
}
