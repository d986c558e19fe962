package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		LLMProvider:       ProviderOpenAI,
		OpenAIKey:         "sk-test",
		PrimaryTopics:     []string{"ai"},
		HackerNews:        true,
		LLMConcurrency:    1,
		MaxItemsPerSource: 20,
		MaxItemsTotal:     60,
		FetchConcurrency:  4,
		BatchSize:         10,
		ScoreConcurrency:  2,
		TopK:              8,
		QuickLinks:        8,
		MinScore:          5,
		RetentionDays:     14,
		Lookback:          24 * time.Hour,
		FetchTimeout:      30 * time.Second,
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, 24*time.Hour, cfg.Lookback)
	assert.Equal(t, 8, cfg.TopK)
	assert.Equal(t, 5.0, cfg.MinScore)
	assert.Equal(t, 20, cfg.MaxItemsPerSource)
	assert.Contains(t, cfg.PrimaryTopics, "llm")
	assert.Contains(t, cfg.Subreddits, "LocalLLaMA")
	assert.True(t, cfg.HackerNews)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("BRIEF_OPENAI_KEY", "sk-env")
	t.Setenv("BRIEF_SUBREDDITS", "golang,rust")
	t.Setenv("BRIEF_TOP_K", "3")
	t.Setenv("BRIEF_LOOKBACK", "12h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.OpenAIKey)
	assert.Equal(t, []string{"golang", "rust"}, cfg.Subreddits)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 12*time.Hour, cfg.Lookback)
}

func TestLoad_EmptyListDisablesSource(t *testing.T) {
	t.Setenv("BRIEF_RSS_FEEDS", "")
	t.Setenv("BRIEF_ARXIV_CATEGORIES", "  ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.RSSFeeds)
	assert.Empty(t, cfg.ArxivCategories)
	assert.NotEmpty(t, cfg.Subreddits)
}

func TestLoad_DropsBlankEntries(t *testing.T) {
	t.Setenv("BRIEF_SUBSTACK_HANDLES", "simonw,,")
	t.Setenv("BRIEF_SUBREDDITS", " golang , ,rust")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"simonw"}, cfg.SubstackHandles)
	assert.Equal(t, []string{"golang", "rust"}, cfg.Subreddits)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brief.hcl")
	content := `
openai_key = "sk-file"
email_recipient = "me@example.com"
batch_size = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-file", cfg.OpenAIKey)
	assert.Equal(t, "me@example.com", cfg.EmailRecipient)
	assert.Equal(t, 5, cfg.BatchSize)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("reports every problem", func(t *testing.T) {
		cfg := validConfig()
		cfg.OpenAIKey = ""
		cfg.TopK = 0
		cfg.MinScore = 11

		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "openai_key")
		assert.Contains(t, err.Error(), "top_k")
		assert.Contains(t, err.Error(), "min_score")
	})

	t.Run("gemini needs its own key", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = ProviderGemini

		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "gemini_key")
	})

	t.Run("no sources", func(t *testing.T) {
		cfg := validConfig()
		cfg.HackerNews = false

		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "no sources")
	})
}

func TestValidateEmail(t *testing.T) {
	cfg := validConfig()
	err := cfg.ValidateEmail()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "email_recipient")
	assert.Contains(t, err.Error(), "smtp_host")

	cfg.EmailRecipient = "me@example.com"
	cfg.SMTPHost = "smtp.example.com"
	assert.NoError(t, cfg.ValidateEmail())
}

func TestValidateTelegram(t *testing.T) {
	cfg := validConfig()
	require.ErrorIs(t, cfg.ValidateTelegram(), ErrInvalid)

	cfg.TelegramBotToken = "token"
	cfg.TelegramChatID = -100
	assert.NoError(t, cfg.ValidateTelegram())
}

func TestTopics(t *testing.T) {
	cfg := Config{PrimaryTopics: []string{"ai", "llm"}, SecondaryTopics: []string{"homelab"}}
	assert.Equal(t, []string{"ai", "llm", "homelab"}, cfg.Topics())
}
