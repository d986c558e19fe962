package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
	"github.com/samber/lo"
)

const envPrefix = "BRIEF"

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is read once from BRIEF_* environment variables and the optional
// config.hcl / config.local.hcl files and never modified afterwards.
type Config struct {
	LogLevel  string `hcl:"log_level" env:"LOG_LEVEL" default:"info"`
	LogFormat string `hcl:"log_format" env:"LOG_FORMAT" default:"text"`

	LLMProvider    string        `hcl:"llm_provider" env:"LLM_PROVIDER" default:"openai"`
	OpenAIKey      string        `hcl:"openai_key" env:"OPENAI_KEY"`
	OpenAIBaseURL  string        `hcl:"openai_base_url" env:"OPENAI_BASE_URL"`
	OpenAIModel    string        `hcl:"openai_model" env:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GeminiKey      string        `hcl:"gemini_key" env:"GEMINI_KEY"`
	GeminiBaseURL  string        `hcl:"gemini_base_url" env:"GEMINI_BASE_URL"`
	GeminiModel    string        `hcl:"gemini_model" env:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	LLMConcurrency int           `hcl:"llm_concurrency" env:"LLM_CONCURRENCY" default:"4"`
	LLMInterval    time.Duration `hcl:"llm_interval" env:"LLM_INTERVAL" default:"300ms"`

	PrimaryTopics   []string `hcl:"primary_topics" env:"PRIMARY_TOPICS" default:"ai,llm,agents,mcp,voice-ai,claude,anthropic,openai,coding-tools,developer-tools"`
	SecondaryTopics []string `hcl:"secondary_topics" env:"SECONDARY_TOPICS" default:"home-assistant,homelab,raspberry-pi,smart-home"`

	SubstackHandles     []string `hcl:"substack_handles" env:"SUBSTACK_HANDLES" default:"simonw,latentspace,oneusefulthing,interconnects,thezvi"`
	Subreddits          []string `hcl:"subreddits" env:"SUBREDDITS" default:"LocalLLaMA,MachineLearning,selfhosted,homelab"`
	RedditSort          string   `hcl:"reddit_sort" env:"REDDIT_SORT" default:"hot"`
	HackerNews          bool     `hcl:"hacker_news" env:"HACKER_NEWS" default:"true"`
	HackerNewsStoryType string   `hcl:"hacker_news_story_type" env:"HACKER_NEWS_STORY_TYPE" default:"top"`
	ArxivCategories     []string `hcl:"arxiv_categories" env:"ARXIV_CATEGORIES" default:"cs.AI,cs.LG,cs.CL"`
	RSSFeeds            []string `hcl:"rss_feeds" env:"RSS_FEEDS" default:"https://www.anthropic.com/news/rss.xml,https://openai.com/blog/rss.xml,https://huggingface.co/blog/feed.xml"`
	PodcastFeeds        []string `hcl:"podcast_feeds" env:"PODCAST_FEEDS"`
	GitHubTrending      bool     `hcl:"github_trending" env:"GITHUB_TRENDING" default:"true"`
	GitHubLanguage      string   `hcl:"github_language" env:"GITHUB_LANGUAGE"`
	GitHubSince         string   `hcl:"github_since" env:"GITHUB_SINCE" default:"daily"`

	TranscriptionKey     string `hcl:"transcription_key" env:"TRANSCRIPTION_KEY"`
	TranscriptionBaseURL string `hcl:"transcription_base_url" env:"TRANSCRIPTION_BASE_URL" default:"https://api.groq.com/openai/v1"`
	TranscriptionModel   string `hcl:"transcription_model" env:"TRANSCRIPTION_MODEL" default:"whisper-large-v3-turbo"`

	Lookback          time.Duration `hcl:"lookback" env:"LOOKBACK" default:"24h"`
	MaxItemsPerSource int           `hcl:"max_items_per_source" env:"MAX_ITEMS_PER_SOURCE" default:"20"`
	MaxItemsTotal     int           `hcl:"max_items_total" env:"MAX_ITEMS_TOTAL" default:"60"`
	FetchConcurrency  int           `hcl:"fetch_concurrency" env:"FETCH_CONCURRENCY" default:"8"`
	FetchTimeout      time.Duration `hcl:"fetch_timeout" env:"FETCH_TIMEOUT" default:"30s"`
	UserAgent         string        `hcl:"user_agent" env:"USER_AGENT" default:"intelligence-brief/1.0 (+https://github.com/kovalyov-valentin/intelligence-brief)"`
	ExcludeKeywords   []string      `hcl:"exclude_keywords" env:"EXCLUDE_KEYWORDS"`
	SourcePriority    []string      `hcl:"source_priority" env:"SOURCE_PRIORITY" default:"rss,substack,arxiv,hackernews,github,podcast,reddit"`

	BatchSize        int     `hcl:"batch_size" env:"BATCH_SIZE" default:"10"`
	ScoreConcurrency int     `hcl:"score_concurrency" env:"SCORE_CONCURRENCY" default:"3"`
	TopK             int     `hcl:"top_k" env:"TOP_K" default:"8"`
	QuickLinks       int     `hcl:"quick_links" env:"QUICK_LINKS" default:"8"`
	MinScore         float64 `hcl:"min_score" env:"MIN_SCORE" default:"5"`

	EmailRecipient string `hcl:"email_recipient" env:"EMAIL_RECIPIENT"`
	EmailFrom      string `hcl:"email_from" env:"EMAIL_FROM" default:"Intelligence Brief <onboarding@resend.dev>"`
	ResendKey      string `hcl:"resend_key" env:"RESEND_KEY"`
	SMTPHost       string `hcl:"smtp_host" env:"SMTP_HOST"`
	SMTPPort       int    `hcl:"smtp_port" env:"SMTP_PORT" default:"587"`
	SMTPUser       string `hcl:"smtp_user" env:"SMTP_USER"`
	SMTPPassword   string `hcl:"smtp_password" env:"SMTP_PASSWORD"`

	TelegramBotToken string `hcl:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `hcl:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`

	DatabaseDSN   string `hcl:"database_dsn" env:"DATABASE_DSN"`
	RetentionDays int    `hcl:"retention_days" env:"RETENTION_DAYS" default:"14"`

	RunTimeout time.Duration `hcl:"run_timeout" env:"RUN_TIMEOUT" default:"15m"`
}

// Load reads the configuration. Extra files are merged after the default ones.
// Command line flags are left to the CLI.
func Load(files ...string) (Config, error) {
	var cfg Config

	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          envPrefix,
		SkipFlags:          true,
		AllowUnknownFields: true,
		Files:              append([]string{"./config.hcl", "./config.local.hcl"}, files...),
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})

	if err := loader.Load(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg.normalizeLists()

	return cfg, nil
}

// normalizeLists drops blank entries. A list variable that is set but empty
// disables the list instead of keeping its default.
func (c *Config) normalizeLists() {
	lists := map[string]*[]string{
		"PRIMARY_TOPICS":   &c.PrimaryTopics,
		"SECONDARY_TOPICS": &c.SecondaryTopics,
		"SUBSTACK_HANDLES": &c.SubstackHandles,
		"SUBREDDITS":       &c.Subreddits,
		"ARXIV_CATEGORIES": &c.ArxivCategories,
		"RSS_FEEDS":        &c.RSSFeeds,
		"PODCAST_FEEDS":    &c.PodcastFeeds,
		"EXCLUDE_KEYWORDS": &c.ExcludeKeywords,
		"SOURCE_PRIORITY":  &c.SourcePriority,
	}

	for key, list := range lists {
		if v, ok := os.LookupEnv(envPrefix + "_" + key); ok && strings.TrimSpace(v) == "" {
			*list = nil
			continue
		}

		*list = lo.Compact(lo.Map(*list, func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	}
}

// Topics returns the primary topics followed by the secondary ones.
func (c Config) Topics() []string {
	topics := make([]string, 0, len(c.PrimaryTopics)+len(c.SecondaryTopics))
	topics = append(topics, c.PrimaryTopics...)
	return append(topics, c.SecondaryTopics...)
}

// SourcesEnabled reports whether at least one source has configuration.
func (c Config) SourcesEnabled() bool {
	return len(c.SubstackHandles) > 0 ||
		len(c.Subreddits) > 0 ||
		c.HackerNews ||
		len(c.ArxivCategories) > 0 ||
		len(c.RSSFeeds) > 0 ||
		len(c.PodcastFeeds) > 0 ||
		c.GitHubTrending
}

// Validate checks everything a run needs and reports all problems at once.
func (c Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			errs = append(errs, errors.New("openai_key is required for the openai provider"))
		}
	case ProviderGemini:
		if c.GeminiKey == "" {
			errs = append(errs, errors.New("gemini_key is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm_provider %q", c.LLMProvider))
	}

	if !c.SourcesEnabled() {
		errs = append(errs, errors.New("no sources configured"))
	}
	if len(c.PrimaryTopics) == 0 {
		errs = append(errs, errors.New("primary_topics must not be empty"))
	}

	positive := []struct {
		name  string
		value int
	}{
		{"llm_concurrency", c.LLMConcurrency},
		{"max_items_per_source", c.MaxItemsPerSource},
		{"max_items_total", c.MaxItemsTotal},
		{"fetch_concurrency", c.FetchConcurrency},
		{"batch_size", c.BatchSize},
		{"score_concurrency", c.ScoreConcurrency},
		{"top_k", c.TopK},
		{"retention_days", c.RetentionDays},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}

	if c.QuickLinks < 0 {
		errs = append(errs, fmt.Errorf("quick_links must not be negative, got %d", c.QuickLinks))
	}
	if c.MinScore < 0 || c.MinScore > 10 {
		errs = append(errs, fmt.Errorf("min_score must be within [0, 10], got %v", c.MinScore))
	}
	if c.Lookback <= 0 {
		errs = append(errs, fmt.Errorf("lookback must be positive, got %s", c.Lookback))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout))
	}

	return wrap(errs)
}

// ValidateEmail checks the settings needed to deliver the brief by email.
func (c Config) ValidateEmail() error {
	var errs []error

	if c.EmailRecipient == "" {
		errs = append(errs, errors.New("email_recipient is required to send email"))
	}
	if c.ResendKey == "" && c.SMTPHost == "" {
		errs = append(errs, errors.New("either resend_key or smtp_host is required to send email"))
	}

	return wrap(errs)
}

// ValidateTelegram checks the settings needed for the Telegram notification.
func (c Config) ValidateTelegram() error {
	var errs []error

	if c.TelegramBotToken == "" {
		errs = append(errs, errors.New("telegram_bot_token is required to notify"))
	}
	if c.TelegramChatID == 0 {
		errs = append(errs, errors.New("telegram_chat_id is required to notify"))
	}

	return wrap(errs)
}

func wrap(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
