package config

import (
	"os"
	"time"

	"github.com/kaytu-io/news-assistant/pkg/koanf"
)

type OpenAI struct {
	Token     string `json:"token,omitempty" koanf:"token"`
	BaseURL   string `json:"base_url,omitempty" koanf:"base_url"`
	OrgID     string `json:"org_id,omitempty" koanf:"org_id"`
	ModelName string `json:"model_name,omitempty" koanf:"model_name"`
}

type Assistant struct {
	// ID pins an existing remote assistant and skips the lookup by name.
	ID              string `json:"id,omitempty" koanf:"id"`
	Name            string `json:"name,omitempty" koanf:"name"`
	Instructions    string `json:"instructions,omitempty" koanf:"instructions"`
	RunInstructions string `json:"run_instructions,omitempty" koanf:"run_instructions"`
}

type News struct {
	APIKey            string  `json:"api_key,omitempty" koanf:"api_key"`
	BaseURL           string  `json:"base_url,omitempty" koanf:"base_url"`
	PageSize          int     `json:"page_size,omitempty" koanf:"page_size"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" koanf:"requests_per_second"`
}

type Run struct {
	PollInterval time.Duration `json:"poll_interval,omitempty" koanf:"poll_interval"`
	MaxWait      time.Duration `json:"max_wait,omitempty" koanf:"max_wait"`
	MaxPolls     int           `json:"max_polls,omitempty" koanf:"max_polls"`
	ReapInterval time.Duration `json:"reap_interval,omitempty" koanf:"reap_interval"`
	StaleAfter   time.Duration `json:"stale_after,omitempty" koanf:"stale_after"`
}

type AssistantConfig struct {
	Postgres  koanf.Postgres   `json:"postgres,omitempty" koanf:"postgres"`
	SQLite    koanf.SQLite     `json:"sqlite,omitempty" koanf:"sqlite"`
	OpenAI    OpenAI           `json:"openai,omitempty" koanf:"openai"`
	Assistant Assistant        `json:"assistant,omitempty" koanf:"assistant"`
	News      News             `json:"news,omitempty" koanf:"news"`
	Run       Run              `json:"run,omitempty" koanf:"run"`
	Http      koanf.HttpServer `json:"http,omitempty" koanf:"http"`
}

func Default() AssistantConfig {
	return AssistantConfig{
		SQLite: koanf.SQLite{Path: "assistant.db"},
		OpenAI: OpenAI{ModelName: "gpt-3.5-turbo-16k"},
		Assistant: Assistant{
			Name:            "News Summarizer",
			Instructions:    "You are a personal article summarizer assistant who knows how to take a list of article titles and descriptions and then write a short summary of all the news articles.",
			RunInstructions: "Summarize the news",
		},
		News: News{
			BaseURL:           "https://newsapi.org",
			PageSize:          5,
			RequestsPerSecond: 1,
		},
		Run: Run{
			PollInterval: time.Second,
			MaxWait:      2 * time.Minute,
			ReapInterval: time.Minute,
			StaleAfter:   10 * time.Minute,
		},
		Http: koanf.HttpServer{Address: "localhost:8000"},
	}
}

const (
	OpenAIKeyEnv = "OPENAI_API_KEY"
	NewsKeyEnv   = "NEWS_API_KEY"
)

// WithFallbackKeys fills the API keys left empty from OPENAI_API_KEY and
// NEWS_API_KEY.
func (c AssistantConfig) WithFallbackKeys() AssistantConfig {
	if c.OpenAI.Token == "" {
		c.OpenAI.Token = os.Getenv(OpenAIKeyEnv)
	}
	if c.News.APIKey == "" {
		c.News.APIKey = os.Getenv(NewsKeyEnv)
	}
	return c
}
