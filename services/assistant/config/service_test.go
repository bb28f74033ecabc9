package config

import (
	"testing"

	"github.com/kaytu-io/news-assistant/pkg/koanf"
	"github.com/stretchr/testify/require"
)

func TestWithFallbackKeys(t *testing.T) {
	t.Setenv(OpenAIKeyEnv, "sk-plain")
	t.Setenv(NewsKeyEnv, "news-plain")

	t.Run("unprefixed", func(t *testing.T) {
		cnf := koanf.Provide("assistant", Default()).WithFallbackKeys()
		require.Equal(t, "sk-plain", cnf.OpenAI.Token)
		require.Equal(t, "news-plain", cnf.News.APIKey)
	})

	t.Run("prefixed wins", func(t *testing.T) {
		t.Setenv("ASSISTANT_OPENAI__TOKEN", "sk-prefixed")
		t.Setenv("ASSISTANT_NEWS__API_KEY", "news-prefixed")

		cnf := koanf.Provide("assistant", Default()).WithFallbackKeys()
		require.Equal(t, "sk-prefixed", cnf.OpenAI.Token)
		require.Equal(t, "news-prefixed", cnf.News.APIKey)
	})
}
