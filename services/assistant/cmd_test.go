package assistant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	t.Setenv("ASSISTANT_HTTP__ADDRESS", "127.0.0.1:9999")

	cmd := Command()
	require.Equal(t, "assistant-service", cmd.Use)

	summarize, _, err := cmd.Find([]string{"summarize"})
	require.NoError(t, err)
	require.Equal(t, "summarize <topic>", summarize.Use)
	require.Error(t, summarize.Args(summarize, nil))
	require.NoError(t, summarize.Args(summarize, []string{"bitcoin"}))
}

func TestCommandRequiresToken(t *testing.T) {
	t.Setenv("ASSISTANT_OPENAI__TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")

	cmd := Command()
	cmd.SetArgs([]string{"summarize", "bitcoin"})
	err := cmd.Execute()
	require.ErrorContains(t, err, "openai token is not configured")
}
