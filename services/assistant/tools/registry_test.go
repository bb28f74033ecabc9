package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(out string) Handler {
	return func(context.Context, map[string]any) (string, error) {
		return out, nil
	}
}

func TestRegistryInvoke(t *testing.T) {
	r := NewRegistry(Definition{Name: "echo", Handler: func(_ context.Context, args map[string]any) (string, error) {
		return args["text"].(string), nil
	}})

	out, err := r.Invoke(context.Background(), "echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	require.Equal(t, "hello", out)

	// same arguments, same output
	again, err := r.Invoke(context.Background(), "echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestRegistryUnknownFunction(t *testing.T) {
	r := NewRegistry()

	_, err := r.Invoke(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrUnknownFunction)
	require.Contains(t, err.Error(), "missing")
	require.Empty(t, r.Definitions())
}

func TestRegistryLastWriteWins(t *testing.T) {
	r := NewRegistry(Definition{Name: "tool", Handler: constant("first")})
	r.Register(Definition{Name: "tool", Handler: constant("second")})

	out, err := r.Invoke(context.Background(), "tool", nil)
	require.NoError(t, err)
	require.Equal(t, "second", out)
	require.Len(t, r.Definitions(), 1)
}

func TestRegistryHandlerErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry(Definition{Name: "fail", Handler: func(context.Context, map[string]any) (string, error) {
		return "", boom
	}})

	_, err := r.Invoke(context.Background(), "fail", nil)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrUnknownFunction)
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	r := NewRegistry(
		Definition{Name: "b", Handler: constant("")},
		Definition{Name: "a", Handler: constant("")},
		Definition{Name: "c", Handler: constant("")},
	)

	var names []string
	for _, def := range r.Definitions() {
		names = append(names, def.Name)
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
}

func TestRegistryConcurrentInvoke(t *testing.T) {
	r := NewRegistry(Definition{Name: "tool", Handler: constant("ok")})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Invoke(context.Background(), "tool", nil)
			assert.NoError(t, err)
			assert.Equal(t, "ok", out)
		}()
	}
	wg.Wait()
}

func TestSchema(t *testing.T) {
	b, err := json.Marshal(Schema[GetNewsInput]())
	require.NoError(t, err)

	var schema struct {
		Type       string                    `json:"type"`
		Properties map[string]map[string]any `json:"properties"`
		Required   []string                  `json:"required"`
	}
	require.NoError(t, json.Unmarshal(b, &schema))
	require.Equal(t, "object", schema.Type)
	require.Equal(t, "string", schema.Properties["topic"]["type"])
	require.Equal(t, "The topic for the news, e.g. bitcoin", schema.Properties["topic"]["description"])
	require.Equal(t, []string{"topic"}, schema.Required)
	require.NotContains(t, string(b), "$schema")
}

func TestDecode(t *testing.T) {
	in, err := Decode[GetTopHeadlinesInput](map[string]any{"country": "de", "category": "science"})
	require.NoError(t, err)
	require.Equal(t, GetTopHeadlinesInput{Country: "de", Category: "science"}, in)

	_, err = Decode[GetNewsInput](map[string]any{"topic": 42})
	require.Error(t, err)
}
