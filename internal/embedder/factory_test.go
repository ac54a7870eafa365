package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvGoogleAPIKey, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"explicit", map[string]string{EnvProvider: "JINA", EnvGoogleAPIKey: "g"}, ProviderJina},
		{"explicit local", map[string]string{EnvProvider: "local"}, ProviderLocal},
		{"google key", map[string]string{EnvGoogleAPIKey: "g", EnvJinaAPIKey: "j"}, ProviderGemini},
		{"jina key", map[string]string{EnvJinaAPIKey: "j", EnvOpenAIAPIKey: "o"}, ProviderJina},
		{"openai key", map[string]string{EnvOpenAIAPIKey: "o"}, ProviderOpenAI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := DetectProvider()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectProvider_NothingConfigured(t *testing.T) {
	clearProviderEnv(t)

	_, err := DetectProvider()
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	_, err = New(Config{})
	assert.ErrorIs(t, err, ErrNoProviderEnabled, "no silent fallback to local vectors")
}

func TestNew(t *testing.T) {
	clearProviderEnv(t)

	tests := []struct {
		name     string
		cfg      Config
		provider string
		wantErr  bool
	}{
		{"local", Config{Provider: "local"}, ProviderLocal, false},
		{"jina", Config{Provider: "jina", APIKey: "k"}, ProviderJina, false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, ProviderOpenAI, false},
		{"openai compatible", Config{Provider: "openai", BaseURL: "http://localhost:11434/v1", Model: "nomic"}, ProviderOpenAI, false},
		{"gemini", Config{Provider: "gemini", APIKey: "k"}, ProviderGemini, false},
		{"jina without key", Config{Provider: "jina"}, "", true},
		{"unknown", Config{Provider: "word2vec"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, emb.Provider())
			assert.NoError(t, emb.Close())
		})
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "word2vec"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}
