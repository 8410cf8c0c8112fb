package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return "--env=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")

	c, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Provider)
	assert.Equal(t, "g-key", c.APIKey)
	assert.Equal(t, ModeText, c.Mode)
	assert.Equal(t, "jarvis/conversation_history.json", c.History)
	assert.Equal(t, "Default", c.Persona)
	assert.True(t, c.Duck)
}

func TestLoad_MissingKey(t *testing.T) {
	for _, v := range []string{"", "YOUR_API_KEY_HERE", "   "} {
		t.Setenv("GEMINI_API_KEY", v)
		_, err := Load([]string{noEnvFile(t)})
		assert.ErrorIs(t, err, ErrMissingAPIKey, "value %q", v)
	}
}

func TestLoad_OpenAIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	c, err := Load([]string{noEnvFile(t), "--provider=OpenAI"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Provider)
	assert.Equal(t, "sk-test", c.APIKey)
}

func TestLoad_EnvFileAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("GEMINI_API_KEY=from-file\nJARVIS_PERSONA=Tutor\nJARVIS_MODE=ws\n"), 0o600))

	// godotenv does not override variables that already exist.
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	t.Setenv("JARVIS_PERSONA", "")
	os.Unsetenv("JARVIS_PERSONA")
	t.Setenv("JARVIS_MODE", "")
	os.Unsetenv("JARVIS_MODE")

	c, err := Load([]string{"--env", envFile, "--mode", "daemon", "--input", "a.wav,b.wav"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", c.APIKey)
	assert.Equal(t, "Tutor", c.Persona)
	assert.Equal(t, ModeDaemon, c.Mode)
	assert.Equal(t, []string{"a.wav", "b.wav"}, c.Inputs)
}

func TestLoad_InvalidMode(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	_, err := Load([]string{noEnvFile(t), "--mode", "telepathy"})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestLoad_BadFlag(t *testing.T) {
	_, err := Load([]string{"--nope"})
	assert.Error(t, err)
}

func TestKeyVar(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", KeyVar("openai"))
	assert.Equal(t, "GEMINI_API_KEY", KeyVar("gemini"))
	assert.Equal(t, "GEMINI_API_KEY", KeyVar(""))
}
