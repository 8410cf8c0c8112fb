// Package config reads the command line, an optional env file and the
// environment. Flags win over the environment, which wins over defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
)

const placeholderKey = "YOUR_API_KEY_HERE"

var (
	ErrMissingAPIKey = errors.New("api key not configured")
	ErrInvalidMode   = errors.New("invalid mode")
)

const (
	ModeText   = "text"
	ModeVoice  = "voice"
	ModeDaemon = "daemon"
	ModeWS     = "ws"
)

type Config struct {
	EnvFile  string
	LogLevel string
	Proxy    string

	Provider string
	Model    string
	BaseURL  string
	APIKey   string

	History  string
	Redis    string
	RedisKey string

	Persona  string
	Personas string

	MusicDir  string
	ExportDir string

	Mode         string
	Stream       bool
	Listen       string
	Socket       string
	WhisperModel string
	Inputs       []string
	Duck         bool
}

// env names each flag may be taken from.
var envNames = map[string]string{
	"log":        "JARVIS_LOG",
	"proxy":      "JARVIS_PROXY",
	"provider":   "JARVIS_PROVIDER",
	"model":      "JARVIS_MODEL",
	"base-url":   "JARVIS_BASE_URL",
	"history":    "JARVIS_HISTORY",
	"redis":      "JARVIS_REDIS_URL",
	"redis-key":  "JARVIS_REDIS_KEY",
	"persona":    "JARVIS_PERSONA",
	"personas":   "JARVIS_PERSONAS",
	"music-dir":  "JARVIS_MUSIC_DIR",
	"export-dir": "JARVIS_EXPORT_DIR",
	"mode":       "JARVIS_MODE",
	"listen":     "JARVIS_LISTEN",
	"socket":     "JARVIS_SOCKET",
	"whisper":    "JARVIS_WHISPER_MODEL",
}

// Load parses args (without the program name).
func Load(args []string) (Config, error) {
	var c Config

	fs := cli.NewFlagSet("jarvis", cli.ContinueOnError)
	fs.StringVarP(&c.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&c.LogLevel, "log", "l", "info", "Log level (debug, info, warn, error)")
	fs.StringVarP(&c.Proxy, "proxy", "p", "", "Socks proxy address, empty for direct connections")
	fs.StringVar(&c.Provider, "provider", "gemini", "Generation provider (gemini, openai)")
	fs.StringVar(&c.Model, "model", "", "Model name, empty for the provider default")
	fs.StringVar(&c.BaseURL, "base-url", "", "Override the provider endpoint")
	fs.StringVar(&c.History, "history", "jarvis/conversation_history.json", "Conversation history file")
	fs.StringVar(&c.Redis, "redis", "", "Keep the history in redis at this URL instead of a file")
	fs.StringVar(&c.RedisKey, "redis-key", "jarvis:history", "Redis key of the history")
	fs.StringVar(&c.Persona, "persona", "Default", "Initial persona")
	fs.StringVar(&c.Personas, "personas", "", "YAML file with extra or overridden personas")
	fs.StringVar(&c.MusicDir, "music-dir", "music", "Directory with mp3 files")
	fs.StringVar(&c.ExportDir, "export-dir", ".", "Directory for exported conversations")
	fs.StringVarP(&c.Mode, "mode", "m", ModeText, "Front end (text, voice, daemon, ws)")
	fs.BoolVar(&c.Stream, "stream", false, "Print replies as they are generated")
	fs.StringVar(&c.Listen, "listen", "127.0.0.1:8092", "Websocket listen address")
	fs.StringVar(&c.Socket, "socket", "/tmp/jarvis.sock", "Daemon control socket")
	fs.StringVar(&c.WhisperModel, "whisper", "third_party/whisper.cpp/models/ggml-base.en.bin", "Whisper model path")
	fs.StringSliceVar(&c.Inputs, "input", nil, "Transcribe these audio files instead of the microphone")
	fs.BoolVar(&c.Duck, "duck", true, "Lower other audio while speaking")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", c.EnvFile, err)
	}

	for name, env := range envNames {
		v, ok := os.LookupEnv(env)
		if !ok || v == "" || fs.Changed(name) {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", env, err)
		}
	}

	switch c.Mode {
	case ModeText, ModeVoice, ModeDaemon, ModeWS:
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}

	c.Provider = strings.ToLower(c.Provider)
	key, err := APIKey(c.Provider)
	if err != nil {
		return Config{}, err
	}
	c.APIKey = key

	return c, nil
}

// KeyVar is the environment variable holding the key of provider.
func KeyVar(provider string) string {
	if provider == "openai" {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// APIKey reads the credential of provider, rejecting the template value.
func APIKey(provider string) (string, error) {
	name := KeyVar(provider)
	key := strings.TrimSpace(os.Getenv(name))
	if key == "" || key == placeholderKey {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingAPIKey, name)
	}
	return key, nil
}
