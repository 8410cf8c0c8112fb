// Package actions performs the deterministic commands of the assistant:
// launching programs and websites, encyclopedia lookups and music playback.
package actions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	log "log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	DefaultMusicDir  = "music"
	SummarySentences = 2
)

// Player plays an audio file without blocking.
type Player interface {
	Play(path string) error
}

type Handler struct {
	launcher Launcher
	ref      Reference
	player   Player
	musicDir string
	rand     *rand.Rand
	log      *log.Logger
}

type Option func(*Handler)

func WithPlayer(p Player) Option {
	return func(h *Handler) {
		h.player = p
	}
}

func WithMusicDir(dir string) Option {
	return func(h *Handler) {
		if dir != "" {
			h.musicDir = dir
		}
	}
}

func WithRand(r *rand.Rand) Option {
	return func(h *Handler) {
		h.rand = r
	}
}

func WithLogger(l *log.Logger) Option {
	return func(h *Handler) {
		h.log = l
	}
}

func NewHandler(launcher Launcher, ref Reference, opts ...Option) *Handler {
	h := &Handler{
		launcher: launcher,
		ref:      ref,
		musicDir: DefaultMusicDir,
		rand:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		log:      log.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// PlayMusic plays a random mp3 from the music directory. Without a player
// the file is handed to the desktop.
func (h *Handler) PlayMusic(ctx context.Context) string {
	entries, err := os.ReadDir(h.musicDir)
	if errors.Is(err, fs.ErrNotExist) {
		return "Music directory not found. Please create a 'music' folder."
	}
	if err != nil {
		h.log.Error("Music playback error", "dir", h.musicDir, "err", err)
		return fmt.Sprintf("Sorry, an error occurred while trying to play music: %v", err)
	}

	var songs []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".mp3") {
			songs = append(songs, e.Name())
		}
	}
	if len(songs) == 0 {
		return "No music files found in the music directory."
	}
	slices.Sort(songs)

	song := songs[h.rand.IntN(len(songs))]
	path := filepath.Join(h.musicDir, song)

	if h.player != nil {
		err = h.player.Play(path)
	} else {
		err = h.launcher.OpenFile(ctx, path)
	}
	if err != nil {
		h.log.Error("Music playback error", "path", path, "err", err)
		return fmt.Sprintf("Sorry, an error occurred while trying to play music: %v", err)
	}

	h.log.Info("Playing music", "song", song)
	return "Now playing: " + song
}

func (h *Handler) OpenWebsite(ctx context.Context, url, name string) string {
	if err := h.launcher.OpenURL(ctx, url); err != nil {
		h.log.Error("Error opening website", "url", url, "err", err)
		return fmt.Sprintf("Sorry, I couldn't open %s.", name)
	}
	return fmt.Sprintf("Opening %s...", name)
}

func (h *Handler) SearchReference(ctx context.Context, query string) string {
	h.log.Info("Searching Wikipedia", "query", query)

	summary, err := h.ref.Summary(ctx, query, SummarySentences)
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("Sorry, I could not find anything on Wikipedia for '%s'.", query)
	case errors.Is(err, ErrAmbiguous):
		return fmt.Sprintf("There are multiple results for '%s'. Please be more specific.", query)
	case err != nil:
		h.log.Error("Wikipedia search error", "query", query, "err", err)
		return "Sorry, an error occurred while searching Wikipedia."
	}
	return summary
}

func (h *Handler) OpenApplication(ctx context.Context, name string) string {
	if err := h.launcher.Launch(ctx, name); err != nil {
		h.log.Error("Error opening application", "app", name, "err", err)
		return fmt.Sprintf("Sorry, I couldn't open %s.", name)
	}
	return fmt.Sprintf("Opening %s...", name)
}

func (h *Handler) CloseApplication(ctx context.Context, name string) string {
	if err := h.launcher.Quit(ctx, name); err != nil {
		h.log.Error("Error closing application", "app", name, "err", err)
		return fmt.Sprintf("Sorry, I couldn't close %s.", name)
	}
	return fmt.Sprintf("Closing %s...", name)
}
