// Package server exposes the assistant over a websocket, streaming each
// reply as it is generated.
package server

import (
	"context"
	"encoding/json"
	"iter"
	log "log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"jarvis/internal/prompt"
)

const (
	KindChunk = "chunk"
	KindDone  = "done"
	KindError = "error"
)

// Request is a client frame.
type Request struct {
	Text    string `json:"text"`
	Persona string `json:"persona,omitempty"`
}

// Frame is a server frame. A reply is zero or more chunks followed by done,
// whose content is the full reply.
type Frame struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type Responder interface {
	RespondStream(ctx context.Context, utterance string, persona prompt.Persona) iter.Seq[string]
}

type Handler struct {
	// mu serialises exchanges across connections; there is one conversation.
	mu       sync.Mutex
	resp     Responder
	catalog  *prompt.Catalog
	persona  prompt.Persona
	upgrader ws.Upgrader
	log      *log.Logger
}

// NewHandler answers with persona unless a request names another persona
// known to catalog. A nil catalog means the built-in personas.
func NewHandler(r Responder, catalog *prompt.Catalog, persona prompt.Persona, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	if catalog == nil {
		catalog = prompt.NewCatalog()
	}
	return &Handler{
		resp:    r,
		catalog: catalog,
		persona: persona,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	h.log.Info("Client connected", "remote", r.RemoteAddr)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !isClosed(err) {
				h.log.Warn("Websocket read failed", "err", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			if err := conn.WriteJSON(Frame{Kind: KindError, Content: "malformed request"}); err != nil {
				return
			}
			continue
		}

		persona := h.persona
		if req.Persona != "" {
			p, ok := h.catalog.Lookup(req.Persona)
			if !ok {
				if err := conn.WriteJSON(Frame{Kind: KindError, Content: "unknown persona " + req.Persona}); err != nil {
					return
				}
				continue
			}
			persona = p
		}

		if err := h.exchange(r.Context(), conn, req.Text, persona); err != nil {
			h.log.Warn("Websocket write failed", "err", err)
			return
		}
	}
}

func (h *Handler) exchange(ctx context.Context, conn *ws.Conn, text string, persona prompt.Persona) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var (
		full     string
		writeErr error
	)
	for chunk := range h.resp.RespondStream(ctx, text, persona) {
		full += chunk
		if writeErr != nil {
			continue
		}
		writeErr = conn.WriteJSON(Frame{Kind: KindChunk, Content: chunk})
	}
	if writeErr != nil {
		return writeErr
	}
	return conn.WriteJSON(Frame{Kind: KindDone, Content: full})
}

// Serve runs the websocket endpoint on addr until ctx is done.
func Serve(ctx context.Context, addr string, h *Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	h.log.Info("Websocket server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
