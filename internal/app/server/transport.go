package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
	"golang.org/x/net/websocket"
)

const (
	maxFramePayloadRunes   = 2000
	maxDecodeErrorsPerConn = 3
)

// Conversationalist handles one inbound conversation message and returns
// the outbound reply.
type Conversationalist interface {
	HandleMessage(ctx context.Context, owner, text string) (string, error)
}

// LinkFlow runs the grant-based board authorization round trip.
type LinkFlow interface {
	BeginLink(owner string) (string, error)
	CompleteLink(ctx context.Context, owner, grant, token string) error
}

type wsFrame struct {
	Type  string `json:"type"`
	Owner string `json:"owner,omitempty"`
	Text  string `json:"text,omitempty"`
}

type wsReply struct {
	Type   string `json:"type"`
	Author string `json:"author"`
	Text   string `json:"text"`
	SentAt string `json:"sent_at"`
}

type wsErrorEnvelope struct {
	Type  string  `json:"type"`
	Error wsError `json:"error"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) write(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(v)
}

// NewHandler creates the goalforge HTTP routes: a liveness probe at /up,
// the conversational WebSocket surface at /ws, and the board authorization
// round trip at /link and /link/callback.
func NewHandler(conv Conversationalist, links LinkFlow) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/link", func(w http.ResponseWriter, r *http.Request) {
		handleLinkStart(w, r, links)
	})
	mux.HandleFunc("/link/callback", func(w http.ResponseWriter, r *http.Request) {
		handleLinkCallback(w, r, links)
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, conv)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

type linkStartResponse struct {
	Owner string `json:"owner"`
	Grant string `json:"grant"`
}

type linkCallbackResponse struct {
	Owner  string `json:"owner"`
	Linked bool   `json:"linked"`
}

// handleLinkStart issues a grant the client carries through the board
// authorize page.
func handleLinkStart(w http.ResponseWriter, r *http.Request, links LinkFlow) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		writeLinkError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "owner is required")
		return
	}
	if links == nil {
		writeLinkError(w, http.StatusServiceUnavailable, "LINK_FLOW_DISABLED", "board authorization is not configured")
		return
	}

	grant, err := links.BeginLink(owner)
	if err != nil {
		if errors.Is(err, board.ErrLinkFlowDisabled) {
			writeLinkError(w, http.StatusServiceUnavailable, "LINK_FLOW_DISABLED", "board authorization is not configured")
			return
		}
		log.Printf("begin board link for %s: %v", owner, err)
		writeLinkError(w, http.StatusInternalServerError, "INTERNAL", apperrors.UserMessage(err))
		return
	}
	writeLinkJSON(w, http.StatusOK, linkStartResponse{Owner: owner, Grant: grant})
}

// handleLinkCallback validates the returning grant and stores the
// authorized board token.
func handleLinkCallback(w http.ResponseWriter, r *http.Request, links LinkFlow) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	owner := strings.TrimSpace(query.Get("owner"))
	grant := strings.TrimSpace(query.Get("grant"))
	token := strings.TrimSpace(query.Get("token"))
	if owner == "" || grant == "" || token == "" {
		writeLinkError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "owner, grant, and token are required")
		return
	}
	if links == nil {
		writeLinkError(w, http.StatusServiceUnavailable, "LINK_FLOW_DISABLED", "board authorization is not configured")
		return
	}

	if err := links.CompleteLink(r.Context(), owner, grant, token); err != nil {
		if errors.Is(err, board.ErrLinkFlowDisabled) {
			writeLinkError(w, http.StatusServiceUnavailable, "LINK_FLOW_DISABLED", "board authorization is not configured")
			return
		}
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			writeLinkError(w, http.StatusForbidden, string(appErr.Code), apperrors.UserMessage(err))
			return
		}
		log.Printf("complete board link for %s: %v", owner, err)
		writeLinkError(w, http.StatusInternalServerError, "INTERNAL", apperrors.UserMessage(err))
		return
	}
	writeLinkJSON(w, http.StatusOK, linkCallbackResponse{Owner: owner, Linked: true})
}

func writeLinkJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeLinkError(w http.ResponseWriter, status int, code, message string) {
	writeLinkJSON(w, status, wsErrorEnvelope{
		Type:  "error",
		Error: wsError{Code: code, Message: message},
	})
}

func handleWSConn(conn *websocket.Conn, conv Conversationalist) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	peer := newWSPeer(json.NewEncoder(conn))

	owner := ""
	if request := conn.Request(); request != nil {
		owner = strings.TrimSpace(request.URL.Query().Get("owner"))
	}

	decodeErrors := 0
	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(peer, "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		frameOwner := strings.TrimSpace(frame.Owner)
		if frameOwner == "" {
			frameOwner = owner
		}
		if frameOwner == "" {
			_ = writeWSError(peer, "INVALID_ARGUMENT", "owner is required")
			continue
		}
		if utf8.RuneCountInString(frame.Text) > maxFramePayloadRunes {
			_ = writeWSError(peer, "INVALID_ARGUMENT", "message is too long")
			continue
		}

		request := conn.Request()
		ctx := context.Background()
		if request != nil {
			ctx = request.Context()
		}

		reply, err := conv.HandleMessage(ctx, frameOwner, frame.Text)
		if err != nil {
			log.Printf("goalforge: handle message for owner=%q: %v", frameOwner, err)
			_ = writeWSError(peer, errorCode(err), apperrors.UserMessage(err))
			continue
		}

		_ = peer.write(wsReply{
			Type:   "message",
			Author: "forge",
			Text:   reply,
			SentAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func writeWSError(peer *wsPeer, code, message string) error {
	return peer.write(wsErrorEnvelope{
		Type: "error",
		Error: wsError{
			Code:    code,
			Message: message,
		},
	})
}

func errorCode(err error) string {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return string(domainErr.Code)
	}
	return "INTERNAL"
}
