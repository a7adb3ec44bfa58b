package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
	"golang.org/x/net/websocket"
)

type fakeConversation struct {
	replies map[string]string
	err     error
	calls   []string
}

func (f *fakeConversation) HandleMessage(_ context.Context, owner, text string) (string, error) {
	f.calls = append(f.calls, owner+"|"+text)
	if f.err != nil {
		return "", f.err
	}
	if reply, ok := f.replies[text]; ok {
		return reply, nil
	}
	return "ok", nil
}

func dialWS(t *testing.T, handler http.Handler, path string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	if err := json.NewEncoder(conn).Encode(frame); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
}

type testReply struct {
	Type   string `json:"type"`
	Author string `json:"author"`
	Text   string `json:"text"`
	SentAt string `json:"sent_at"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func readFrame(t *testing.T, conn *websocket.Conn) testReply {
	t.Helper()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	var got testReply
	if err := json.NewDecoder(conn).Decode(&got); err != nil {
		t.Fatalf("decode server frame: %v", err)
	}
	return got
}

func TestUpEndpointReportsOK(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&fakeConversation{}, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/up")
	if err != nil {
		t.Fatalf("get /up: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "OK" {
		t.Fatalf("expected OK body, got %q", body)
	}
}

func TestWSRejectsNonGET(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&fakeConversation{}, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/ws", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post /ws: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestWSMessageRoundTrip(t *testing.T) {
	conv := &fakeConversation{replies: map[string]string{
		"hi": "Welcome back.",
	}}
	conn := dialWS(t, NewHandler(conv, nil), "/ws")

	writeFrame(t, conn, map[string]any{"type": "message", "owner": "owner-1", "text": "hi"})

	got := readFrame(t, conn)
	if got.Type != "message" {
		t.Fatalf("expected message frame, got %q", got.Type)
	}
	if got.Author != "forge" {
		t.Fatalf("expected forge author, got %q", got.Author)
	}
	if got.Text != "Welcome back." {
		t.Fatalf("unexpected reply text %q", got.Text)
	}
	if len(conv.calls) != 1 || conv.calls[0] != "owner-1|hi" {
		t.Fatalf("unexpected conversation calls %v", conv.calls)
	}
}

func TestWSOwnerFromQueryParam(t *testing.T) {
	conv := &fakeConversation{}
	conn := dialWS(t, NewHandler(conv, nil), "/ws?owner=owner-9")

	writeFrame(t, conn, map[string]any{"type": "message", "text": "hello"})

	got := readFrame(t, conn)
	if got.Type != "message" {
		t.Fatalf("expected message frame, got %q", got.Type)
	}
	if len(conv.calls) != 1 || conv.calls[0] != "owner-9|hello" {
		t.Fatalf("unexpected conversation calls %v", conv.calls)
	}
}

func TestWSMissingOwnerReturnsError(t *testing.T) {
	conv := &fakeConversation{}
	conn := dialWS(t, NewHandler(conv, nil), "/ws")

	writeFrame(t, conn, map[string]any{"type": "message", "text": "hello"})

	got := readFrame(t, conn)
	if got.Type != "error" {
		t.Fatalf("expected error frame, got %q", got.Type)
	}
	if got.Error.Code != "INVALID_ARGUMENT" {
		t.Fatalf("unexpected error code %q", got.Error.Code)
	}
	if len(conv.calls) != 0 {
		t.Fatalf("conversation should not be called, got %v", conv.calls)
	}
}

func TestWSHandlerErrorProducesErrorFrame(t *testing.T) {
	conv := &fakeConversation{err: errors.New("store offline")}
	conn := dialWS(t, NewHandler(conv, nil), "/ws?owner=owner-1")

	writeFrame(t, conn, map[string]any{"type": "message", "text": "hi"})

	got := readFrame(t, conn)
	if got.Type != "error" {
		t.Fatalf("expected error frame, got %q", got.Type)
	}
	if got.Error.Code != "INTERNAL" {
		t.Fatalf("unexpected error code %q", got.Error.Code)
	}
	if !strings.Contains(got.Error.Message, "Something went wrong") {
		t.Fatalf("message = %q, want generic apology", got.Error.Message)
	}
}

func TestWSDomainErrorRendersCatalogMessage(t *testing.T) {
	conv := &fakeConversation{err: apperrors.New(apperrors.CodeBoardNotLinked, "board link missing")}
	conn := dialWS(t, NewHandler(conv, nil), "/ws?owner=owner-1")

	writeFrame(t, conn, map[string]any{"type": "message", "text": "hi"})

	got := readFrame(t, conn)
	if got.Type != "error" {
		t.Fatalf("expected error frame, got %q", got.Type)
	}
	if got.Error.Code != "BOARD_NOT_LINKED" {
		t.Fatalf("unexpected error code %q", got.Error.Code)
	}
	if !strings.Contains(got.Error.Message, "not connected yet") {
		t.Fatalf("message = %q, want catalog text", got.Error.Message)
	}
}

func TestWSInvalidFrameDoesNotKillConnection(t *testing.T) {
	conv := &fakeConversation{}
	conn := dialWS(t, NewHandler(conv, nil), "/ws?owner=owner-1")

	if _, err := conn.Write([]byte(`{"type": 5}` + "\n")); err != nil {
		t.Fatalf("write raw frame: %v", err)
	}

	got := readFrame(t, conn)
	if got.Type != "error" {
		t.Fatalf("expected error frame, got %q", got.Type)
	}

	writeFrame(t, conn, map[string]any{"type": "message", "text": "hi"})
	got = readFrame(t, conn)
	if got.Type != "message" {
		t.Fatalf("expected message frame after recovery, got %q", got.Type)
	}
}

type fakeLinkFlow struct {
	grant       string
	completeErr error
	completed   []string
}

func (f *fakeLinkFlow) BeginLink(owner string) (string, error) {
	if f.grant == "" {
		return "", board.ErrLinkFlowDisabled
	}
	return f.grant, nil
}

func (f *fakeLinkFlow) CompleteLink(_ context.Context, owner, grant, token string) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, owner+"|"+grant+"|"+token)
	return nil
}

func TestLinkStartIssuesGrant(t *testing.T) {
	flow := &fakeLinkFlow{grant: "grant-xyz"}
	srv := httptest.NewServer(NewHandler(&fakeConversation{}, flow))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/link?owner=owner-1")
	if err != nil {
		t.Fatalf("get /link: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got linkStartResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Owner != "owner-1" || got.Grant != "grant-xyz" {
		t.Fatalf("response = %+v, want owner-1/grant-xyz", got)
	}
}

func TestLinkStartRequiresOwner(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&fakeConversation{}, &fakeLinkFlow{grant: "grant-xyz"}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/link")
	if err != nil {
		t.Fatalf("get /link: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLinkCallbackStoresAuthorizedToken(t *testing.T) {
	flow := &fakeLinkFlow{grant: "grant-xyz"}
	srv := httptest.NewServer(NewHandler(&fakeConversation{}, flow))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/link/callback?owner=owner-1&grant=grant-xyz&token=token-abc")
	if err != nil {
		t.Fatalf("get /link/callback: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got linkCallbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Linked || got.Owner != "owner-1" {
		t.Fatalf("response = %+v, want linked owner-1", got)
	}
	if len(flow.completed) != 1 || flow.completed[0] != "owner-1|grant-xyz|token-abc" {
		t.Fatalf("completed = %v, want one owner-1 completion", flow.completed)
	}
}

func TestLinkCallbackRejectsBadGrant(t *testing.T) {
	flow := &fakeLinkFlow{
		grant:       "grant-xyz",
		completeErr: apperrors.New(apperrors.CodeLinkGrantMismatch, "link grant owner mismatch"),
	}
	srv := httptest.NewServer(NewHandler(&fakeConversation{}, flow))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/link/callback?owner=owner-2&grant=grant-xyz&token=token-abc")
	if err != nil {
		t.Fatalf("get /link/callback: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	var got testReply
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Error.Code != string(apperrors.CodeLinkGrantMismatch) {
		t.Fatalf("error code = %q, want %q", got.Error.Code, apperrors.CodeLinkGrantMismatch)
	}
}

func TestLinkRoutesUnavailableWithoutFlow(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&fakeConversation{}, nil))
	defer srv.Close()

	for _, path := range []string{"/link?owner=owner-1", "/link/callback?owner=owner-1&grant=g&token=t"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", path, resp.StatusCode)
		}
	}
}
