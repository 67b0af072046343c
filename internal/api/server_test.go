package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/laibaTLD/logic-camp-messaging/internal/auth"
	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
	"github.com/laibaTLD/logic-camp-messaging/internal/registry"
	"github.com/laibaTLD/logic-camp-messaging/internal/repository"
	"github.com/laibaTLD/logic-camp-messaging/internal/router"
	"github.com/laibaTLD/logic-camp-messaging/internal/service"
	"github.com/laibaTLD/logic-camp-messaging/internal/typing"
	"github.com/laibaTLD/logic-camp-messaging/internal/unread"
	"github.com/laibaTLD/logic-camp-messaging/internal/ws"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) (*fiber.App, *service.ChatService) {
	t.Helper()
	reg := registry.New()
	log := zap.NewNop().Sugar()
	rt := router.New(reg, log)
	tracker := unread.NewMemoryTracker()
	svc := service.NewChatService(repository.NewMemoryStore(), rt, tracker, nil, log, 0)
	tc := typing.NewCoordinator(rt, log, 0, 0)
	validator := auth.NewValidator(testSecret)
	gw := ws.NewGateway(reg, svc, tc, nil, validator, log, ws.Options{})
	return New(svc, gw, nil, validator, log, 50), svc
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + tok
}

func doRequest(t *testing.T, app *fiber.App, method, target, authHeader string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	if authHeader != "" {
		req.Header.Set(fiber.HeaderAuthorization, authHeader)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func TestHistoryRequiresAuth(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doRequest(t, app, http.MethodGet, "/v1/chats/global/messages", "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	resp, _ = doRequest(t, app, http.MethodGet, "/v1/chats/global/messages", "Bearer not-a-token")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}
}

func TestHistoryEndpointReturnsMessagesAndResetsUnread(t *testing.T) {
	app, svc := newTestApp(t)
	ctx := context.Background()

	stored, err := svc.Ingest(ctx, service.ComposeInput{SenderID: "A", Content: "hi", ChatKind: domain.ChatDirect, ReceiverID: "B"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	resp, body := doRequest(t, app, http.MethodGet, "/v1/chats/"+stored.ChatKey+"/messages", bearerToken(t, "B"))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var out struct {
		Data []*domain.Message `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Data) != 1 || out.Data[0].Content != "hi" {
		t.Errorf("data = %+v", out.Data)
	}

	counts, err := svc.Unread(ctx, "B")
	if err != nil {
		t.Fatalf("Unread: %v", err)
	}
	if counts[stored.ChatKey] != 0 {
		t.Errorf("unread after history fetch = %d, want 0", counts[stored.ChatKey])
	}
}

func TestHistoryRejectsBadPagination(t *testing.T) {
	app, _ := newTestApp(t)
	tok := bearerToken(t, "B")
	resp, _ := doRequest(t, app, http.MethodGet, "/v1/chats/global/messages?limit=zero", tok)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}
	resp, _ = doRequest(t, app, http.MethodGet, "/v1/chats/global/messages?before=yesterday", tok)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad before status = %d, want 400", resp.StatusCode)
	}
}

func TestUnreadEndpoint(t *testing.T) {
	app, svc := newTestApp(t)
	stored, err := svc.Ingest(context.Background(), service.ComposeInput{SenderID: "A", Content: "hi", ChatKind: domain.ChatDirect, ReceiverID: "B"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	resp, body := doRequest(t, app, http.MethodGet, "/v1/unread", bearerToken(t, "B"))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data[stored.ChatKey] != 1 {
		t.Errorf("unread = %d, want 1", out.Data[stored.ChatKey])
	}
}

func TestPresenceRouteOnlyWithStore(t *testing.T) {
	// Built without a presence store, the route does not exist.
	app, _ := newTestApp(t)
	resp, _ := doRequest(t, app, http.MethodGet, "/v1/presence/B", bearerToken(t, "A"))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
