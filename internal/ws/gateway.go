package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/laibaTLD/logic-camp-messaging/internal/auth"
	"github.com/laibaTLD/logic-camp-messaging/internal/chat"
	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
	"github.com/laibaTLD/logic-camp-messaging/internal/presence"
	"github.com/laibaTLD/logic-camp-messaging/internal/registry"
	"github.com/laibaTLD/logic-camp-messaging/internal/service"
	"github.com/laibaTLD/logic-camp-messaging/internal/typing"
)

// inbound is the client-to-server envelope on the live channel.
type inbound struct {
	Type       string          `json:"type"` // "compose","typingStart","typingStop"
	Content    string          `json:"content,omitempty"`
	ChatKind   domain.ChatKind `json:"chat_kind,omitempty"`
	ReceiverID string          `json:"receiver_id,omitempty"`
}

type Options struct {
	PingInterval  time.Duration
	WriteDeadline time.Duration
	ReadTimeout   time.Duration
	MaxMsgSize    int64
}

// Gateway upgrades connections, authenticates the join, and drives each
// session's read loop, dispatching inbound events to the chat service and
// typing coordinator.
type Gateway struct {
	reg       *registry.Registry
	svc       *service.ChatService
	typing    *typing.Coordinator
	presence  *presence.Store
	validator *auth.Validator
	log       *zap.SugaredLogger
	opts      Options
}

func NewGateway(reg *registry.Registry, svc *service.ChatService, tc *typing.Coordinator, ps *presence.Store, validator *auth.Validator, log *zap.SugaredLogger, opts Options) *Gateway {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.WriteDeadline <= 0 {
		opts.WriteDeadline = 10 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.MaxMsgSize <= 0 {
		opts.MaxMsgSize = 65536
	}
	return &Gateway{reg: reg, svc: svc, typing: tc, presence: ps, validator: validator, log: log, opts: opts}
}

// Handler is mounted behind the fiber websocket upgrade route.
func (g *Gateway) Handler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.Close()
			return
		}
		claims, err := g.validator.Validate(token)
		if err != nil {
			g.log.Debugw("rejected join", "err", err)
			_ = conn.Close()
			return
		}

		client := NewClient(uuid.New().String(), claims.UserID, claims.Name, conn)
		g.reg.Register(client)
		if g.presence != nil {
			if err := g.presence.SetOnline(context.Background(), claims.UserID); err != nil {
				g.log.Warnw("presence set online failed", "user", claims.UserID, "err", err)
			}
		}
		g.log.Infow("session joined", "user", claims.UserID, "session", client.ID())

		go client.writePump(g.opts.PingInterval, g.opts.WriteDeadline)
		g.readLoop(client, conn)
		g.teardown(client)
	}
}

func (g *Gateway) readLoop(client *Client, conn *websocket.Conn) {
	conn.SetReadLimit(g.opts.MaxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(g.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(g.opts.ReadTimeout))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(g.opts.ReadTimeout))
		if mt != websocket.TextMessage {
			continue
		}
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		g.dispatch(client, in)
	}
}

func (g *Gateway) dispatch(client *Client, in inbound) {
	ctx := context.Background()
	switch in.Type {
	case "compose":
		_, err := g.svc.Ingest(ctx, service.ComposeInput{
			SenderID:   client.userID,
			Content:    in.Content,
			ChatKind:   in.ChatKind,
			ReceiverID: in.ReceiverID,
		})
		if err != nil {
			// rejected composes go back to the originating session only
			_ = client.Push(domain.Event{
				Type:    domain.EventError,
				Payload: domain.ErrorPayload{Message: err.Error()},
			})
		}
	case "typingStart":
		key, err := chat.ResolveKey(in.ChatKind, client.userID, in.ReceiverID)
		if err != nil {
			return
		}
		g.typing.StartTyping(key, in.ChatKind, client.userID, client.userName, in.ReceiverID)
	case "typingStop":
		key, err := chat.ResolveKey(in.ChatKind, client.userID, in.ReceiverID)
		if err != nil {
			return
		}
		g.typing.StopTyping(key, in.ChatKind, client.userID, in.ReceiverID)
	default:
		g.log.Debugw("unknown inbound type", "type", in.Type, "user", client.userID)
	}
}

func (g *Gateway) teardown(client *Client) {
	g.reg.Unregister(client.ID())
	client.Close()
	if !g.reg.Online(client.userID) {
		g.typing.DropUser(client.userID)
		g.svc.Disconnected(client.userID)
		if g.presence != nil {
			if err := g.presence.SetOffline(context.Background(), client.userID); err != nil {
				g.log.Warnw("presence set offline failed", "user", client.userID, "err", err)
			}
		}
	}
	g.log.Infow("session left", "user", client.userID, "session", client.ID())
}
