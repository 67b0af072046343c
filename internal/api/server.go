package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/laibaTLD/logic-camp-messaging/internal/auth"
	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
	"github.com/laibaTLD/logic-camp-messaging/internal/metrics"
	"github.com/laibaTLD/logic-camp-messaging/internal/presence"
	"github.com/laibaTLD/logic-camp-messaging/internal/service"
	"github.com/laibaTLD/logic-camp-messaging/internal/ws"
)

type Server struct {
	svc       *service.ChatService
	presence  *presence.Store
	validator *auth.Validator
	log       *zap.SugaredLogger
	pageSize  int64
}

// New builds the fiber app: the websocket upgrade route plus the
// request/response surface (history, unread summary, health, metrics).
func New(svc *service.ChatService, gw *ws.Gateway, pres *presence.Store, validator *auth.Validator, log *zap.SugaredLogger, pageSize int) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{svc: svc, presence: pres, validator: validator, log: log, pageSize: int64(pageSize)}

	app.Get("/metrics", metrics.Handler())

	v1 := app.Group("/v1")
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1.Get("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	v1.Get("/ws", websocket.New(gw.Handler()))

	v1.Get("/chats/:chat_key/messages", s.requireAuth, s.getHistory)
	v1.Get("/unread", s.requireAuth, s.getUnread)
	if pres != nil {
		v1.Get("/presence/:user_id", s.requireAuth, s.getPresence)
	}

	return app
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
	}
	claims, err := s.validator.Validate(parts[1])
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}
	c.Locals("userID", claims.UserID)
	return c.Next()
}

// getHistory returns the chat's messages ascending and counts as the caller
// viewing the chat, so their unread counter resets.
func (s *Server) getHistory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	chatKey := c.Params("chat_key")

	limit := s.pageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid limit"})
		}
		limit = n
	}
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid before timestamp"})
		}
		before = t
	}

	msgs, err := s.svc.History(c.Context(), userID, chatKey, limit, before)
	if err != nil {
		if errors.Is(err, domain.ErrStore) {
			s.log.Errorw("history query failed", "chat_key", chatKey, "err", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "store unavailable"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}
	return c.JSON(fiber.Map{"status": "success", "data": msgs})
}

func (s *Server) getPresence(c *fiber.Ctx) error {
	userID := c.Params("user_id")
	status, err := s.presence.Get(c.Context(), userID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no presence recorded"})
		}
		s.log.Errorw("presence read failed", "user", userID, "err", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "store unavailable"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": status})
}

func (s *Server) getUnread(c *fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	counts, err := s.svc.Unread(c.Context(), userID)
	if err != nil {
		s.log.Errorw("unread query failed", "user", userID, "err", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "store unavailable"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": counts})
}
