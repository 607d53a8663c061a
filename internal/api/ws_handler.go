package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"phFolio/internal/api/middleware"
	"phFolio/internal/tasks"
)

// Subscriber 是 Redis 订阅能力，*redis.Client 满足该接口。
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// WsHandler 把导出与缩略图通知推送给编辑器。
type WsHandler struct {
	subscriber     Subscriber
	validator      middleware.TokenValidator
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(subscriber Subscriber, validator middleware.TokenValidator, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		subscriber:     subscriber,
		validator:      validator,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// wsAuthMessage 是客户端连接后必须发送的第一条消息。
type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// wsReadyMessage 在 Redis 订阅生效后发给客户端，此后才会收到导出通知。
type wsReadyMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// wsSession 是单个连接的状态。认证之后只有 relay 写数据帧。
type wsSession struct {
	conn   *websocket.Conn
	log    *slog.Logger
	cancel context.CancelFunc
	done   chan error
}

func (s *wsSession) fail(err error) {
	select {
	case s.done <- err:
	default:
	}
	s.cancel()
}

func (s *wsSession) close(code int, text string) {
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}

func (s *wsSession) write(data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// HandleConnection 升级连接，完成令牌认证后把用户通知频道转发给客户端。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	s := &wsSession{
		conn:   conn,
		log:    h.logger.With(slog.String("client_ip", c.ClientIP())),
		cancel: cancel,
		done:   make(chan error, 2),
	}

	userID, err := h.authenticate(s)
	if err != nil {
		s.log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	s.log = s.log.With(slog.Uint64("user_id", uint64(userID)))
	s.log.Info("websocket authenticated")

	go s.drain()
	go h.relay(ctx, s, userID)

	select {
	case <-ctx.Done():
		s.log.Info("websocket connection closed")
	case err := <-s.done:
		s.log.Info("websocket connection closed", slog.Any("error", err))
	}
}

// authenticate 在限定时间内读取认证消息并校验令牌。
func (h *WsHandler) authenticate(s *wsSession) (uint, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	_, message, err := s.conn.ReadMessage()
	if err != nil {
		s.close(websocket.ClosePolicyViolation, "auth timeout")
		return 0, fmt.Errorf("read auth message: %w", err)
	}

	var msg wsAuthMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.close(websocket.ClosePolicyViolation, "invalid auth payload")
		return 0, fmt.Errorf("decode auth payload: %w", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		s.close(websocket.ClosePolicyViolation, "auth required")
		return 0, errors.New("invalid auth message")
	}

	claims, err := h.validator.ValidateAccessToken(msg.Token)
	if err == nil && claims.UserID == 0 {
		err = errors.New("token carries no user id")
	}
	if err != nil {
		s.close(websocket.ClosePolicyViolation, "unauthorized")
		return 0, fmt.Errorf("validate token: %w", err)
	}

	_ = s.conn.SetReadDeadline(time.Time{})
	return claims.UserID, nil
}

// drain 丢弃认证后的客户端消息，只用于发现断开。
func (s *wsSession) drain() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.fail(fmt.Errorf("read message: %w", err))
			return
		}
	}
}

// relay 订阅 user_notify:<id> 并原样转发，定时发送 ping 保活。
func (h *WsHandler) relay(ctx context.Context, s *wsSession, userID uint) {
	channel := tasks.NotifyChannel(userID)
	pubsub := h.subscriber.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		s.close(websocket.CloseInternalServerErr, "subscribe failed")
		s.fail(fmt.Errorf("subscribe %q: %w", channel, err))
		return
	}

	ready, err := json.Marshal(wsReadyMessage{Type: "ready", Channel: channel})
	if err == nil {
		err = s.write(ready)
	}
	if err != nil {
		s.fail(err)
		return
	}
	s.log.Info("subscribed to redis channel", slog.String("channel", channel))

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	messages := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				s.fail(errors.New("pubsub channel closed"))
				return
			}
			if err := s.write([]byte(msg.Payload)); err != nil {
				s.fail(err)
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				s.fail(fmt.Errorf("write ping: %w", err))
				return
			}
		}
	}
}
