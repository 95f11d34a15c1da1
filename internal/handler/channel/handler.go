package channel

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
	"github.com/Dhvanitmonpara/interview.ai/internal/middleware"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/event"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/role"
	"github.com/Dhvanitmonpara/interview.ai/internal/round"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/analytics"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/generator"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/session"
	"github.com/Dhvanitmonpara/interview.ai/internal/storage"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	maxFrameSize = 1 << 20
)

// Dependencies 汇总事件通道需要的服务。
type Dependencies struct {
	Registry    session.Registry
	Roles       role.Store
	Generator   generator.Generator
	Archive     storage.ArchiveStore
	Publisher   analytics.Publisher
	Connections *ConnectionManager
}

// Options 控制面试流程参数。
type Options struct {
	Rounds          round.Table
	MaxQuestions    int
	GenerateTimeout time.Duration
	FeedbackEnabled bool
	AllowedOrigin   string
}

// Handler 服务端事件通道处理器
type Handler struct {
	deps     Dependencies
	opts     Options
	upgrader websocket.Upgrader
	log      *logrus.Entry
	active   sync.WaitGroup // 仍在运行的读循环
}

// New 创建事件通道处理器
func New(deps Dependencies, opts Options) *Handler {
	if deps.Connections == nil {
		deps.Connections = NewConnectionManager()
	}
	if deps.Generator == nil {
		deps.Generator = generator.NewBankGenerator()
	}
	if deps.Archive == nil {
		deps.Archive = storage.NewMemoryArchive()
	}
	if deps.Publisher == nil {
		deps.Publisher = analytics.LogPublisher{}
	}
	if deps.Roles == nil {
		deps.Roles = role.NewMemoryStore(role.Seed())
	}
	if opts.Rounds == nil {
		opts.Rounds = round.DefaultTable()
	}
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = 10
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 20 * time.Second
	}
	if deps.Registry == nil {
		deps.Registry = session.NewMemoryRegistry(session.WithRoundTable(opts.Rounds))
	}

	origin := opts.AllowedOrigin
	return &Handler{
		deps: deps,
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.AllowsOrigin(origin, r.Header.Get("Origin"))
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logging.For("channel"),
	}
}

// Dependencies returns the services in use, with defaults applied.
func (h *Handler) Dependencies() Dependencies {
	return h.deps
}

// RegisterRoutes 注册事件通道路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/channel", h.handleChannel)
}

// handleChannel 处理一条 websocket 连接的完整生命周期
func (h *Handler) handleChannel(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("upgrade failed")
		return
	}

	h.active.Add(1)
	defer h.active.Done()

	p := newPeer(uuid.NewString(), conn, strings.TrimSpace(r.URL.Query().Get("userId")))
	log := h.log.WithField("connection", p.id)

	h.deps.Connections.AddConnection(p.id, conn)
	defer h.disconnect(p, log)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	log.Info("connected")
	h.send(p, event.UserConnected, event.Connected{ConnectionID: p.id})

	for {
		var msg event.Envelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("read error")
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.ConnectionID != "" && msg.ConnectionID != p.id {
			h.sendError(p, event.CodeInvalidPayload, "connection id mismatch")
			continue
		}

		h.dispatch(ctx, p, &msg)
	}
}

// Shutdown closes every connection, waits for the read loops to archive their
// sessions, then archives whatever is still registered. Call it after the HTTP
// server has stopped accepting upgrades and before the archive is closed.
func (h *Handler) Shutdown(ctx context.Context) {
	h.deps.Connections.CloseAll()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		h.log.WithError(ctx.Err()).Warn("read loops still running at shutdown")
	}

	for _, s := range h.deps.Registry.List(ctx) {
		final, err := h.deps.Registry.Remove(ctx, s.ConnectionID)
		if err != nil {
			// 读循环已先行归档
			continue
		}
		if err := h.deps.Archive.Save(ctx, final); err != nil {
			h.log.WithError(err).WithField("connection", final.ConnectionID).Error("archive on shutdown failed")
		}
	}
}

// disconnect 清理注册表条目并归档会话
func (h *Handler) disconnect(p *peer, log *logrus.Entry) {
	h.deps.Connections.RemoveConnection(p.id)
	p.state = StateClosed

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	final, err := h.deps.Registry.Remove(ctx, p.id)
	if err != nil {
		log.Info("disconnected before setup")
		return
	}
	if err := h.deps.Archive.Save(ctx, final); err != nil {
		log.WithError(err).Error("archive session failed")
	}
	log.WithFields(logrus.Fields{
		"status":    final.Status,
		"responses": len(final.Responses),
	}).Info("disconnected")
}

func (h *Handler) send(p *peer, eventType string, payload any) {
	env, err := event.New(eventType, p.id, payload)
	if err != nil {
		h.log.WithError(err).WithField("connection", p.id).Error("encode event failed")
		return
	}
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := p.conn.WriteJSON(env); err != nil {
		h.log.WithError(err).WithField("connection", p.id).Warn("write failed")
	}
}

func (h *Handler) sendError(p *peer, code, message string) {
	h.send(p, event.Error, event.Failure{Code: code, Message: message})
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
