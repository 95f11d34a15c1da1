package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dhvanitmonpara/interview.ai/internal/handler/channel"
	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/role"
	sessionService "github.com/Dhvanitmonpara/interview.ai/internal/service/session"
	"github.com/Dhvanitmonpara/interview.ai/internal/storage"
	"github.com/Dhvanitmonpara/interview.ai/pkg/utils"
)

// LiveConnections guards creation so a session only exists for a live connection.
type LiveConnections interface {
	WithLive(connectionID string, fn func() error) error
}

// Handler 会话数据的HTTP处理器
type Handler struct {
	registry sessionService.Registry
	archive  storage.ArchiveStore
	roles    role.Store
	live     LiveConnections
}

// New 创建会话处理器
func New(registry sessionService.Registry, archive storage.ArchiveStore, roles role.Store, live LiveConnections) *Handler {
	return &Handler{
		registry: registry,
		archive:  archive,
		roles:    roles,
		live:     live,
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/data/{connectionID}", h.handleGetSession)
	r.Get("/session/all/{userID}", h.handleListSessions)
	r.Post("/session/{connectionID}", h.handleCreateSession)
}

// handleGetSession 返回在线连接的完整会话
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	connectionID := chi.URLParam(r, "connectionID")
	if connectionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "connection id is required")
		return
	}

	s, err := h.registry.Get(r.Context(), connectionID)
	if err != nil {
		if errors.Is(err, sessionService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "interview data not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondSuccess(w, http.StatusOK, s, "interview data fetched")
}

// handleCreateSession 为尚未完成 initial-setup 的在线连接创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	connectionID := chi.URLParam(r, "connectionID")

	var candidate interview.Candidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := channel.PrepareCandidate(h.roles, &candidate); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var created interview.Session
	err := h.live.WithLive(connectionID, func() error {
		var err error
		created, err = h.registry.Create(r.Context(), connectionID, candidate)
		return err
	})
	switch {
	case errors.Is(err, channel.ErrConnectionNotLive):
		utils.RespondError(w, http.StatusNotFound, "connection not found")
		return
	case errors.Is(err, sessionService.ErrSessionExists):
		utils.RespondError(w, http.StatusConflict, "session already exists for connection")
		return
	case err != nil:
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	logging.For("http").WithField("connection", connectionID).Info("session created over http")
	utils.RespondSuccess(w, http.StatusCreated, created, "session created")
}

// handleListSessions 列出用户的历史会话
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	sessions, err := h.archive.ListByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserRequired) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	utils.RespondSuccess(w, http.StatusOK, sessions, "sessions fetched")
}
