package role

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dhvanitmonpara/interview.ai/internal/model/role"
	"github.com/Dhvanitmonpara/interview.ai/pkg/utils"
)

// Handler 职位目录的HTTP处理器
type Handler struct {
	roles role.Store
}

// New 创建职位处理器
func New(roles role.Store) *Handler {
	return &Handler{roles: roles}
}

// RegisterRoutes 注册职位相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/roles", h.handleListRoles)
}

// handleListRoles 列出所有职位
func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	utils.RespondSuccess(w, http.StatusOK, h.roles.List(), "")
}
