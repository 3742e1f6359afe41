package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatService "github.com/zhouzirui/whats-eat/backend/internal/service/chat"
	"github.com/zhouzirui/whats-eat/backend/pkg/utils"
)

// Handler 聊天会话的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleDeleteSession)
	r.Post("/sessions/{sessionID}/messages", h.handleSendMessage)
	r.Post("/sessions/{sessionID}/reset", h.handleReset)
}

// SendRequest is the body of a message submission.
type SendRequest struct {
	Content  string                    `json:"content"`
	Location *chatService.LocationHint `json:"location,omitempty"`
}

// handleCreateSession 创建并初始化会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	controller, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		log.Printf("[chat] create session=%s failed: %v", controller.ID(), err)
		utils.RespondJSON(w, http.StatusServiceUnavailable, controller.Snapshot())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, controller.Snapshot())
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, controller.Snapshot())
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.DeleteSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage 提交一轮用户消息，阻塞直到回复完成
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload SendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := controller.SendMessage(r.Context(), payload.Content, payload.Location); err != nil {
		status := StatusFor(err)
		if status == http.StatusBadGateway {
			utils.RespondJSON(w, status, controller.Snapshot())
			return
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, controller.Snapshot())
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := controller.Reset(r.Context()); err != nil {
		status := StatusFor(err)
		if status == http.StatusServiceUnavailable {
			utils.RespondJSON(w, status, controller.Snapshot())
			return
		}
		utils.RespondError(w, status, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, controller.Snapshot())
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Controller, bool) {
	controller, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return controller, true
}

// StatusFor maps controller errors to HTTP status codes.
func StatusFor(err error) int {
	var (
		initErr *chatService.InitError
		turnErr *chatService.TurnError
	)
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &initErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &turnErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
