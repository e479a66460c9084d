package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wellness-sessions/internal/app"
	"wellness-sessions/internal/model"
	"wellness-sessions/internal/transport/http/middleware"
	"wellness-sessions/internal/transport/http/response"
)

type SessionHandler struct {
	sessions *app.SessionService
}

// Absent JSON fields stay nil and leave the stored value untouched.
type SaveDraftRequest struct {
	SessionID  string    `json:"session_id"`
	Title      *string   `json:"title"`
	Tags       *[]string `json:"tags"`
	PayloadURL *string   `json:"payload_url"`
}

type UpdateSessionRequest struct {
	Title      *string   `json:"title"`
	Tags       *[]string `json:"tags"`
	PayloadURL *string   `json:"payload_url"`
}

type PublishRequest struct {
	SessionID string `json:"session_id"`
}

type sessionSummary struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Status    model.SessionStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type canEditResponse struct {
	CanEdit bool            `json:"can_edit"`
	Session *sessionSummary `json:"session"`
}

func NewSessionHandler(sessions *app.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) ListPublished(c *gin.Context) {
	sessions, err := h.sessions.ListPublished(c.Request.Context())
	if err != nil {
		response.Internal(c, err, "list sessions failed")
		return
	}
	response.OK(c, sessions)
}

func (h *SessionHandler) ListMine(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	sessions, err := h.sessions.ListMine(c.Request.Context(), who)
	if err != nil {
		writeSessionError(c, err, "list sessions failed")
		return
	}
	response.OK(c, sessions)
}

func (h *SessionHandler) Get(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		writeSessionError(c, err, "get session failed")
		return
	}
	response.OK(c, session)
}

func (h *SessionHandler) SaveDraft(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.sessions.SaveDraft(c.Request.Context(), who, app.SaveDraftInput{
		SessionID: req.SessionID,
		SessionFields: app.SessionFields{
			Title:      req.Title,
			Tags:       req.Tags,
			PayloadURL: req.PayloadURL,
		},
	})
	if err != nil {
		writeSessionError(c, err, "save draft failed")
		return
	}
	response.OK(c, session)
}

func (h *SessionHandler) Publish(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.sessions.Publish(c.Request.Context(), who, req.SessionID)
	if err != nil {
		writeSessionError(c, err, "publish session failed")
		return
	}
	response.OK(c, session)
}

func (h *SessionHandler) Update(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.sessions.Update(c.Request.Context(), who, c.Param("id"), app.SessionFields{
		Title:      req.Title,
		Tags:       req.Tags,
		PayloadURL: req.PayloadURL,
	})
	if err != nil {
		writeSessionError(c, err, "update session failed")
		return
	}
	response.OK(c, session)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.sessions.Delete(c.Request.Context(), who, id); err != nil {
		writeSessionError(c, err, "delete session failed")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": id})
}

func (h *SessionHandler) CanEdit(c *gin.Context) {
	who, ok := requireIdentity(c)
	if !ok {
		return
	}
	canEdit, session, err := h.sessions.CanEdit(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		writeSessionError(c, err, "check session access failed")
		return
	}

	out := canEditResponse{CanEdit: canEdit}
	if canEdit && session != nil {
		out.Session = &sessionSummary{
			ID:        session.ID,
			Title:     session.Title,
			Status:    session.Status,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		}
	}
	response.OK(c, out)
}

func requireIdentity(c *gin.Context) (app.Identity, bool) {
	who, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required")
	}
	return who, ok
}

func writeSessionError(c *gin.Context, err error, message string) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, verr.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request")
	case errors.Is(err, app.ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required")
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "access denied")
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
	default:
		response.Internal(c, err, message)
	}
}
