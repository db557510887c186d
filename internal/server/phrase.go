package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/internal/service/phrase"
	"github.com/kapu/pec-ai-go/pkg/errors"
)

type addCardItemRequest struct {
	CardID string `json:"cardId"`
}

type addTextItemRequest struct {
	Text string `json:"text"`
}

type reorderRequest struct {
	DraggedID string `json:"draggedId"`
	TargetID  string `json:"targetId"`
}

type moveRequest struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
}

type phraseDTO struct {
	Session string              `json:"session"`
	Items   []domain.PhraseItem `json:"items"`
	Text    string              `json:"text"`
	State   string              `json:"state"`
}

// session resolves the caller's phrase workspace. The middleware guarantees
// a principal.
func (h *handler) session(c *gin.Context) (*phrase.Session, bool) {
	p, ok := domain.PrincipalFromContext(c.Request.Context())
	if !ok {
		abortWithError(c, errors.NewUnauthenticatedError("authentication required"), h.logger)
		return nil, false
	}
	id := strings.TrimSpace(c.Param("session"))
	if id == "" {
		abortWithError(c, errors.NewValidationError("session is required", "session", ""), h.logger)
		return nil, false
	}
	return h.deps.Sessions.Get(p.UserID, id), true
}

func renderPhrase(c *gin.Context, status int, session *phrase.Session) {
	items, text := session.Assembly.Snapshot()
	if items == nil {
		items = []domain.PhraseItem{}
	}
	c.JSON(status, phraseDTO{
		Session: session.ID,
		Items:   items,
		Text:    text,
		State:   session.State().String(),
	})
}

func (h *handler) handleGetPhrase(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	renderPhrase(c, http.StatusOK, session)
}

func (h *handler) handleAddCardItem(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req addCardItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.NewValidationError("invalid request body", "body", ""), h.logger)
		return
	}

	card, err := h.deps.Library.GetCard(c.Request.Context(), req.CardID)
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	if _, err := session.Assembly.AddCard(*card); err != nil {
		abortWithError(c, err, h.logger)
		return
	}

	// A delete that finished between the lookup and the append has already
	// cascaded, so the item it missed is dropped here.
	if _, err := h.deps.Library.GetCard(c.Request.Context(), card.ID); err != nil {
		session.Assembly.RemoveByCardID(card.ID)
		abortWithError(c, err, h.logger)
		return
	}
	renderPhrase(c, http.StatusOK, session)
}

func (h *handler) handleAddTextItem(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req addTextItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.NewValidationError("invalid request body", "body", ""), h.logger)
		return
	}
	if _, err := session.Assembly.AddText(req.Text); err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	renderPhrase(c, http.StatusOK, session)
}

// handleRemoveItem ignores unknown ids and always returns the phrase.
func (h *handler) handleRemoveItem(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Assembly.Remove(c.Param("id"))
	renderPhrase(c, http.StatusOK, session)
}

func (h *handler) handleReorder(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.NewValidationError("invalid request body", "body", ""), h.logger)
		return
	}
	session.Assembly.Reorder(req.DraggedID, req.TargetID)
	renderPhrase(c, http.StatusOK, session)
}

func (h *handler) handleMove(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.NewValidationError("invalid request body", "body", ""), h.logger)
		return
	}

	switch strings.ToLower(req.Direction) {
	case "left":
		session.Assembly.MoveLeft(req.ID)
	case "right":
		session.Assembly.MoveRight(req.ID)
	default:
		abortWithError(c, errors.NewValidationError("direction must be left or right", "direction", req.Direction), h.logger)
		return
	}
	renderPhrase(c, http.StatusOK, session)
}

func (h *handler) handleClear(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Assembly.Clear()
	renderPhrase(c, http.StatusOK, session)
}

func (h *handler) handleSpeak(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	result, err := h.deps.Speaker.Speak(c.Request.Context(), session)
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) handleListPhrases(c *gin.Context) {
	phrases, err := h.deps.History.ListSavedPhrases(c.Request.Context())
	if err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	if phrases == nil {
		phrases = []*domain.SavedPhrase{}
	}
	c.JSON(http.StatusOK, gin.H{"phrases": phrases})
}

func (h *handler) handleDeletePhrase(c *gin.Context) {
	if err := h.deps.History.DeletePhrase(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}
