package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/socratic/internal/engine"
	"github.com/abhisek/socratic/internal/logger"
	"github.com/abhisek/socratic/internal/store"
)

type handler struct {
	engine *engine.Engine
	log    *logger.Logger
}

type startRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	ClassGrade int    `json:"class" binding:"required"`
	Subject    string `json:"subject" binding:"required"`
	Concept    string `json:"concept" binding:"required"`
}

func (h *handler) startSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.engine.Start(c.Request.Context(), req.UserID, req.ClassGrade, req.Subject, req.Concept)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type turnRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	Answer    string  `json:"answer"`
	TimeSpent float64 `json:"time_spent"`
}

func (h *handler) submitTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.engine.SubmitAnswer(c.Request.Context(), req.SessionID, req.Answer, req.TimeSpent)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) hint(c *gin.Context) {
	res, err := h.engine.Hint(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) retry(c *gin.Context) {
	res, err := h.engine.Retry(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) skip(c *gin.Context) {
	res, err := h.engine.Skip(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) progress(c *gin.Context) {
	res, err := h.engine.Progress(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) reflect(c *gin.Context) {
	res, err := h.engine.Reflection(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type dialogueResponse struct {
	SessionID string             `json:"session_id"`
	Turns     []store.TurnRecord `json:"turns"`
}

func (h *handler) dialogue(c *gin.Context) {
	id := c.Param("session_id")
	turns, err := h.engine.Dialogue(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dialogueResponse{SessionID: id, Turns: turns})
}

func (h *handler) concepts(c *gin.Context) {
	classGrade, err := strconv.Atoi(c.DefaultQuery("class", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "class must be an integer"})
		return
	}
	refs := h.engine.Concepts(classGrade, c.Query("subject"))
	c.JSON(http.StatusOK, gin.H{"concepts": refs})
}

func (h *handler) health(c *gin.Context) {
	count, err := h.engine.SessionCount(c.Request.Context())
	if err != nil {
		h.log.Error("health: counting sessions failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": count})
}

// fail maps engine errors to HTTP statuses. Validation problems are
// 422 so clients can tell them apart from malformed JSON (400).
func (h *handler) fail(c *gin.Context, err error) {
	var nf *engine.NotFoundError
	var is *engine.InvalidStateError
	var ve *engine.ValidationError
	switch {
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	case errors.As(err, &is):
		c.JSON(http.StatusConflict, gin.H{"error": is.Error(), "state": is.State})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error(), "field": ve.Field})
	default:
		h.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
