package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message string `json:"message"`
	Area    string `json:"area"`
}

func (h *Handler) HandlePostMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := h.chat.PostMessage(c.Request.Context(), userID, req.Message, req.Area)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": reply})
}

func (h *Handler) HandleGetChatHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	history, err := h.chat.GetHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatHistory": history})
}

func (h *Handler) HandleClearChatHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.chat.ClearHistory(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared successfully"})
}
