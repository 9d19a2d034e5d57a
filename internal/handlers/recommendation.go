package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/headstart-dev/headstart-backend/internal/requestdata"
	"github.com/headstart-dev/headstart-backend/internal/services"
)

type RecommendationHandler struct {
	recService services.RecommendationService
}

func NewRecommendationHandler(recService services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recService: recService}
}

func (rh *RecommendationHandler) Feed(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	limit := 10
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	refresh := c.Query("refresh") == "true"

	feed, err := rh.recService.FeedForUser(c.Request.Context(), rd.UserID, limit, refresh)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "feed_failed", err)
		return
	}
	RespondOK(c, gin.H{"recommendations": feed, "count": len(feed)})
}

func (rh *RecommendationHandler) Refresh(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	limit := 10
	var req struct {
		Limit int `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err == nil && req.Limit > 0 {
		limit = req.Limit
	}

	feed, err := rh.recService.FeedForUser(c.Request.Context(), rd.UserID, limit, true)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "feed_failed", err)
		return
	}
	RespondOK(c, gin.H{"recommendations": feed, "count": len(feed)})
}

func (rh *RecommendationHandler) Explain(c *gin.Context) {
	recID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid recommendation id"))
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	explanation, err := rh.recService.Explain(c.Request.Context(), rd.UserID, recID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "explain_failed", err)
		return
	}
	RespondOK(c, explanation)
}

func (rh *RecommendationHandler) Feedback(c *gin.Context) {
	var req struct {
		RecommendationID uuid.UUID `json:"recommendation_id"`
		Rating           *int      `json:"rating"`
		FeedbackType     string    `json:"feedback_type"`
		Clicked          bool      `json:"clicked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())

	if req.Clicked {
		if err := rh.recService.MarkClicked(c.Request.Context(), rd.UserID, req.RecommendationID); err != nil {
			RespondError(c, http.StatusBadRequest, "feedback_failed", err)
			return
		}
		if req.Rating == nil && req.FeedbackType == "" {
			RespondOK(c, gin.H{"success": true})
			return
		}
	}

	if err := rh.recService.SubmitFeedback(c.Request.Context(), rd.UserID, req.RecommendationID, req.Rating, req.FeedbackType); err != nil {
		RespondError(c, http.StatusBadRequest, "feedback_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (rh *RecommendationHandler) History(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := rh.recService.History(c.Request.Context(), rd.UserID, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "history_failed", err)
		return
	}
	RespondOK(c, gin.H{"recommendations": history, "count": len(history)})
}
