package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/headstart-dev/headstart-backend/internal/requestdata"
	"github.com/headstart-dev/headstart-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetPreferences(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	prefs, err := uh.userService.GetPreferences(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "preferences_load_failed", err)
		return
	}
	if prefs == nil {
		RespondOK(c, gin.H{"preferences": nil})
		return
	}
	RespondOK(c, gin.H{"preferences": prefs})
}

func (uh *UserHandler) UpdatePreferences(c *gin.Context) {
	var req services.PreferencesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	prefs, err := uh.userService.UpsertPreferences(c.Request.Context(), rd.UserID, req)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "preferences_update_failed", err)
		return
	}
	RespondOK(c, gin.H{"preferences": prefs})
}

func (uh *UserHandler) GetDashboard(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	dashboard, err := uh.userService.GetDashboard(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "dashboard_failed", err)
		return
	}
	RespondOK(c, dashboard)
}

func (uh *UserHandler) GetProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	sessions, err := uh.userService.GetProgress(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "progress_failed", err)
		return
	}
	RespondOK(c, gin.H{"sessions": sessions})
}

func (uh *UserHandler) SubmitFeedback(c *gin.Context) {
	var req services.FeedbackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	interaction, err := uh.userService.SubmitFeedback(c.Request.Context(), rd.UserID, req)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "feedback_failed", err)
		return
	}
	RespondCreated(c, interaction)
}
