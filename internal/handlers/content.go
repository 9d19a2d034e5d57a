package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/headstart-dev/headstart-backend/internal/requestdata"
	"github.com/headstart-dev/headstart-backend/internal/services"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

type ContentHandlerConfig struct {
	UploadDir     string
	MaxUploadSize int64
}

type ContentHandler struct {
	cfg            ContentHandlerConfig
	contentService services.ContentService
}

func NewContentHandler(cfg ContentHandlerConfig, contentService services.ContentService) *ContentHandler {
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 50 << 20
	}
	return &ContentHandler{cfg: cfg, contentService: contentService}
}

func (ch *ContentHandler) Ingest(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	item, created, err := ch.contentService.IngestFromURL(c.Request.Context(), req.URL)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "ingest_failed", err)
		return
	}
	if !created {
		RespondOK(c, gin.H{"content": item, "created": false})
		return
	}
	RespondCreated(c, gin.H{"content": item, "created": true})
}

func (ch *ContentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("file field required"))
		return
	}
	if file.Size > ch.cfg.MaxUploadSize {
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Errorf("file exceeds %d bytes", ch.cfg.MaxUploadSize))
		return
	}

	filename := filepath.Base(file.Filename)
	dest := filepath.Join(ch.cfg.UploadDir, uuid.NewString()+"_"+filename)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		RespondError(c, http.StatusInternalServerError, "upload_failed", err)
		return
	}

	item, created, err := ch.contentService.IngestUpload(c.Request.Context(), dest, filename)
	if err != nil {
		_ = os.Remove(dest)
		RespondError(c, http.StatusBadRequest, "upload_processing_failed", err)
		return
	}
	if !created {
		_ = os.Remove(dest)
		RespondOK(c, gin.H{"content": item, "created": false})
		return
	}
	RespondCreated(c, gin.H{"content": item, "created": true})
}

func (ch *ContentHandler) IngestBatch(c *gin.Context) {
	var req struct {
		URLs      []string `json:"urls"`
		BatchSize int      `json:"batch_size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	if len(req.URLs) == 0 {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("urls required"))
		return
	}
	result, err := ch.contentService.IngestBatch(c.Request.Context(), req.URLs, req.BatchSize)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "batch_failed", err)
		return
	}
	RespondOK(c, result)
}

func (ch *ContentHandler) Stats(c *gin.Context) {
	stats, err := ch.contentService.Stats(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	RespondOK(c, stats)
}

func (ch *ContentHandler) UpdateStatus(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid content id"))
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	if err := ch.contentService.UpdateStatus(c.Request.Context(), contentID, strings.ToLower(req.Status)); err != nil {
		RespondError(c, http.StatusBadRequest, "status_update_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (ch *ContentHandler) RecordInteraction(c *gin.Context) {
	var req struct {
		ContentID            uuid.UUID `json:"content_id"`
		InteractionType      string    `json:"interaction_type"`
		Rating               *int      `json:"rating"`
		FeedbackText         string    `json:"feedback_text"`
		TimeSpentMinutes     int       `json:"time_spent_minutes"`
		CompletionPercentage float64   `json:"completion_percentage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid request body"))
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	interaction := &types.UserInteraction{
		UserID:               rd.UserID,
		ContentID:            req.ContentID,
		InteractionType:      req.InteractionType,
		Rating:               req.Rating,
		FeedbackText:         req.FeedbackText,
		TimeSpentMinutes:     req.TimeSpentMinutes,
		CompletionPercentage: req.CompletionPercentage,
	}
	created, err := ch.contentService.RecordInteraction(c.Request.Context(), interaction)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "interaction_failed", err)
		return
	}
	RespondCreated(c, created)
}
