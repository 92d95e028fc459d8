package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/streamop/switchwatch/internal/streamserver"
	"github.com/streamop/switchwatch/pkg/models"
)

// Create stream server endpoint
func (api *API) createServer(c *gin.Context) {
	var req struct {
		Name   string          `json:"name" binding:"required"`
		Kind   string          `json:"kind" binding:"required"`
		Config json.RawMessage `json:"config" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Reject configurations the monitor would not be able to instantiate
	if _, err := streamserver.New(req.Kind, req.Config, nil); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	server := &models.StreamServer{
		Name:   req.Name,
		Kind:   req.Kind,
		Config: req.Config,
	}

	if err := api.repo.CreateStreamServer(c.Request.Context(), server); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, server)
}

// List stream servers endpoint
func (api *API) listServers(c *gin.Context) {
	servers, err := api.repo.ListStreamServers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"servers": servers})
}

// Get stream server endpoint
func (api *API) getServer(c *gin.Context) {
	server, err := api.repo.GetStreamServer(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream server not found"})
		return
	}

	c.JSON(http.StatusOK, server)
}

// Update stream server endpoint
func (api *API) updateServer(c *gin.Context) {
	server, err := api.repo.GetStreamServer(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream server not found"})
		return
	}

	var req struct {
		Name   string          `json:"name"`
		Kind   string          `json:"kind"`
		Config json.RawMessage `json:"config"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		server.Name = req.Name
	}
	if req.Kind != "" {
		server.Kind = req.Kind
	}
	if len(req.Config) > 0 {
		server.Config = req.Config
	}

	if _, err := streamserver.FromModel(server, nil); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := api.repo.UpdateStreamServer(c.Request.Context(), server); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, server)
}

// Delete stream server endpoint
func (api *API) deleteServer(c *gin.Context) {
	serverID := c.Param("id")

	if _, err := api.repo.GetStreamServer(c.Request.Context(), serverID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream server not found"})
		return
	}

	if err := api.repo.DeleteStreamServer(c.Request.Context(), serverID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stream server deleted", "server_id": serverID})
}

// backendFor instantiates the live backend for a persisted server
func (api *API) backendFor(c *gin.Context) (streamserver.StreamServer, *models.StreamServer, bool) {
	server, err := api.repo.GetStreamServer(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream server not found"})
		return nil, nil, false
	}

	backend, err := streamserver.FromModel(server, api.log)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, nil, false
	}

	return backend, server, true
}

// Get current bitrate endpoint
func (api *API) getBitrate(c *gin.Context) {
	backend, server, ok := api.backendFor(c)
	if !ok {
		return
	}

	kbps, ok := backend.Bitrate(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No data available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"server_id":    server.ID,
		"bitrate_kbps": kbps,
	})
}

// Get switch decision endpoint. Cutoffs default to none; callers supply
// them as query parameters in kbps.
func (api *API) getSwitch(c *gin.Context) {
	backend, server, ok := api.backendFor(c)
	if !ok {
		return
	}

	var triggers models.Triggers
	if raw := c.Query("offline"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offline cutoff"})
			return
		}
		triggers.Offline = &v
	}
	if raw := c.Query("low"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid low cutoff"})
			return
		}
		triggers.Low = &v
	}

	decision := backend.Switch(c.Request.Context(), &triggers)

	c.JSON(http.StatusOK, gin.H{
		"server_id": server.ID,
		"decision":  decision,
	})
}

// Get source info endpoint
func (api *API) getSourceInfo(c *gin.Context) {
	backend, server, ok := api.backendFor(c)
	if !ok {
		return
	}

	info, err := backend.SourceInfo(c.Request.Context())
	if err != nil {
		if errors.Is(err, streamserver.ErrSourceInfoUnsupported) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "Source info not supported for this server kind"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"server_id": server.ID,
		"source":    info,
	})
}

// Get cached health snapshot endpoint
func (api *API) getHealth(c *gin.Context) {
	serverID := c.Param("id")

	if _, err := api.repo.GetStreamServer(c.Request.Context(), serverID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream server not found"})
		return
	}

	health, err := api.cache.GetStreamHealth(c.Request.Context(), serverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if health == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No health snapshot available"})
		return
	}

	c.JSON(http.StatusOK, health)
}

// List health events endpoint
func (api *API) listEvents(c *gin.Context) {
	serverID := c.Param("id")

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = v
	}

	events, err := api.repo.ListHealthEvents(c.Request.Context(), serverID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Create webhook endpoint
func (api *API) createWebhook(c *gin.Context) {
	var req struct {
		URL    string               `json:"url" binding:"required,url"`
		Events models.WebhookEvents `json:"events"`
		Secret string               `json:"secret"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	webhook := &models.Webhook{
		URL:      req.URL,
		Events:   req.Events,
		Secret:   req.Secret,
		IsActive: true,
	}

	if err := api.repo.CreateWebhook(c.Request.Context(), webhook); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, webhook)
}

// List webhooks endpoint
func (api *API) listWebhooks(c *gin.Context) {
	webhooks, err := api.repo.ListWebhooks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"webhooks": webhooks})
}

// Delete webhook endpoint
func (api *API) deleteWebhook(c *gin.Context) {
	webhookID := c.Param("id")

	if err := api.repo.DeleteWebhook(c.Request.Context(), webhookID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook deleted", "webhook_id": webhookID})
}
