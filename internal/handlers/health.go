package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/xelth-com/iditgo/internal/buildinfo"
	"github.com/xelth-com/iditgo/internal/models"
	"github.com/xelth-com/iditgo/internal/websocket"
	"go.uber.org/zap"
)

// healthCheck verifies the database connection
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	var userCount int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error
	timestamp := r.now().UTC().Format(time.RFC3339)
	if err != nil {
		r.logger.Error("health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "error",
			"database":  "disconnected",
			"timestamp": timestamp,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"database":  "connected",
		"userCount": userCount,
		"timestamp": timestamp,
	})
}

// getStatus returns build and runtime information
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	clients := 0
	if r.hub != nil {
		clients = r.hub.ClientCount()
	}
	info := buildinfo.Get()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "running",
		"env":           r.cfg.AppEnv,
		"build":         info,
		"uptimeSeconds": int64(info.Uptime(r.now()).Seconds()),
		"wsClients":     clients,
	})
}

// serveWs upgrades to a websocket receiving inventory events
func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	websocket.ServeWs(r.hub, w, req)
}
