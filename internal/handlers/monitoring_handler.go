package handlers

import (
	"net/http"

	"github.com/mushroomlog/mushroomlog/internal/monitoring"
)

// MonitoringHandler serves the realtime change feed.
type MonitoringHandler struct {
	Hub *monitoring.Hub
}

func NewMonitoringHandler(hub *monitoring.Hub) *MonitoringHandler {
	return &MonitoringHandler{Hub: hub}
}

// Changes handles GET /api/ws?token=...
func (h *MonitoringHandler) Changes(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	h.Hub.ServeWS(w, r, uid)
}
