package httpHandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"signage-console/backend"
	"signage-console/entities"
	"signage-console/store"
	"signage-console/usecases"
)

// DeviceHandler exposes the synchronized device view and proxies CRUD to
// the backend. Reads come from the store; the handler never mutates it
// directly except through the gateway/REST confirmation path.
type DeviceHandler struct {
	devices *store.DeviceStore
	client  *backend.Client
	gateway *usecases.CommandGateway
}

func NewDeviceHandler(devices *store.DeviceStore, client *backend.Client, gateway *usecases.CommandGateway) *DeviceHandler {
	return &DeviceHandler{devices: devices, client: client, gateway: gateway}
}

// GET /api/v1/devices
func (h *DeviceHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": h.devices.Snapshot()})
}

// GET /api/v1/devices/:id
func (h *DeviceHandler) Get(c *gin.Context) {
	d, ok := h.devices.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	resp := gin.H{"device": d, "inProcess": h.gateway.InProcess(d.ID)}
	if p, ok := h.devices.Progress(d.ID); ok {
		resp["progress"] = p
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/v1/alerts
func (h *DeviceHandler) Alerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": h.devices.Alerts()})
}

// POST /api/v1/devices
func (h *DeviceHandler) Create(c *gin.Context) {
	var d entities.Device
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	created, err := h.client.CreateDevice(c.Request.Context(), d)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	h.devices.Upsert(created)
	c.JSON(http.StatusCreated, gin.H{"device": created})
}

// PUT /api/v1/devices/:id
func (h *DeviceHandler) Update(c *gin.Context) {
	var d entities.Device
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	d.ID = c.Param("id")
	updated, err := h.client.UpdateDevice(c.Request.Context(), d)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	h.devices.Upsert(updated)
	c.JSON(http.StatusOK, gin.H{"device": updated})
}

// DELETE /api/v1/devices/:id
func (h *DeviceHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.client.DeleteDevice(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	h.devices.Remove(id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GET /api/v1/devices/:id/stats
func (h *DeviceHandler) Stats(c *gin.Context) {
	stats, err := h.client.DeviceStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/v1/devices/:id/test
func (h *DeviceHandler) Test(c *gin.Context) {
	result, err := h.client.TestDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// POST /api/v1/devices/:id/sync
func (h *DeviceHandler) Sync(c *gin.Context) {
	if err := h.client.SyncDevice(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "synced"})
}

type commandRequest struct {
	Kind   entities.CommandKind   `json:"tipo"`
	Params map[string]interface{} `json:"parametros"`
}

// POST /api/v1/devices/:id/commands
func (h *DeviceHandler) Command(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if req.Kind == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tipo is required"})
		return
	}

	cmd, err := h.gateway.Execute(c.Request.Context(), c.Param("id"), req.Kind, req.Params)
	if err != nil {
		var cerr *usecases.CommandError
		switch {
		case errors.Is(err, usecases.ErrDeviceBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &cerr) && cerr.Timeout:
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"command": cmd})
}
