package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/htm-project/neural-api/internal/cortical/sdr"
	"github.com/htm-project/neural-api/internal/domain/htm"
	"github.com/htm-project/neural-api/internal/ports"
)

// RegionHandler handles HTTP requests for region-level operations: the
// voting loop over a set of columns (spec §5/§9).
type RegionHandler struct {
	regionService ports.RegionService
}

// NewRegionHandler creates a new region HTTP handler.
func NewRegionHandler(regionService ports.RegionService) *RegionHandler {
	return &RegionHandler{regionService: regionService}
}

// ProcessRegion handles POST /api/v1/region/process requests.
func (h *RegionHandler) ProcessRegion(c *gin.Context) {
	var request RegionProcessRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	sensory, err := toSensoryInputs(request.Sensory)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid sensory input",
			"details": err.Error(),
		})
		return
	}

	result, err := h.regionService.ProcessRegion(c.Request.Context(), sensory, request.Learn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Region processing failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SettleRegion handles POST /api/v1/region/settle requests.
func (h *RegionHandler) SettleRegion(c *gin.Context) {
	result, err := h.regionService.SettleRegion(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Region settling failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRegionConfig handles GET /api/v1/region/config requests.
func (h *RegionHandler) GetRegionConfig(c *gin.Context) {
	regionConfig, columnConfigs, err := h.regionService.GetConfiguration(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get configuration",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"region":  regionConfig,
		"columns": columnConfigs,
	})
}

// UpdateRegionConfig handles PUT /api/v1/region/config requests.
func (h *RegionHandler) UpdateRegionConfig(c *gin.Context) {
	var request RegionConfigUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	if err := h.regionService.UpdateConfiguration(c.Request.Context(), request.Region, request.Columns); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Configuration update failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Configuration updated successfully",
	})
}

// ResetRegion handles POST /api/v1/region/reset requests.
func (h *RegionHandler) ResetRegion(c *gin.Context) {
	if err := h.regionService.Reset(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Reset failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Region reset successfully",
	})
}

// GetRegionHealth handles GET /api/v1/region/health requests.
func (h *RegionHandler) GetRegionHealth(c *gin.Context) {
	if err := h.regionService.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"info":   h.regionService.GetInstanceInfo(c.Request.Context()),
	})
}

// toSensoryInputs converts request DTOs to domain SensoryInput values,
// constructing each feature SDR through sdr.NewSDR so out-of-range active
// bits are rejected the same way as everywhere else in the engine.
func toSensoryInputs(requests []SensoryInputRequest) ([]*htm.SensoryInput, error) {
	sensory := make([]*htm.SensoryInput, len(requests))
	for i, r := range requests {
		feature, err := sdr.NewSDR(r.Feature.Width, r.Feature.ActiveBits)
		if err != nil {
			return nil, err
		}
		sensory[i] = &htm.SensoryInput{
			Feature: feature,
			DeltaX:  r.DeltaX,
			DeltaY:  r.DeltaY,
		}
	}
	return sensory, nil
}

// Request/Response types

// RegionProcessRequest is the body of POST /api/v1/region/process: one
// SensoryInput per column, in column order.
type RegionProcessRequest struct {
	Sensory []SensoryInputRequest `json:"sensory" binding:"required,min=1"`
	Learn   bool                  `json:"learn"`
}

// SensoryInputRequest is the wire form of htm.SensoryInput.
type SensoryInputRequest struct {
	Feature SDRRequest `json:"feature" binding:"required"`
	DeltaX  float64    `json:"delta_x"`
	DeltaY  float64    `json:"delta_y"`
}

// SDRRequest is the wire form of an sdr.SDR, before width/bit validation.
type SDRRequest struct {
	Width      int   `json:"width" binding:"required,gt=0"`
	ActiveBits []int `json:"active_bits"`
}

// RegionConfigUpdateRequest is the body of PUT /api/v1/region/config.
type RegionConfigUpdateRequest struct {
	Region  *htm.RegionConfig            `json:"region" binding:"required"`
	Columns []*htm.CorticalColumnConfig  `json:"columns" binding:"required,min=1"`
}
