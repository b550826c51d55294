package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hospiq/queue-backend/internal/models"
	"github.com/hospiq/queue-backend/internal/queue"
)

type QueueController struct {
	Engine *queue.Engine
}

func NewQueueController(engine *queue.Engine) *QueueController {
	return &QueueController{Engine: engine}
}

// GetQueue returns today's queue snapshot, optionally filtered to one
// department.
func (qc *QueueController) GetQueue(c echo.Context) error {
	items, err := qc.Engine.Snapshot(c.Request().Context(), c.QueryParam("department"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Failed to retrieve queue: " + err.Error(),
			"data":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Queue retrieved successfully",
		"data":    items,
	})
}

type updateStatusRequest struct {
	EntryID   int64  `json:"entry_id"`
	NewStatus string `json:"new_status"`
}

// UpdateStatus advances a queue entry to its next state.
func (qc *QueueController) UpdateStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload: " + err.Error(),
			"data":    nil,
		})
	}
	if req.EntryID == 0 || req.NewStatus == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "entry_id and new_status are required",
			"data":    nil,
		})
	}

	item, err := qc.Engine.Advance(c.Request().Context(), req.EntryID, models.Status(req.NewStatus))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"status":  http.StatusNotFound,
				"message": err.Error(),
				"data":    nil,
			})
		}
		if errors.Is(err, models.ErrInvalidTransition) {
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"status":  http.StatusConflict,
				"message": err.Error(),
				"data":    nil,
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Failed to update status: " + err.Error(),
			"data":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Status updated successfully",
		"data":    item,
	})
}

// GetStatistics returns today's aggregate counts.
func (qc *QueueController) GetStatistics(c echo.Context) error {
	stats, err := qc.Engine.Statistics(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Failed to retrieve statistics: " + err.Error(),
			"data":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Statistics retrieved successfully",
		"data":    stats,
	})
}
