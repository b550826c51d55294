package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hospiq/queue-backend/internal/models"
	"github.com/hospiq/queue-backend/internal/queue"
)

type PatientController struct {
	Engine *queue.Engine
}

func NewPatientController(engine *queue.Engine) *PatientController {
	return &PatientController{Engine: engine}
}

// RegisterPatient registers a patient into the queue and returns the token,
// position and visit metadata.
func (pc *PatientController) RegisterPatient(c echo.Context) error {
	var req models.RegisterInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload: " + err.Error(),
			"data":    nil,
		})
	}

	result, err := pc.Engine.Register(c.Request().Context(), req)
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"status":  http.StatusBadRequest,
				"message": ve.Error(),
				"data":    nil,
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Failed to register patient: " + err.Error(),
			"data":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Patient registered successfully",
		"data":    result,
	})
}

// LookupPatient finds a patient by contact number.
func (pc *PatientController) LookupPatient(c echo.Context) error {
	contact := c.QueryParam("contact")
	if contact == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "contact parameter is required",
			"data":    nil,
		})
	}

	patient, err := pc.Engine.LookupPatient(c.Request().Context(), contact)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"status":  http.StatusNotFound,
				"message": "Patient not found",
				"data":    nil,
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Failed to lookup patient: " + err.Error(),
			"data":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "Patient found",
		"data":    patient,
	})
}

// PatientHistory returns the patient's most recent queue entries, newest
// first, capped at ten.
func (pc *PatientController) PatientHistory(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"status":  http.StatusBadRequest,
			"message": "id must be a number",
			"data":    nil,
		})
	}

	history, err := pc.Engine.History(c.Request().Context(), patientID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"status":  http.StatusNotFound,
				"message": "Patient not found",
				"data":    nil,
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"status":  http.StatusInternalServerError,
			"message": "Failed to retrieve history: " + err.Error(),
			"data":    nil,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  http.StatusOK,
		"message": "History retrieved successfully",
		"data":    history,
	})
}
