package routes

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/hospiq/queue-backend/internal/api/controllers"
	"github.com/hospiq/queue-backend/internal/queue"
	"github.com/hospiq/queue-backend/ws"
)

// Init wires every route onto the Echo instance.
func Init(e *echo.Echo, engine *queue.Engine, hub *ws.Hub, log *slog.Logger) {
	patientController := controllers.NewPatientController(engine)
	queueController := controllers.NewQueueController(engine)

	api := e.Group("/api")
	api.POST("/registration", patientController.RegisterPatient)
	api.GET("/patients", patientController.LookupPatient)
	api.GET("/patients/:id/history", patientController.PatientHistory)
	api.GET("/queue", queueController.GetQueue)
	api.PUT("/queue/status", queueController.UpdateStatus)
	api.GET("/statistics", queueController.GetStatistics)

	e.GET("/ws", ws.ServeWS(hub, engine, log))
}
