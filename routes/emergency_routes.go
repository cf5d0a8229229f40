package routes

import (
	"ambulink/internal/handlers"
	"ambulink/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupEmergencyRoutes wires the dispatch lifecycle endpoints. Role gates
// mirror who may trigger each transition: patients create, cancel and pay;
// drivers accept and progress.
func SetupEmergencyRoutes(r *gin.RouterGroup, emergencyHandler *handlers.EmergencyHandler, jwtSecret string) {
	requests := r.Group("/emergency/requests")
	requests.Use(middleware.AuthRequired(jwtSecret))
	{
		requests.POST("", middleware.PatientRequired(), emergencyHandler.CreateRequest)
		requests.GET("", middleware.PatientRequired(), emergencyHandler.ListRequests)
		requests.GET("/:id", emergencyHandler.GetRequest)
		requests.POST("/:id/accept", middleware.DriverRequired(), emergencyHandler.AcceptRequest)
		requests.PUT("/:id/status", middleware.DriverRequired(), emergencyHandler.UpdateStatus)
		requests.PUT("/:id/cancel", middleware.PatientRequired(), emergencyHandler.CancelRequest)
		requests.PUT("/:id/payment", middleware.PatientRequired(), emergencyHandler.CompletePayment)
	}

	drivers := r.Group("/drivers")
	drivers.Use(middleware.AuthRequired(jwtSecret), middleware.DriverRequired())
	{
		drivers.PUT("/location", emergencyHandler.UpdateLocation)
	}
}
