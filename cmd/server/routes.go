package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nixie-Tech-LLC/azaan/internal/config"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/api"
	controlapi "github.com/Nixie-Tech-LLC/azaan/internal/http/api/control/endpoints"
	publicapi "github.com/Nixie-Tech-LLC/azaan/internal/http/api/public/endpoints"
	"github.com/Nixie-Tech-LLC/azaan/internal/service"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, cfg *config.Config, svc *service.Service) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	r.GET("/health-check", func(c *gin.Context) {
		c.JSON(http.StatusOK, api.Response{Status: http.StatusOK, Success: true, Message: "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
	},
		publicapi.PrayerModule(svc),
		publicapi.PushTokenModule(svc),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: cfg.JWTSecret,
	},
		controlapi.AlarmModule(svc),
		controlapi.NotificationModule(svc),
		controlapi.AzaanModule(svc),
		controlapi.DeviceModule(svc),
	)
}
