package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"solar-monitor-backend/config"
	"solar-monitor-backend/internal/geocode"
	"solar-monitor-backend/internal/mw"
	"solar-monitor-backend/internal/notification"
	"solar-monitor-backend/internal/store"
	"solar-monitor-backend/internal/weather"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, w weather.Client, g geocode.Client, pool *notification.WorkerPool, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, w, g, pool, cfg)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(mw.RequestID(), rateLimiter)
	{
		iot := api.Group("/iot")
		{
			iot.GET("/tester", handler.Tester)
			iot.POST("/signup", handler.Signup)
			iot.POST("/verify_signup_otp", handler.VerifySignupOtp)
			iot.POST("/login", handler.Login)
			iot.POST("/logout", handler.Logout)
			iot.POST("/forgot_password_send_otp", handler.ForgotPasswordSendOtp)
			iot.POST("/verify_forgot_otp", handler.VerifyForgotOtp)
			iot.POST("/resend_signup_otp", handler.ResendSignupOtp)
			iot.POST("/resend_forgot_otp", handler.ResendForgotOtp)

			iot.POST("/add_device", handler.AddDevice)
			iot.GET("/my_devices", handler.MyDevices)
			iot.POST("/my_devices", handler.MyDevices)
			iot.POST("/rename_device", handler.RenameDevice)
			iot.GET("/device_members", handler.DeviceMembers)
			iot.POST("/change_admin", handler.ChangeAdmin)
			iot.POST("/control_device", handler.ControlDevice)
			iot.POST("/delete_device", handler.DeleteDevice)

			iot.GET("/pending_access_requests", handler.PendingAccessRequests)
			iot.POST("/approve_access", handler.ApproveAccess)
			iot.POST("/reject_access", handler.RejectAccess)
			iot.POST("/remove_access", handler.RemoveAccess)

			iot.GET("/popup", caching, handler.GetPopup)
		}

		solar := api.Group("/solar")
		{
			solar.GET("/stats", handler.GetSolarStats)
			solar.GET("/latest", handler.GetLatestSolarData)
			solar.POST("/location-ping", handler.SaveDeviceLocation)
		}

		api.GET("/ota/:device_id", handler.OtaCheck)
		api.POST("/ota/:device_id/status", handler.OtaStatus)

		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
