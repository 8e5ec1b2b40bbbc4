package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// DefaultCookieName carries the session credential
const DefaultCookieName = "walletauth_session"

// CookieConfig controls the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, cookies CookieConfig, log logrus.FieldLogger) *gin.Engine {
	if cookies.Name == "" {
		cookies.Name = DefaultCookieName
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log.WithField("component", "http")))

	// Create handlers
	handlers := NewAuthHandlers(authService, cookies, log)

	router.POST("/challenge", handlers.Challenge)
	router.POST("/login", handlers.Login)
	router.DELETE("/logout", handlers.Logout)
	router.GET("/user", AuthMiddleware(authService, cookies.Name, log), handlers.User)

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
