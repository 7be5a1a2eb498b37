package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/avioline/flight-seat-reservation/internal/handler"
	"github.com/avioline/flight-seat-reservation/internal/middleware"
	"github.com/avioline/flight-seat-reservation/internal/ws"
)

// Register wires every route of the server:
//
//	GET  /healthz        – liveness probe
//	GET  /state          – seat snapshot + flight descriptor (public)
//	GET  /ws             – websocket endpoint for reservation traffic
//	POST /v1/auth/*      – register / login / refresh / logout
//	GET  /v1/me          – identity echo, requires a valid access token
//
// The rate limiter wraps only the auth group: seat traffic runs over the
// websocket and has its own backpressure, while login and registration
// are the classic brute-force targets.
func Register(e *echo.Echo, a *handler.AuthHandler, s *handler.StateHandler, sock *ws.Handler, jwtSecret string, limiter echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)
	e.GET("/state", s.Get)
	e.GET("/ws", sock.Serve)

	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}
