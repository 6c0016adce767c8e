package api

import (
	"net/http"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/middleware/ginmw"
	"github.com/gin-gonic/gin"
)

// TokenRequest is the body of POST /token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register mounts the endpoints on r:
//
//	POST /token        anonymous credential exchange
//	GET  /token/check  behind the gate
//
// The returned /api group is gated the same way so hosts can mount further
// protected routes on it.
func Register(r gin.IRouter, svc *Service, gateOpts ...ginmw.GateOption) *gin.RouterGroup {
	r.POST("/token", svc.TokenHandler)

	gate := ginmw.Gate(svc.client, gateOpts...)
	r.GET("/token/check", gate, svc.CheckHandler)

	return r.Group("/api", gate)
}

// TokenHandler serves POST /token.
func (s *Service) TokenHandler(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginmw.Respond(c, tokengate.Failure(http.StatusBadRequest, "Invalid request body"))
		return
	}
	ginmw.Respond(c, s.Exchange(c.Request.Context(), req.Username, req.Password))
}

// CheckHandler serves GET /token/check.
func (s *Service) CheckHandler(c *gin.Context) {
	ginmw.Respond(c, s.Check(c.Request.Context(), ginmw.GetPrincipal(c)))
}
