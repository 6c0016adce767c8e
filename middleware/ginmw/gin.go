// Package ginmw provides Gin HTTP middleware for the token gate.
//
// Gate accepts a *tokengate.Client and uses its interfaces (TokenVerifier,
// IdentityStore, Authorizer), so it has no dependency on a specific host.
package ginmw

import (
	"errors"
	"net/http"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/metrics"
	"github.com/chimerakang/tokengate-go/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys for storing gate data in gin.Context.
const (
	KeyPrincipal  = "tokengate_principal"
	KeyCustomerID = "tokengate_customer_id"
	KeyRequestID  = "tokengate_request_id"
)

// HeaderRequestID carries the request correlation ID.
const HeaderRequestID = "X-Request-ID"

// GateOption configures Gate middleware behavior.
type GateOption func(*gateConfig)

type gateConfig struct {
	excludedPaths map[string]bool
	metrics       *metrics.Metrics
}

// WithExcludedPaths sets paths that skip the gate (e.g. health checks).
func WithExcludedPaths(paths ...string) GateOption {
	return func(cfg *gateConfig) {
		for _, p := range paths {
			cfg.excludedPaths[p] = true
		}
	}
}

// WithMetrics records rejections and policy decisions.
func WithMetrics(m *metrics.Metrics) GateOption {
	return func(cfg *gateConfig) { cfg.metrics = m }
}

// Gate returns Gin middleware that authenticates the Authorization header via
// client.Authenticate and then evaluates client.Authorize.
// Every token or policy failure gets the same 401 envelope. Identity store
// failures get a 500 envelope.
func Gate(client *tokengate.Client, opts ...GateOption) gin.HandlerFunc {
	cfg := &gateConfig{excludedPaths: make(map[string]bool)}
	for _, o := range opts {
		o(cfg)
	}
	logger := client.Logger()

	return func(c *gin.Context) {
		if cfg.excludedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		ctx := c.Request.Context()

		p, err := client.Authenticate(ctx, c.GetHeader("Authorization"))
		if err != nil {
			if !errors.Is(err, tokengate.ErrUnauthenticated) {
				logger.ErrorContext(ctx, "authenticate", "path", c.FullPath(), "error", err)
				abort(c, tokengate.InternalError())
				return
			}
			reason := rejectReason(err)
			cfg.metrics.RecordTokenRejected(reason)
			logger.DebugContext(ctx, "token rejected", "path", c.FullPath(), "reason", reason)
			abort(c, tokengate.Unauthorized())
			return
		}

		d := client.Authorize(ctx, p)
		cfg.metrics.RecordPolicyDecision(d.Allowed, d.Reason, time.Since(start).Seconds())
		if !d.Allowed {
			logger.DebugContext(ctx, "policy denied", "path", c.FullPath(), "customer_id", p.CustomerID, "reason", d.Reason)
			abort(c, tokengate.Unauthorized())
			return
		}

		c.Set(KeyPrincipal, p)
		c.Set(KeyCustomerID, p.CustomerID)
		c.Request = c.Request.WithContext(tokengate.WithPrincipal(ctx, p))

		c.Next()
	}
}

// RequestID returns Gin middleware that propagates or generates an
// X-Request-ID and stores it in both contexts.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(KeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(tokengate.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Respond writes a tokengate envelope with a transport status that mirrors
// its statusCode.
func Respond(c *gin.Context, r tokengate.Response) {
	c.JSON(r.StatusCode, r)
}

func rejectReason(err error) string {
	if errors.Is(err, tokengate.ErrNoCredentials) {
		return "missing"
	}
	return token.Reason(err)
}

func abort(c *gin.Context, r tokengate.Response) {
	c.AbortWithStatusJSON(r.StatusCode, r)
}

// --- Context helpers ---

// GetPrincipal returns the principal established by Gate.
func GetPrincipal(c *gin.Context) *tokengate.Principal {
	v, _ := c.Get(KeyPrincipal)
	p, _ := v.(*tokengate.Principal)
	return p
}

// GetCustomerID returns the authenticated customer ID, or 0.
func GetCustomerID(c *gin.Context) int64 {
	v, _ := c.Get(KeyCustomerID)
	id, _ := v.(int64)
	return id
}

// GetRequestID returns the request correlation ID.
func GetRequestID(c *gin.Context) string {
	v, _ := c.Get(KeyRequestID)
	s, _ := v.(string)
	return s
}

// NotFound is a NoRoute handler that answers with the envelope.
func NotFound(c *gin.Context) {
	Respond(c, tokengate.Failure(http.StatusNotFound, "Not found"))
}
