package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/banachtech/pathpricer/config"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	authorizationHeaderKey  = "authorization"
	authorizationTypeBearer = "bearer"
	authorizationPrefixKey  = "prefix"
	prefixLength            = 8
	Layout2                 = "2006-01-02 15:04:05"
)

var errInvalidAPIKey = errors.New("please input a valid API Key")

func (server *Server) lookupKey(prefix string) (config.APIKey, bool) {
	for _, k := range server.config.Server.APIKeys {
		if k.Prefix == prefix {
			return k, true
		}
	}
	return config.APIKey{}, false
}

// authentication checks a "Bearer prefix.secret" header against the configured
// bcrypt hashes.
func (server *Server) authentication(c *gin.Context) {
	authorizationHeader := c.GetHeader(authorizationHeaderKey)
	if len(authorizationHeader) == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("authorization header is not provided")))
		return
	}

	fields := strings.Fields(authorizationHeader)
	if len(fields) < 2 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("invalid authorization header format")))
		return
	}

	authorizationType := strings.ToLower(fields[0])
	if authorizationType != authorizationTypeBearer {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(fmt.Errorf("unsupported authorization type: %s", authorizationType)))
		return
	}

	apiKey := fields[1]
	prefix := strings.Split(apiKey, ".")[0]
	if len(prefix) != prefixLength {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errInvalidAPIKey))
		return
	}

	key, ok := server.lookupKey(prefix)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errInvalidAPIKey))
		return
	}

	if key.ExpiresAt != "" {
		expired, err := time.Parse(Layout2, key.ExpiresAt)
		if err != nil || time.Now().UTC().After(expired) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("api key is expired")))
			return
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(apiKey)); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errInvalidAPIKey))
		return
	}

	c.Set(authorizationPrefixKey, prefix)
	c.Next()
}

func (server *Server) getLimiter(prefix string) *rate.Limiter {
	server.mu.Lock()
	defer server.mu.Unlock()

	limiter, ok := server.limiters[prefix]
	if !ok {
		rl := server.config.Server.RateLimit
		limit := rate.Inf
		if rl.Every > 0 {
			limit = rate.Every(rl.Every)
		}
		limiter = rate.NewLimiter(limit, rl.Burst)
		server.limiters[prefix] = limiter
	}
	return limiter
}

// rateLimit applies one token bucket per API key.
func (server *Server) rateLimit(c *gin.Context) {
	prefix := c.GetString(authorizationPrefixKey)
	if !server.getLimiter(prefix).Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse(errors.New("too many requests")))
		return
	}
	c.Next()
}

// requestLogger writes one debug line per request.
func (server *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	server.logger.Debug("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"latency", time.Since(start),
		"client_ip", c.ClientIP())
}
