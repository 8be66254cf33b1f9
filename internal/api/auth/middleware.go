package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskpin/taskpin-be/internal/api/domain"
)

const (
	workerScheme = "Bearer"
	agentScheme  = "Agent"

	workerContextKey = "auth.worker"
	agentContextKey  = "auth.agent"
)

func credential(c *gin.Context, scheme string) (string, bool) {
	header := c.GetHeader("Authorization")
	prefix := scheme + " "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	cred := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return cred, cred != ""
}

func unauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    string(domain.KindUnauthenticated),
			"message": message,
		},
	})
}

// RequireWorker authenticates "Authorization: Bearer <token>" and
// stashes the worker identity in the request context.
func RequireWorker(authn WorkerAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := credential(c, workerScheme)
		if !ok {
			unauthenticated(c, "worker session token is required")
			return
		}

		identity, err := authn.AuthenticateWorker(c.Request.Context(), token)
		if err != nil {
			if domain.IsKind(err, domain.KindUnauthenticated) {
				unauthenticated(c, "invalid or expired session token")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    string(domain.KindUpstreamUnavailable),
					"message": "authentication temporarily unavailable",
				},
			})
			return
		}

		c.Set(workerContextKey, identity)
		c.Next()
	}
}

// RequireAgent authenticates "Authorization: Agent <key>" and stashes
// the agent identity in the request context.
func RequireAgent(authn AgentAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := credential(c, agentScheme)
		if !ok {
			unauthenticated(c, "agent API key is required")
			return
		}

		identity, err := authn.AuthenticateAgent(c.Request.Context(), key)
		if err != nil {
			if domain.IsKind(err, domain.KindUnauthenticated) {
				unauthenticated(c, "invalid agent key")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    string(domain.KindUpstreamUnavailable),
					"message": "authentication temporarily unavailable",
				},
			})
			return
		}

		c.Set(agentContextKey, identity)
		c.Next()
	}
}

// WorkerFrom returns the worker identity set by RequireWorker.
func WorkerFrom(c *gin.Context) (*WorkerIdentity, bool) {
	v, ok := c.Get(workerContextKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*WorkerIdentity)
	return identity, ok
}

// AgentFrom returns the agent identity set by RequireAgent.
func AgentFrom(c *gin.Context) (*AgentIdentity, bool) {
	v, ok := c.Get(agentContextKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*AgentIdentity)
	return identity, ok
}
