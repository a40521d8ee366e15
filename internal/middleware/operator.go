package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/orinaya/animochi-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

const operatorSecretHeader = "X-Operator-Secret"

// OperatorGate guards operational endpoints (resets, top-ups) behind a
// shared secret configured by the operator.
type OperatorGate struct {
	secret string
}

func NewOperatorGate(secret string) *OperatorGate {
	return &OperatorGate{
		secret: secret,
	}
}

func (g *OperatorGate) OperatorOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		if g.secret == "" {
			log.Error("operator secret is not configured")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		provided := c.GetHeader(operatorSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(g.secret)) != 1 {
			log.Info("rejected operator request",
				zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
