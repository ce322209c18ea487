package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lunark-labs/drip/core"
	"github.com/lunark-labs/drip/service"
)

const (
	ctxUserAddress = "userAddress"
	ctxAccount     = "account"
)

func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return token, token != ""
}

// AuthMiddleware resolves the bearer token to an account and aborts with the
// appropriate code when the session is missing or dead.
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWithError(c, core.ErrMissingToken)
			return
		}

		account, err := auth.VerifySession(c.Request.Context(), token)
		if err != nil {
			coded := core.CodedError(err)
			if coded == nil {
				coded = core.ErrUnauthenticated
			}
			abortWithError(c, coded)
			return
		}

		c.Set(ctxUserAddress, account.Address)
		c.Set(ctxAccount, account)
		c.Next()
	}
}

func abortWithError(c *gin.Context, err *core.Error) {
	c.AbortWithStatusJSON(statusFor(err.Kind), gin.H{
		"error": err.Message,
		"code":  err.Code,
	})
}
