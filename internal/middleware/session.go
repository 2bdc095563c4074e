package middleware

import (
	"net/http"
	"time"

	"pokernight/internal/roster"
	pkgAuth "pokernight/pkg/auth"
	"pokernight/pkg/logger"
	"pokernight/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const ContextSessionKey = "rosterSession"

type SessionOptions struct {
	CookieName string
	Secure     bool
}

// Session resolves the roster session from the signed cookie, issuing a fresh
// one when the cookie is missing, tampered with or expired.
func Session(signer *pkgAuth.Signer, store roster.Store, opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ""
		if raw, err := c.Cookie(opts.CookieName); err == nil && raw != "" {
			if claims, err := signer.ParseSessionToken(raw); err == nil {
				sessionID = claims.SessionID
			} else {
				logger.Log.Debug("discarding session cookie", zap.Error(err))
			}
		}

		if sessionID == "" {
			sessionID = ulid.Make().String()
			token, expireAt, err := signer.GenerateSessionToken(sessionID)
			if err != nil {
				logger.Log.Error("failed to sign session token", zap.Error(err))
				response.Fail(c, http.StatusInternalServerError, "failed to issue session")
				c.Abort()
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(opts.CookieName, token, int(time.Until(expireAt).Seconds()), "/", "", opts.Secure, true)
			logger.Log.Debug("session issued", zap.String("sessionID", sessionID))
		}

		c.Set(ContextSessionKey, roster.NewSession(sessionID, store))
		c.Next()
	}
}

func SessionFrom(c *gin.Context) (*roster.Session, bool) {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*roster.Session)
	return sess, ok
}
