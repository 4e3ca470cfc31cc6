package middleware

import (
	"context"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/fingerprint"
	"github.com/gin-gonic/gin"
)

// Identity attaches the client IP and device fingerprint of each request to
// its context, where the Engine picks them up for rate limiting, risk
// scoring and login records.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(withIdentity(r)))
	})
}

// GinIdentity is Identity for gin routers.
func GinIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(withIdentity(c.Request))
		c.Next()
	}
}

func withIdentity(r *http.Request) context.Context {
	ip, _ := fingerprint.ExtractIP(r)
	ctx := goGate.WithClientIP(r.Context(), ip)
	return goGate.WithDeviceFingerprint(ctx, fingerprint.GenerateDeviceFingerprint(r))
}
