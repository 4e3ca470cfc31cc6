// Package httpapi exposes the goGate engine over JSON HTTP with gin.
//
// Routes registered by Handler.Register:
//
//	POST /signup
//	POST /verify
//	POST /verify/resend
//	POST /login
//	POST /password/forgot
//	POST /password/reset
//	GET  /me            (bearer access token)
//
// The router is expected to run middleware.GinIdentity first so client IP
// and device fingerprint reach the engine through the request context.
// Errors are mapped to status codes by StatusFor; repository details and
// risk assessments never appear in responses.
package httpapi
