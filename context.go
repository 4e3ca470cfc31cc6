package goGate

import "context"

type clientIPContextKey struct{}
type deviceFingerprintContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for rate limiting, risk scoring and audit events when a request does not
// carry one explicitly.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithDeviceFingerprint attaches a device fingerprint, typically produced by
// fingerprint.GenerateDeviceFingerprint, to ctx.
func WithDeviceFingerprint(ctx context.Context, fp string) context.Context {
	return context.WithValue(ctx, deviceFingerprintContextKey{}, fp)
}

// ClientIPFromContext returns the IP attached with WithClientIP.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

// DeviceFingerprintFromContext returns the fingerprint attached with
// WithDeviceFingerprint.
func DeviceFingerprintFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	fp, _ := ctx.Value(deviceFingerprintContextKey{}).(string)
	return fp
}
