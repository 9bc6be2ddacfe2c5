package nvd

import (
	"context"
	"strings"
)

type credentialKey struct{}

// WithCredential attaches the caller's NVD API key to the context so tools
// invoked deep inside an agent run can forward it
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// CredentialFrom returns the API key attached with WithCredential, if any
func CredentialFrom(ctx context.Context) string {
	credential, _ := ctx.Value(credentialKey{}).(string)
	return credential
}

// CredentialFromHeader extracts the API key from an Authorization header
// value. Both a bare key and "Bearer <key>" are accepted.
func CredentialFromHeader(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
