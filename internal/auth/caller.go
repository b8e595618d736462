package auth

import "context"

// Capability is a permission a caller may hold
type Capability string

const (
	// CapabilityRead allows browsing the catalog and commenting
	CapabilityRead Capability = "read"
	// CapabilityAdmin allows catalog maintenance, comment moderation and reports
	CapabilityAdmin Capability = "admin"
)

// Caller identifies who invokes a service operation
type Caller struct {
	Username     string
	Capabilities []Capability
}

// Anonymous is the caller of a request that carried no credentials
var Anonymous = Caller{}

// Authenticated reports whether the caller has a username
func (c Caller) Authenticated() bool {
	return c.Username != ""
}

// Can reports whether the caller holds capability
func (c Caller) Can(capability Capability) bool {
	for _, held := range c.Capabilities {
		if held == capability {
			return true
		}
	}
	return false
}

type callerKey struct{}

// WithCaller returns a copy of ctx carrying caller
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// FromContext returns the caller stored in ctx, or Anonymous
func FromContext(ctx context.Context) Caller {
	if caller, ok := ctx.Value(callerKey{}).(Caller); ok {
		return caller
	}
	return Anonymous
}
