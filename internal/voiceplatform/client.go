package voiceplatform

import "context"

// ResourceSpec carries the platform-facing definition of a resource being
// registered under a credential. Kind is one of "agent", "phone_number",
// "voice".
type ResourceSpec struct {
	Kind     string                 `json:"kind"`
	Name     string                 `json:"name"`
	OwnerRef string                 `json:"owner_ref,omitempty"`
	Config   map[string]interface{} `json:"config,omitempty"`
}

// ProbeResult is the outcome of a capability probe against one credential.
type ProbeResult struct {
	OK       bool   // request round-tripped and the platform accepted the secret
	Degraded bool   // HTTP 200 but the body carried an error payload
	Message  string // platform-side detail, if any
}

// Client is the remote voice-platform API, scoped to the calls this
// subsystem needs. Every method takes the credential secret explicitly:
// a registration is only addressable as (remoteID, credential) pairs.
type Client interface {
	CreateAgentRegistration(ctx context.Context, secret string, spec ResourceSpec) (remoteID string, err error)
	DeleteAgentRegistration(ctx context.Context, secret, remoteID string) error

	CreatePhoneNumberRegistration(ctx context.Context, secret string, spec ResourceSpec) (remoteID string, err error)
	DeletePhoneNumberRegistration(ctx context.Context, secret, remoteID string) error

	CreateVoiceRegistration(ctx context.Context, secret string, spec ResourceSpec) (remoteID string, err error)
	DeleteVoiceRegistration(ctx context.Context, secret, remoteID string) error

	ProbeCapability(ctx context.Context, secret string) (ProbeResult, error)
}
