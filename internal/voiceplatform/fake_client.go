package voiceplatform

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// FakeClient is an in-memory platform used by tests and the local seeder.
// It tracks which (secret, remoteID) registrations exist so tests can assert
// that a resource is registered under exactly one credential at all times.
type FakeClient struct {
	mu sync.Mutex

	// registrations[secret][remoteID] = spec
	registrations map[string]map[string]ResourceSpec

	// BadSecrets simulate revoked credentials: every call fails with an
	// auth error.
	BadSecrets map[string]bool

	// FailCreate makes the next create calls for the given secret fail
	// with an unknown platform error.
	FailCreate map[string]bool

	// DegradedSecrets answer probes with a 200-plus-error-body result.
	DegradedSecrets map[string]bool

	// observedZero records spec names whose last registration anywhere was
	// removed by a delete. Used by the migration simulation test.
	observedZero []string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		registrations:   make(map[string]map[string]ResourceSpec),
		BadSecrets:      make(map[string]bool),
		FailCreate:      make(map[string]bool),
		DegradedSecrets: make(map[string]bool),
	}
}

func (f *FakeClient) CreateAgentRegistration(ctx context.Context, secret string, spec ResourceSpec) (string, error) {
	return f.create(secret, spec)
}

func (f *FakeClient) DeleteAgentRegistration(ctx context.Context, secret, remoteID string) error {
	return f.delete(secret, remoteID)
}

func (f *FakeClient) CreatePhoneNumberRegistration(ctx context.Context, secret string, spec ResourceSpec) (string, error) {
	return f.create(secret, spec)
}

func (f *FakeClient) DeletePhoneNumberRegistration(ctx context.Context, secret, remoteID string) error {
	return f.delete(secret, remoteID)
}

func (f *FakeClient) CreateVoiceRegistration(ctx context.Context, secret string, spec ResourceSpec) (string, error) {
	return f.create(secret, spec)
}

func (f *FakeClient) DeleteVoiceRegistration(ctx context.Context, secret, remoteID string) error {
	return f.delete(secret, remoteID)
}

func (f *FakeClient) ProbeCapability(ctx context.Context, secret string) (ProbeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.BadSecrets[secret] {
		return ProbeResult{}, &PlatformError{Kind: ErrKindAuth, StatusCode: 401, Message: "secret rejected"}
	}
	if f.DegradedSecrets[secret] {
		return ProbeResult{OK: true, Degraded: true, Message: "partial outage"}, nil
	}
	return ProbeResult{OK: true}, nil
}

// RegistrationCount returns how many credentials currently hold a
// registration whose spec name matches name.
func (f *FakeClient) RegistrationCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, regs := range f.registrations {
		for _, spec := range regs {
			if spec.Name == name {
				count++
			}
		}
	}
	return count
}

// Registered reports whether remoteID exists under secret.
func (f *FakeClient) Registered(secret, remoteID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.registrations[secret][remoteID]
	return ok
}

// ZeroObservations returns spec names that were ever observed with no
// registration anywhere while a delete ran.
func (f *FakeClient) ZeroObservations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.observedZero...)
}

func (f *FakeClient) create(secret string, spec ResourceSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.BadSecrets[secret] {
		return "", &PlatformError{Kind: ErrKindAuth, StatusCode: 401, Message: "secret rejected"}
	}
	if f.FailCreate[secret] {
		return "", &PlatformError{Kind: ErrKindUnknown, StatusCode: 500, Message: "simulated create failure"}
	}

	remoteID := uuid.NewString()
	if f.registrations[secret] == nil {
		f.registrations[secret] = make(map[string]ResourceSpec)
	}
	f.registrations[secret][remoteID] = spec
	return remoteID, nil
}

func (f *FakeClient) delete(secret, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.BadSecrets[secret] {
		return &PlatformError{Kind: ErrKindAuth, StatusCode: 401, Message: "secret rejected"}
	}

	regs, ok := f.registrations[secret]
	if !ok {
		return &PlatformError{Kind: ErrKindNotFound, StatusCode: 404, Message: "no registrations for credential"}
	}
	spec, ok := regs[remoteID]
	if !ok {
		return &PlatformError{Kind: ErrKindNotFound, StatusCode: 404, Message: fmt.Sprintf("registration %s not found", remoteID)}
	}
	delete(regs, remoteID)

	// Record whether the resource now exists nowhere. With destination-first
	// ordering this must never happen for a migrating resource.
	remaining := 0
	for _, other := range f.registrations {
		for _, s := range other {
			if s.Name == spec.Name {
				remaining++
			}
		}
	}
	if remaining == 0 {
		f.observedZero = append(f.observedZero, spec.Name)
	}

	return nil
}
