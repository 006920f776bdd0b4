// Package intercept records an audit entry for any operation that declares an
// audit descriptor. The wrapper is additive, never a gatekeeper: it does not
// touch the operation's inputs, result, or error, and every audit-side
// failure stays inside this package.
package intercept

import (
	"context"
	"log/slog"

	"identra/internal/audit"
	"identra/pkg/requestcontext"
)

// Submitter hands prepared audit inputs to the background writer. Satisfied
// by *worker.Worker.
type Submitter interface {
	Submit(input audit.Input)
}

// Interceptor wraps operations and emits one audit entry per completed
// invocation.
type Interceptor struct {
	audits Submitter
	tokens TokenVerifier
	logger *slog.Logger
}

// New constructs an interceptor. tokens may be nil when no authentication
// boundary exists (every identity then resolves through cheaper sources).
func New(audits Submitter, tokens TokenVerifier, logger *slog.Logger) *Interceptor {
	return &Interceptor{audits: audits, tokens: tokens, logger: logger}
}

// snapshot is the request-time context captured before the operation runs.
// The audit entry is built after the response may already be on the wire, so
// everything needed later is copied out of the context up front.
type snapshot struct {
	ip        string
	userAgent string
	requestID string
}

// Do runs op and records exactly one audit entry for its outcome.
//
// The operation's result and error pass through untouched; in particular a
// failing op's error is re-returned identically. Audit submission happens on
// a background goroutine after the outcome is known, so the caller never
// waits on identity resolution or the audit write.
func Do[T any](ctx context.Context, i *Interceptor, desc audit.Descriptor, op func(ctx context.Context) (T, error)) (T, error) {
	capture := snapshot{
		ip:        requestcontext.ClientIP(ctx),
		userAgent: requestcontext.UserAgent(ctx),
		requestID: requestcontext.RequestID(ctx),
	}
	resolver := newIdentityResolver(ctx, i.tokens)

	result, err := op(ctx)
	if err != nil {
		i.emit(capture, resolver, desc, nil, err)
		return result, err
	}

	i.emit(capture, resolver, desc, result, nil)
	return result, nil
}

// emit resolves identity and submits one audit input in the background.
// Anything that goes wrong in here is logged and discarded; the business
// outcome has already been decided.
func (i *Interceptor) emit(capture snapshot, resolver *identityResolver, desc audit.Descriptor, result any, opErr error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				i.logger.Error("audit emission panicked, entry discarded",
					"action", desc.Action,
					"entity_type", desc.EntityType,
					"request_id", capture.requestID,
					"panic", r,
				)
			}
		}()

		actorID := resolver.Resolve(result)

		input := audit.Input{
			ActorID:     actorID,
			IPAddress:   capture.ip,
			UserAgent:   capture.userAgent,
			Action:      desc.Action,
			EntityType:  desc.EntityType,
			EntityID:    i.resolveEntityID(desc, result, actorID),
			Description: desc.Description,
			Success:     opErr == nil,
		}
		if opErr != nil {
			input.ErrorMessage = opErr.Error()
		}
		if capture.requestID != "" {
			input.Metadata = map[string]any{"requestId": capture.requestID}
		}

		i.audits.Submit(input)
	}()
}

// resolveEntityID prefers an identifier declared in the descriptor, then one
// extracted from the result payload, then the resolved actor.
func (i *Interceptor) resolveEntityID(desc audit.Descriptor, result any, actorID string) string {
	if desc.EntityID != "" {
		return desc.EntityID
	}
	if result != nil {
		if id := extractEntityID(result, desc); id != "" {
			return id
		}
	}
	return actorID
}
