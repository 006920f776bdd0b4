package intercept

import (
	"context"
	"sync"

	"identra/internal/token"
	"identra/pkg/requestcontext"
)

// TokenVerifier decrypts a bearer token into claims. Satisfied by
// *token.Service.
type TokenVerifier interface {
	Verify(token string) (*token.Claims, error)
}

// identityResolver picks the best available actor identity for one request.
// Token decryption is expensive, so it runs at most once per resolver; both
// the success and failure submission paths share the memoized result, and a
// concurrent second caller blocks on the same decryption instead of starting
// its own.
type identityResolver struct {
	attachedActor string
	bearerToken   string
	tokens        TokenVerifier

	decryptOnce sync.Once
	decrypted   string
}

func newIdentityResolver(ctx context.Context, tokens TokenVerifier) *identityResolver {
	return &identityResolver{
		attachedActor: requestcontext.ActorID(ctx),
		bearerToken:   requestcontext.BearerToken(ctx),
		tokens:        tokens,
	}
}

// Resolve tries identity sources in strict order until one yields a value:
// upstream-attached identity, then an identifier embedded in the result
// payload (success only; nil result means no payload), then the decrypted
// bearer token. An empty return is a valid outcome, not an error: anonymous
// operations are recorded with no actor.
func (r *identityResolver) Resolve(result any) string {
	if r.attachedActor != "" {
		return r.attachedActor
	}

	if result != nil {
		if actorID := extractActorID(result); actorID != "" {
			return actorID
		}
	}

	return r.fromToken()
}

// fromToken decrypts the request's bearer token, once. Verification failures
// (expired, malformed, absent) mean "no identity from this source" and are
// swallowed here; the chain has already run out of sources by this point.
func (r *identityResolver) fromToken() string {
	if r.bearerToken == "" || r.tokens == nil {
		return ""
	}

	r.decryptOnce.Do(func() {
		claims, err := r.tokens.Verify(r.bearerToken)
		if err != nil {
			return
		}
		r.decrypted = claims.Subject
	})
	return r.decrypted
}
