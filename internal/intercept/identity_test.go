package intercept

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"identra/internal/token"
	dErrors "identra/pkg/domain-errors"
	"identra/pkg/requestcontext"
)

type fakeVerifier struct {
	claims *token.Claims
	err    error
	calls  atomic.Int64
}

func (f *fakeVerifier) Verify(string) (*token.Claims, error) {
	f.calls.Add(1)
	return f.claims, f.err
}

func TestResolvePrefersAttachedActor(t *testing.T) {
	verifier := &fakeVerifier{claims: &token.Claims{Subject: "from-token"}}
	ctx := requestcontext.WithActorID(context.Background(), "attached")
	ctx = requestcontext.WithBearerToken(ctx, "some-token")

	resolver := newIdentityResolver(ctx, verifier)

	assert.Equal(t, "attached", resolver.Resolve(map[string]any{"userId": "from-result"}))
	assert.Equal(t, int64(0), verifier.calls.Load(), "attached identity must not trigger decryption")
}

func TestResolveFallsBackToResult(t *testing.T) {
	verifier := &fakeVerifier{claims: &token.Claims{Subject: "from-token"}}
	ctx := requestcontext.WithBearerToken(context.Background(), "some-token")

	resolver := newIdentityResolver(ctx, verifier)

	assert.Equal(t, "from-result", resolver.Resolve(map[string]any{"userId": "from-result"}))
	assert.Equal(t, int64(0), verifier.calls.Load())
}

func TestResolveFallsBackToToken(t *testing.T) {
	verifier := &fakeVerifier{claims: &token.Claims{Subject: "from-token"}}
	ctx := requestcontext.WithBearerToken(context.Background(), "some-token")

	resolver := newIdentityResolver(ctx, verifier)

	assert.Equal(t, "from-token", resolver.Resolve(nil))
}

func TestResolveDecryptsAtMostOnce(t *testing.T) {
	verifier := &fakeVerifier{claims: &token.Claims{Subject: "u1"}}
	ctx := requestcontext.WithBearerToken(context.Background(), "some-token")

	resolver := newIdentityResolver(ctx, verifier)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "u1", resolver.Resolve(nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), verifier.calls.Load())
}

func TestResolveSwallowsVerifyFailure(t *testing.T) {
	verifier := &fakeVerifier{err: dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")}
	ctx := requestcontext.WithBearerToken(context.Background(), "garbage")

	resolver := newIdentityResolver(ctx, verifier)

	assert.Empty(t, resolver.Resolve(nil))
	assert.Empty(t, resolver.Resolve(nil), "failed decryption is memoized as anonymous")
	assert.Equal(t, int64(1), verifier.calls.Load())
}

func TestResolveAnonymous(t *testing.T) {
	resolver := newIdentityResolver(context.Background(), nil)
	assert.Empty(t, resolver.Resolve(nil))
}
