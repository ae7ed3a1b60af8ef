package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/consultorio-api/internal/common"
)

const bearerPrefix = "Bearer "

// Verifier turns a raw bearer credential into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (common.Identity, error)
}

// Gate rejects requests that do not carry a verifiable bearer token.
type Gate struct {
	Verifier Verifier
	// Timeout bounds verification, which may fetch signing keys.
	Timeout time.Duration
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (g Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			common.WriteError(w, common.Unauthorized("No authentication token provided", nil))
			return
		}
		id, err := g.verify(r.Context(), token)
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("id token rejected")
			common.WriteError(w, common.Unauthorized("Invalid authentication token", err))
			return
		}
		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("user_id", id.UID)
		})
		next.ServeHTTP(w, r.WithContext(common.WithIdentity(r.Context(), id)))
	})
}

func (g Gate) verify(ctx context.Context, token string) (common.Identity, error) {
	if g.Verifier == nil {
		return common.Identity{}, errVerifierMissing
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	id, err := g.Verifier.Verify(ctx, token)
	if err != nil {
		return common.Identity{}, err
	}
	if strings.TrimSpace(id.UID) == "" {
		return common.Identity{}, errMissingSubject
	}
	return id, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
