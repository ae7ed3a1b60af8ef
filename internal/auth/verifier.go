package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/consultorio-api/internal/common"
)

const firebaseIssuerPrefix = "https://securetoken.google.com/"

// FirebaseVerifier verifies Firebase Authentication ID tokens against the
// published securetoken key set.
type FirebaseVerifier struct {
	Keys      jwk.Set
	Validator TokenValidator
	Now       func() time.Time
}

// NewFirebaseVerifier registers the JWKS URL in an auto-refreshing cache and
// returns a verifier bound to the project. Keys are fetched lazily on first use.
func NewFirebaseVerifier(ctx context.Context, projectID, jwksURL string, skew time.Duration, client *http.Client) (*FirebaseVerifier, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("auth: firebase project id is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute), jwk.WithHTTPClient(client)); err != nil {
		return nil, fmt.Errorf("auth: register jwks: %w", err)
	}
	return &FirebaseVerifier{
		Keys:      jwk.NewCachedSet(cache, jwksURL),
		Validator: FirebaseValidator(projectID, skew),
	}, nil
}

// FirebaseValidator returns the claim rules Firebase ID tokens must satisfy.
func FirebaseValidator(projectID string, skew time.Duration) TokenValidator {
	return TokenValidator{
		Issuer:    firebaseIssuerPrefix + projectID,
		Audience:  projectID,
		ClockSkew: skew,
		Algorithm: jwa.RS256,
	}
}

// Verify checks the signature and claims of raw and returns the caller identity.
func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (common.Identity, error) {
	if v == nil || v.Keys == nil {
		return common.Identity{}, errors.New("auth: verifier not configured")
	}
	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return common.Identity{}, fmt.Errorf("auth: parse token: %w", err)
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return common.Identity{}, errors.New("auth: expected exactly one signature")
	}
	algorithm := sigs[0].ProtectedHeaders().Algorithm()

	tok, err := jwt.Parse([]byte(raw),
		jwt.WithContext(ctx),
		jwt.WithKeySet(v.Keys),
		jwt.WithValidate(false),
	)
	if err != nil {
		return common.Identity{}, fmt.Errorf("auth: verify token: %w", err)
	}
	if err := v.Validator.Validate(tok, algorithm, v.now()); err != nil {
		return common.Identity{}, err
	}

	id := common.Identity{UID: tok.Subject()}
	if email, ok := tok.Get("email"); ok {
		if s, ok := email.(string); ok {
			id.Email = s
		}
	}
	return id, nil
}

func (v *FirebaseVerifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}
