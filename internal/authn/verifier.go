package authn

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/timgst1/aegis/internal/keystore"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
)

// Claims is the token payload. Subject and jti come from the registered
// claims; namespace and groups are custom.
type Claims struct {
	jwt.RegisteredClaims
	Namespace string   `json:"namespace,omitempty"`
	Groups    []string `json:"groups,omitempty"`
}

type Options struct {
	// Audience, when set, must be present in the token's aud claim.
	Audience string
	// Issuer, when set, must equal the token's iss claim.
	Issuer string
}

// Verifier validates bearer tokens against the key material store.
// Verification is a pure function of the token, the options and the
// supplied time; it performs no I/O and never retries.
type Verifier struct {
	keys *keystore.KeyStore
	opts Options
}

func NewVerifier(keys *keystore.KeyStore, opts Options) *Verifier {
	return &Verifier{keys: keys, opts: opts}
}

// Verify checks structure, signature, expiry and audience, in that
// order, and constructs the Identity from the claims.
func (v *Verifier) Verify(tokenString string, now time.Time) (Identity, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(tokenString, &claims, v.keys.Keyfunc, parserOpts...); err != nil {
		return Identity{}, classify(err)
	}

	// Audience and issuer are checked here rather than via parser
	// options: a token missing the claim entirely must fail the same
	// way as one carrying the wrong value.
	if v.opts.Audience != "" && !slices.Contains(claims.Audience, v.opts.Audience) {
		return Identity{}, fmt.Errorf("%w: expected audience %q not present", ErrAudienceMismatch, v.opts.Audience)
	}
	if v.opts.Issuer != "" && claims.Issuer != v.opts.Issuer {
		return Identity{}, fmt.Errorf("%w: got issuer %q", ErrIssuerMismatch, claims.Issuer)
	}

	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: empty subject claim", ErrMalformedToken)
	}

	id := Identity{
		Kind:      KindUser,
		Name:      claims.Subject,
		Namespace: claims.Namespace,
		UID:       claims.ID,
		Groups:    claims.Groups,
	}
	if claims.Namespace != "" {
		id.Kind = KindServiceAccount
	}
	return id, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: expiry claim is in the past", ErrTokenExpired)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: signature does not match key material", ErrSignatureInvalid)
	default:
		// Structural problems, unknown alg headers and missing
		// required claims all land here.
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
