package authn

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/timgst1/aegis/internal/keystore"
)

// Issuer mints signed tokens. Minting is deliberately separate from
// verification: the gateway's decision path never sees the private key.
type Issuer struct {
	signer   *keystore.Signer
	issuer   string
	audience string
}

func NewIssuer(signer *keystore.Signer, issuer, audience string) *Issuer {
	return &Issuer{signer: signer, issuer: issuer, audience: audience}
}

// Mint signs a token for the given identity. A fresh jti becomes the
// identity's unique id on verification.
func (i *Issuer) Mint(id Identity, ttl time.Duration, now time.Time) (string, error) {
	if id.Name == "" {
		return "", fmt.Errorf("mint: subject name is empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("mint: ttl must be positive")
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Name,
			Issuer:    i.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Namespace: id.Namespace,
		Groups:    id.Groups,
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	tok := jwt.NewWithClaims(i.signer.Method(), claims)
	return tok.SignedString(i.signer.Key())
}
