package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"strings"
)

// AdminTokens guards the policy-management plane with static bearer
// tokens loaded once from a file. This is the control plane, not the
// decision path: requests being authorized carry their own JWTs.
type AdminTokens struct {
	tokenToSubject map[string]string
}

// LoadAdminTokens supports two formats:
//  1. a single token on one line
//  2. one "subject = token" (or "subject: token") per line
func LoadAdminTokens(path string) (*AdminTokens, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return nil, errors.New("admin token file is empty")
	}

	m := parseTokenFile(raw)
	if len(m) == 0 {
		return nil, errors.New("no tokens found in admin token file")
	}

	return &AdminTokens{tokenToSubject: m}, nil
}

func (a *AdminTokens) authenticate(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}

	got := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if got == "" {
		return "", false
	}

	for tok, subject := range a.tokenToSubject {
		if subtle.ConstantTimeCompare([]byte(got), []byte(tok)) == 1 {
			return subject, true
		}
	}
	return "", false
}

func RequireAdmin(a *AdminTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				http.Error(w, "admin endpoints disabled", http.StatusForbidden)
				return
			}
			if _, ok := a.authenticate(r); !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseTokenFile(raw string) map[string]string {
	out := map[string]string{}

	lines := strings.Split(raw, "\n")
	if len(lines) == 1 && !strings.Contains(lines[0], "=") && !strings.Contains(lines[0], ":") {
		out[strings.TrimSpace(lines[0])] = "admin"
		return out
	}

	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}

		var subject, token string
		if strings.Contains(ln, "=") {
			parts := strings.SplitN(ln, "=", 2)
			subject, token = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		} else if strings.Contains(ln, ":") {
			parts := strings.SplitN(ln, ":", 2)
			subject, token = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		} else {
			continue
		}

		if subject == "" || token == "" {
			continue
		}

		out[token] = subject
	}

	return out
}
