package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// OwnerTokenHeader carries the owner's shared credential on admin requests.
const OwnerTokenHeader = "X-Owner-Token"

// Gate decides whether a request comes from the designated shop owner. There
// is no broader admin-role tier: exactly one owner identity may read or
// mutate orders through the admin surface.
//
// A request passes when any configured credential matches:
//   - the X-Owner-Token header equals the configured static token,
//   - the X-Owner-Token header verifies against the configured bcrypt hash,
//   - the Authorization bearer token is a valid owner JWT whose subject is
//     the configured owner id.
//
// Callers must surface denial the same way as a missing resource; the gate
// itself only answers allow/deny.
type Gate struct {
	ownerID        string
	ownerToken     string
	ownerTokenHash string
	tokens         *TokenService
}

// GateOption configures a Gate credential.
type GateOption func(*Gate)

// WithStaticToken accepts requests whose owner header equals token.
func WithStaticToken(token string) GateOption {
	return func(g *Gate) { g.ownerToken = token }
}

// WithTokenHash accepts requests whose owner header verifies against the
// bcrypt hash.
func WithTokenHash(hash string) GateOption {
	return func(g *Gate) { g.ownerTokenHash = hash }
}

// WithTokenService accepts owner JWT bearer tokens issued for ownerID.
func WithTokenService(svc *TokenService) GateOption {
	return func(g *Gate) { g.tokens = svc }
}

func NewGate(ownerID string, opts ...GateOption) *Gate {
	g := &Gate{ownerID: ownerID}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize reports whether the request is allowed to touch orders.
func (g *Gate) Authorize(r *http.Request) bool {
	if header := r.Header.Get(OwnerTokenHeader); header != "" {
		if g.ownerToken != "" &&
			subtle.ConstantTimeCompare([]byte(header), []byte(g.ownerToken)) == 1 {
			return true
		}
		if g.ownerTokenHash != "" && CheckCredential(header, g.ownerTokenHash) {
			return true
		}
	}

	if g.tokens != nil {
		if bearer := bearerToken(r); bearer != "" {
			ownerID, err := g.tokens.Validate(bearer)
			if err == nil && ownerID == g.ownerID {
				return true
			}
		}
	}

	return false
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
