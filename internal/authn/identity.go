package authn

import "context"

type Kind string

const (
	KindServiceAccount Kind = "ServiceAccount"
	KindUser           Kind = "User"
	KindGroup          Kind = "Group"
)

// Identity is produced only by successful token verification and is
// immutable for the rest of the request.
type Identity struct {
	Kind      Kind
	Name      string
	Namespace string
	UID       string
	Groups    []string
}

func (id Identity) String() string {
	if id.Namespace != "" {
		return string(id.Kind) + ":" + id.Namespace + "/" + id.Name
	}
	return string(id.Kind) + ":" + id.Name
}

type ctxKey int

const identityKey ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
