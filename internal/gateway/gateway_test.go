package gateway_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/timgst1/aegis/internal/authn"
	"github.com/timgst1/aegis/internal/authz"
	"github.com/timgst1/aegis/internal/gateway"
	"github.com/timgst1/aegis/internal/keystore"
	"github.com/timgst1/aegis/internal/policy"
)

type fixture struct {
	gw     *gateway.Gateway
	issuer *authn.Issuer
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	ks, err := keystore.Load(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	signer, err := keystore.NewSigner(priv)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	store := policy.NewStore()
	store.UpsertRole(policy.Role{
		Name:      "pod-reader",
		Namespace: "demo",
		Rules: []policy.Rule{{
			APIGroups: []string{"", "apps"},
			Resources: []string{"pods", "deployments"},
			Verbs:     []string{"get", "list", "watch"},
		}},
	})
	store.UpsertRoleBinding(policy.RoleBinding{
		Name:      "pod-reader",
		Namespace: "demo",
		Subjects:  []policy.Subject{{Kind: "ServiceAccount", Name: "my-pod-sa", Namespace: "demo"}},
		RoleRef:   policy.RoleRef{Kind: policy.RoleRefKindRole, Name: "pod-reader"},
	})

	verifier := authn.NewVerifier(ks, authn.Options{Audience: "api"})
	engine := authz.NewEngine(store)

	return fixture{
		gw:     gateway.New(verifier, engine, nil),
		issuer: authn.NewIssuer(signer, "aegis", "api"),
	}
}

func (f fixture) saToken(t *testing.T, now time.Time) string {
	t.Helper()
	tok, err := f.issuer.Mint(authn.Identity{
		Kind: authn.KindServiceAccount, Name: "my-pod-sa", Namespace: "demo",
	}, time.Hour, now)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return tok
}

func TestDecide_Allowed(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	res := f.gw.Decide(f.saToken(t, now), authz.Action{Verb: "get", Resource: "pods", Namespace: "demo"}, now)
	if res.Status != gateway.StatusAllowed {
		t.Fatalf("expected allowed, got %s: %s", res.Status, res.Reason)
	}
	if res.Identity.String() != "ServiceAccount:demo/my-pod-sa" {
		t.Fatalf("unexpected identity %q", res.Identity.String())
	}
}

func TestDecide_Denied(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	res := f.gw.Decide(f.saToken(t, now), authz.Action{Verb: "delete", Resource: "pods", Namespace: "demo"}, now)
	if res.Status != gateway.StatusDenied {
		t.Fatalf("expected denied, got %s: %s", res.Status, res.Reason)
	}
	if !strings.Contains(res.Reason, "no rule grants") {
		t.Fatalf("deny must carry a diagnosable reason, got %q", res.Reason)
	}
}

func TestDecide_ExpiredTokenIsUnauthenticated(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	tok := f.saToken(t, now.Add(-2*time.Hour))

	res := f.gw.Decide(tok, authz.Action{Verb: "get", Resource: "pods", Namespace: "demo"}, now)
	if res.Status != gateway.StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s: %s", res.Status, res.Reason)
	}
	if !strings.Contains(res.Reason, "token expired") {
		t.Fatalf("expected token expired reason, got %q", res.Reason)
	}
}

func TestDecide_GarbageTokenIsUnauthenticated(t *testing.T) {
	f := newFixture(t)

	res := f.gw.Decide("garbage", authz.Action{Verb: "get", Resource: "pods", Namespace: "demo"}, time.Now())
	if res.Status != gateway.StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s: %s", res.Status, res.Reason)
	}
}

func TestDecide_ConcurrentCalls(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	tok := f.saToken(t, now)

	done := make(chan gateway.Status, 16)
	for i := 0; i < 16; i++ {
		go func() {
			res := f.gw.Decide(tok, authz.Action{Verb: "get", Resource: "pods", Namespace: "demo"}, now)
			done <- res.Status
		}()
	}
	for i := 0; i < 16; i++ {
		if st := <-done; st != gateway.StatusAllowed {
			t.Fatalf("concurrent decide %d: expected allowed, got %s", i, st)
		}
	}
}
