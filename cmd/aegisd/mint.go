package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/timgst1/aegis/internal/authn"
	"github.com/timgst1/aegis/internal/keystore"
)

// runMint signs a token offline. Issuance stays out of the serving
// process on purpose: the gateway only ever verifies.
func runMint(args []string) error {
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)

	keyPath := fs.String("key", os.Getenv("SIGNING_KEY_PATH"), "Path to PEM signing key [required]")
	subject := fs.String("subject", "", "Subject name [required]")
	namespace := fs.String("namespace", "", "Namespace (set for ServiceAccount tokens)")
	groups := fs.String("groups", "", "Comma-separated group memberships")
	issuer := fs.String("issuer", getenvDefault("TOKEN_ISSUER", "aegis"), "Issuer claim")
	audience := fs.String("audience", os.Getenv("TOKEN_AUDIENCE"), "Audience claim")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *keyPath == "" {
		return fmt.Errorf("--key (or env SIGNING_KEY_PATH) is required")
	}
	if *subject == "" {
		return fmt.Errorf("--subject is required")
	}

	signer, err := keystore.LoadSignerFile(*keyPath)
	if err != nil {
		return err
	}

	id := authn.Identity{
		Kind:      authn.KindUser,
		Name:      *subject,
		Namespace: *namespace,
	}
	if *namespace != "" {
		id.Kind = authn.KindServiceAccount
	}
	if *groups != "" {
		id.Groups = strings.Split(*groups, ",")
	}

	tok, err := authn.NewIssuer(signer, *issuer, *audience).Mint(id, *ttl, time.Now())
	if err != nil {
		return err
	}

	fmt.Println(tok)
	return nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
