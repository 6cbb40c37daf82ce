// Command license-issuer creates signed license tokens. It runs on the
// vendor side only; the service binary never sees the private key.
//
// Generate a keypair:
//
//	license-issuer -generate-keys
//
// Issue a one-year full-bound token:
//
//	license-issuer -key issuer.key -product terrareport \
//	    -hw-core <core-fp> -hw-full <full-fp> \
//	    -customer "Acme GmbH" -contract CT-2026-0042 -days 365
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"terratrust/internal/license"
)

func main() {
	var (
		generateKeys = flag.Bool("generate-keys", false, "generate a new Ed25519 keypair and exit")
		keyPath      = flag.String("key", "", "path to the base64-encoded signing key")
		product      = flag.String("product", "terrareport", "product the token unlocks")
		edition      = flag.String("edition", "", "product edition")
		bind         = flag.String("bind", "full", "bind mode: full or core")
		hwCore       = flag.String("hw-core", "", "core hardware fingerprint of the target machine")
		hwFull       = flag.String("hw-full", "", "full hardware fingerprint of the target machine")
		days         = flag.Int("days", 365, "validity in days from now")
		expires      = flag.String("expires", "", "exact expiry date (RFC 3339), overrides -days")
		maxUsers     = flag.Int("max-users", 0, "licensed seat count, 0 for unlimited")
		customer     = flag.String("customer", "", "customer name")
		contract     = flag.String("contract", "", "contract identifier")
	)
	flag.Parse()

	if *generateKeys {
		if err := emitKeypair(); err != nil {
			fatal(err)
		}
		return
	}

	if *keyPath == "" {
		fatal(fmt.Errorf("-key is required"))
	}
	raw, err := os.ReadFile(*keyPath)
	if err != nil {
		fatal(fmt.Errorf("failed to read key file: %w", err))
	}
	priv, err := license.ParsePrivateKey(strings.TrimSpace(string(raw)))
	if err != nil {
		fatal(err)
	}
	signer, err := license.NewSigner(priv)
	if err != nil {
		fatal(err)
	}

	expiry := time.Now().UTC().AddDate(0, 0, *days)
	if *expires != "" {
		expiry, err = time.Parse(time.RFC3339, *expires)
		if err != nil {
			fatal(fmt.Errorf("invalid -expires value: %w", err))
		}
	}

	token := license.Token{
		Product:    *product,
		Edition:    *edition,
		IssuedAt:   time.Now().UTC().Unix(),
		ExpiresAt:  expiry.Unix(),
		BindMode:   license.BindMode(*bind),
		HWCore:     *hwCore,
		HWFull:     *hwFull,
		MaxUsers:   *maxUsers,
		Customer:   *customer,
		ContractID: *contract,
	}

	wire, err := signer.Issue(token)
	if err != nil {
		fatal(err)
	}

	fmt.Println(wire)
	fmt.Fprintf(os.Stderr, "issued %s token for %q, expires %s\n",
		*bind, *product, expiry.Format(time.RFC3339))
}

func emitKeypair() error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}
	fmt.Printf("private (keep secret): %s\n", base64.StdEncoding.EncodeToString(priv.Seed()))
	fmt.Printf("public (embed in build): %s\n", base64.StdEncoding.EncodeToString(pub))
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "license-issuer: %v\n", err)
	os.Exit(1)
}
