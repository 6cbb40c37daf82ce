// Package license implements offline license tokens for the TerraTrust
// platform. Tokens are issued once by the vendor, signed with Ed25519,
// and verified on customer hardware without any network dependency.
//
// # Architecture Overview
//
// The package consists of three components:
//
//   - Token: the canonical payload and its wire encoding
//   - Signer / Verifier: issuance and the four-step verification chain
//   - Manager: activation workflow and encrypted persistence
//
// # Verification Flow
//
// Verification walks a fixed chain and stops at the first failure:
//
//  1. Decode the wire format and re-encode the payload canonically
//  2. Check the Ed25519 signature against the embedded public key
//  3. Check the expiry date
//  4. Compare the hardware fingerprint for the token's bind mode
//
// A hardware mismatch in full bind mode can be tolerated when the
// installation opted into tolerance at activation time; the token is
// then rechecked against the core fingerprint only.
//
// # Hardware Binding
//
// Fingerprints come from the security package. The core fingerprint
// covers machine ID, hostname, CPU and platform; the full fingerprint
// additionally mixes in the primary MAC address. Tokens carry both and
// declare which one binds them.
package license
