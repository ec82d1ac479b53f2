// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package webauthn provides the passkey side of a delegated account: credential creation,
// assertion signing, the metadata the delegation contract needs to verify an assertion, and
// local verification of assertions against a known public key.
package webauthn

import (
	"context"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

// User identifies the account a credential is created for. ID is stored by the authenticator
// and handed back as the user handle of later assertions.
type User struct {
	ID          []byte
	Name        string
	DisplayName string
}

// Credential is a newly created passkey.
type Credential struct {
	// ID is the credential id, base64url encoded without padding.
	ID        string
	PublicKey acct.PublicKey
}

// Metadata is the part of an assertion the delegation contract needs besides the signature.
// It is passed on chain unmodified.
type Metadata struct {
	AuthenticatorData        []byte
	ClientDataJSON           string
	ChallengeIndex           uint16
	TypeIndex                uint16
	UserVerificationRequired bool
}

// Assertion is a signature produced by a passkey over a challenge.
type Assertion struct {
	CredentialID string
	// Signature is the 64 byte r || s encoding with s normalized to the lower half of the order.
	Signature []byte
	// Raw is the signature as returned by the authenticator, ASN.1 DER encoded.
	Raw        []byte
	UserHandle []byte
	Metadata   Metadata
}

// Provider is the credential capability the account layer depends on. Implementations return
// an error wrapping acct.ErrUserCancelled when the user declines a prompt.
type Provider interface {
	// CreateCredential registers a new P-256 passkey for user.
	CreateCredential(ctx context.Context, user User) (*Credential, error)
	// Sign asks the passkey identified by credentialID to sign challenge. An empty credentialID
	// lets the authenticator pick a discoverable credential.
	Sign(ctx context.Context, challenge []byte, credentialID string) (*Assertion, error)
}
