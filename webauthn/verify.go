// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package webauthn

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/pkg/errors"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

// ErrInvalidAssertion is returned when an assertion does not verify.
var ErrInvalidAssertion = errors.New("invalid assertion")

// EncodeChallenge returns the form a challenge takes inside clientDataJSON.
func EncodeChallenge(challenge []byte) string {
	return base64.RawURLEncoding.EncodeToString(challenge)
}

// SignedMessage returns the message hash a WebAuthn signature covers,
// sha256(authenticatorData || sha256(clientDataJSON)).
func SignedMessage(m Metadata) [32]byte {
	clientDataHash := sha256.Sum256([]byte(m.ClientDataJSON))
	return sha256.Sum256(append(append([]byte{}, m.AuthenticatorData...), clientDataHash[:]...))
}

// Verify checks an assertion the way the delegation contract does: the client data must be a
// get ceremony over challenge, the authenticator flags must satisfy the metadata, and the
// signature must be a low-s P-256 signature by pub over the WebAuthn message.
func Verify(pub acct.PublicKey, challenge []byte, a *Assertion) error {
	m := a.Metadata

	var clientData protocol.CollectedClientData
	if err := json.Unmarshal([]byte(m.ClientDataJSON), &clientData); err != nil {
		return errors.Wrap(ErrInvalidAssertion, "client data")
	}
	if clientData.Type != protocol.AssertCeremony {
		return errors.Wrapf(ErrInvalidAssertion, "ceremony type %q", clientData.Type)
	}
	if strings.TrimRight(clientData.Challenge, "=") != EncodeChallenge(challenge) {
		return errors.Wrap(ErrInvalidAssertion, "challenge mismatch")
	}
	if !hasAt(m.ClientDataJSON, m.TypeIndex, `"type":"webauthn.get"`) ||
		!hasAt(m.ClientDataJSON, m.ChallengeIndex, `"challenge":"`) {
		return errors.Wrap(ErrInvalidAssertion, "metadata indices")
	}

	var authData protocol.AuthenticatorData
	if err := authData.Unmarshal(m.AuthenticatorData); err != nil {
		return errors.Wrap(ErrInvalidAssertion, "authenticator data")
	}
	if !authData.Flags.UserPresent() {
		return errors.Wrap(ErrInvalidAssertion, "user not present")
	}
	if m.UserVerificationRequired && !authData.Flags.UserVerified() {
		return errors.Wrap(ErrInvalidAssertion, "user not verified")
	}

	if len(a.Signature) != 64 {
		return errors.Wrap(ErrInvalidAssertion, "signature length")
	}
	r := new(big.Int).SetBytes(a.Signature[:32])
	s := new(big.Int).SetBytes(a.Signature[32:])
	if s.Cmp(p256Half) > 0 {
		return errors.Wrap(ErrInvalidAssertion, "high s")
	}
	key, err := ToECDSA(pub)
	if err != nil {
		return errors.Wrap(ErrInvalidAssertion, err.Error())
	}
	msg := SignedMessage(m)
	if !ecdsa.Verify(key, msg[:], r, s) {
		return errors.Wrap(ErrInvalidAssertion, "signature mismatch")
	}
	return nil
}

func hasAt(s string, i uint16, prefix string) bool {
	return int(i) <= len(s) && strings.HasPrefix(s[i:], prefix)
}
