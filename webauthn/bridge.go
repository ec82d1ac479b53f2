// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package webauthn

import (
	"context"
	"crypto/rand"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/pkg/errors"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/log"
)

var logger = log.WithContext("pkg", "webauthn")

// Ceremony runs WebAuthn ceremonies on an authenticator, typically a browser or a platform
// authenticator behind some transport. It receives the standard options and returns the JSON
// serialized PublicKeyCredential, exactly as navigator.credentials would.
type Ceremony interface {
	Register(ctx context.Context, options *protocol.CredentialCreation) ([]byte, error)
	Authenticate(ctx context.Context, options *protocol.CredentialAssertion) ([]byte, error)
}

// RelyingParty identifies the application the credentials are scoped to.
type RelyingParty struct {
	ID     string `yaml:"id"     env:"ID"`
	Name   string `yaml:"name"   env:"NAME"`
	Origin string `yaml:"origin" env:"ORIGIN"`
}

// Bridge is a Provider driving a Ceremony. Responses are parsed and checked with go-webauthn.
type Bridge struct {
	ceremony Ceremony
	rp       RelyingParty
	// UserVerificationRequired is forwarded to the contract inside the assertion metadata.
	UserVerificationRequired bool
}

var _ Provider = (*Bridge)(nil)

// NewBridge creates a Provider over ceremony for the relying party rp.
func NewBridge(ceremony Ceremony, rp RelyingParty) *Bridge {
	return &Bridge{ceremony: ceremony, rp: rp, UserVerificationRequired: true}
}

func (b *Bridge) userVerification() protocol.UserVerificationRequirement {
	if b.UserVerificationRequired {
		return protocol.VerificationRequired
	}
	return protocol.VerificationPreferred
}

// CreateCredential implements Provider.
func (b *Bridge) CreateCredential(ctx context.Context, user User) (*Credential, error) {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}
	options := &protocol.CredentialCreation{
		Response: protocol.PublicKeyCredentialCreationOptions{
			RelyingParty: protocol.RelyingPartyEntity{
				CredentialEntity: protocol.CredentialEntity{Name: b.rp.Name},
				ID:               b.rp.ID,
			},
			User: protocol.UserEntity{
				CredentialEntity: protocol.CredentialEntity{Name: user.Name},
				DisplayName:      user.DisplayName,
				ID:               protocol.URLEncodedBase64(user.ID),
			},
			Challenge: protocol.URLEncodedBase64(challenge),
			Parameters: []protocol.CredentialParameter{
				{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
			},
			AuthenticatorSelection: protocol.AuthenticatorSelection{
				ResidentKey:      protocol.ResidentKeyRequirementRequired,
				UserVerification: b.userVerification(),
			},
			Attestation: protocol.PreferNoAttestation,
		},
	}

	raw, err := b.ceremony.Register(ctx, options)
	if err != nil {
		return nil, errors.WithMessage(err, "register")
	}
	parsed, err := protocol.ParseCredentialCreationResponseBytes(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse creation response")
	}
	if parsed.Response.CollectedClientData.Type != protocol.CreateCeremony {
		return nil, errors.Errorf("unexpected ceremony %q", parsed.Response.CollectedClientData.Type)
	}
	if err := b.checkClientData(parsed.Response.CollectedClientData, challenge); err != nil {
		return nil, err
	}

	pub, err := ParsePublicKey(parsed.Response.AttestationObject.AuthData.AttData.CredentialPublicKey)
	if err != nil {
		return nil, err
	}
	logger.Debug("credential created", "id", parsed.ID, "user", user.Name)
	return &Credential{ID: parsed.ID, PublicKey: pub}, nil
}

// Sign implements Provider.
func (b *Bridge) Sign(ctx context.Context, challenge []byte, credentialID string) (*Assertion, error) {
	options := &protocol.CredentialAssertion{
		Response: protocol.PublicKeyCredentialRequestOptions{
			Challenge:        protocol.URLEncodedBase64(challenge),
			RelyingPartyID:   b.rp.ID,
			UserVerification: b.userVerification(),
		},
	}
	if credentialID != "" {
		id, err := decodeCredentialID(credentialID)
		if err != nil {
			return nil, err
		}
		options.Response.AllowedCredentials = []protocol.CredentialDescriptor{
			{Type: protocol.PublicKeyCredentialType, CredentialID: id},
		}
	}

	raw, err := b.ceremony.Authenticate(ctx, options)
	if err != nil {
		return nil, errors.WithMessage(err, "authenticate")
	}
	parsed, err := protocol.ParseCredentialRequestResponseBytes(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse assertion response")
	}
	if credentialID != "" && parsed.ID != credentialID {
		return nil, errors.Errorf("assertion from unexpected credential %s", parsed.ID)
	}
	if parsed.Response.CollectedClientData.Type != protocol.AssertCeremony {
		return nil, errors.Errorf("unexpected ceremony %q", parsed.Response.CollectedClientData.Type)
	}
	if err := b.checkClientData(parsed.Response.CollectedClientData, challenge); err != nil {
		return nil, err
	}

	response := parsed.Raw.AssertionResponse
	sig, err := ParseSignature(response.Signature)
	if err != nil {
		return nil, err
	}
	metadata, err := NewMetadata(response.AuthenticatorData, string(response.ClientDataJSON), b.UserVerificationRequired)
	if err != nil {
		return nil, err
	}
	return &Assertion{
		CredentialID: parsed.ID,
		Signature:    sig,
		Raw:          response.Signature,
		UserHandle:   parsed.Response.UserHandle,
		Metadata:     metadata,
	}, nil
}

func (b *Bridge) checkClientData(c protocol.CollectedClientData, challenge []byte) error {
	if strings.TrimRight(c.Challenge, "=") != EncodeChallenge(challenge) {
		return errors.New("client data challenge mismatch")
	}
	if b.rp.Origin != "" && c.Origin != b.rp.Origin {
		return errors.Errorf("client data origin %q, want %q", c.Origin, b.rp.Origin)
	}
	return nil
}

func decodeCredentialID(id string) ([]byte, error) {
	var decoded protocol.URLEncodedBase64
	if err := decoded.UnmarshalJSON([]byte(`"` + id + `"`)); err != nil || len(decoded) == 0 {
		return nil, acct.NewEncodingError("credentialID", "not base64url")
	}
	return decoded, nil
}
