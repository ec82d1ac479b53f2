// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package webauthn

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/pkg/errors"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

const (
	flagUserPresent  = 0x01
	flagUserVerified = 0x04
	flagAttestedData = 0x40
)

// PromptFunc is consulted before every ceremony. Returning an error aborts the ceremony, return
// acct.ErrUserCancelled to model a declined prompt.
type PromptFunc func(ctx context.Context, ceremony protocol.CeremonyType, user string) error

// Discoverable describes a credential offered to a ChooseFunc.
type Discoverable struct {
	UserName   string
	UserHandle []byte
}

// ChooseFunc picks one of several discoverable credentials by its index in creds, the way a
// platform authenticator lists its passkeys for the user.
type ChooseFunc func(ctx context.Context, creds []Discoverable) (int, error)

type softCredential struct {
	ID         []byte
	UserHandle []byte
	UserName   string
	Key        *ecdsa.PrivateKey
}

// SoftAuthenticator is an in-process platform authenticator holding P-256 keys. It answers
// ceremonies with the same JSON a browser produces and can persist its keyring to a file.
type SoftAuthenticator struct {
	mu      sync.Mutex
	origin  string
	path    string
	creds   []*softCredential
	counter uint32
	prompt  PromptFunc
	choose  ChooseFunc
}

var _ Ceremony = (*SoftAuthenticator)(nil)

var errNoCredential = errors.New("no matching credential")

// NewSoftAuthenticator creates an authenticator with an empty in-memory keyring.
func NewSoftAuthenticator(origin string) *SoftAuthenticator {
	return &SoftAuthenticator{origin: origin}
}

// OpenSoftAuthenticator loads the keyring at path, if present, and saves it back after every
// registration.
func OpenSoftAuthenticator(path, origin string) (*SoftAuthenticator, error) {
	s := &SoftAuthenticator{origin: origin, path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, "read keyring")
	}
	if err := s.unmarshal(data); err != nil {
		return nil, errors.Wrap(err, "decode keyring")
	}
	logger.Debug("keyring loaded", "path", path, "credentials", len(s.creds))
	return s, nil
}

// SetPrompt installs the function consulted before every ceremony.
func (s *SoftAuthenticator) SetPrompt(fn PromptFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = fn
}

// SetChooser installs the function picking the credential of a discoverable assertion when
// the keyring holds more than one. Without it the oldest credential answers.
func (s *SoftAuthenticator) SetChooser(fn ChooseFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.choose = fn
}

// Len returns the number of credentials held.
func (s *SoftAuthenticator) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creds)
}

func (s *SoftAuthenticator) confirm(ctx context.Context, ceremony protocol.CeremonyType, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.prompt != nil {
		return s.prompt(ctx, ceremony, user)
	}
	return nil
}

func (s *SoftAuthenticator) authData(rpID string, flags byte, attested []byte) []byte {
	s.counter++
	rpIDHash := sha256.Sum256([]byte(rpID))

	buf := make([]byte, 0, 37+len(attested))
	buf = append(buf, rpIDHash[:]...)
	buf = append(buf, flags)
	buf = binary.BigEndian.AppendUint32(buf, s.counter)
	return append(buf, attested...)
}

func (s *SoftAuthenticator) clientData(ceremony protocol.CeremonyType, challenge []byte) []byte {
	// member order matches what browsers emit
	data, _ := json.Marshal(struct {
		Type        protocol.CeremonyType `json:"type"`
		Challenge   string                `json:"challenge"`
		Origin      string                `json:"origin"`
		CrossOrigin bool                  `json:"crossOrigin"`
	}{ceremony, EncodeChallenge(challenge), s.origin, false})
	return data
}

// Register implements Ceremony by creating a new ES256 credential.
func (s *SoftAuthenticator) Register(ctx context.Context, options *protocol.CredentialCreation) ([]byte, error) {
	opts := options.Response
	supported := false
	for _, p := range opts.Parameters {
		supported = supported || p.Algorithm == webauthncose.AlgES256
	}
	if !supported {
		return nil, errors.New("no supported algorithm offered")
	}
	userHandle, err := userHandleBytes(opts.User.ID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.confirm(ctx, protocol.CreateCeremony, opts.User.Name); err != nil {
		return nil, err
	}

	key, err := ecdsa.GenerateKey(p256, rand.Reader)
	if err != nil {
		return nil, err
	}
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return nil, err
	}
	coseKey, err := cbor.Marshal(map[int]any{
		1:  int(webauthncose.EllipticKey),
		3:  int(webauthncose.AlgES256),
		-1: 1, // P-256
		-2: key.X.FillBytes(make([]byte, 32)),
		-3: key.Y.FillBytes(make([]byte, 32)),
	})
	if err != nil {
		return nil, err
	}

	var attested bytes.Buffer
	attested.Write(make([]byte, 16)) // aaguid
	_ = binary.Write(&attested, binary.BigEndian, uint16(len(id)))
	attested.Write(id)
	attested.Write(coseKey)

	attestationObject, err := cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": s.authData(opts.RelyingParty.ID, flagUserPresent|flagUserVerified|flagAttestedData, attested.Bytes()),
	})
	if err != nil {
		return nil, err
	}

	s.creds = append(s.creds, &softCredential{ID: id, UserHandle: userHandle, UserName: opts.User.Name, Key: key})
	if err := s.save(); err != nil {
		s.creds = s.creds[:len(s.creds)-1]
		return nil, err
	}

	return json.Marshal(map[string]any{
		"id":    EncodeChallenge(id),
		"rawId": protocol.URLEncodedBase64(id),
		"type":  string(protocol.PublicKeyCredentialType),
		"response": map[string]any{
			"clientDataJSON":    protocol.URLEncodedBase64(s.clientData(protocol.CreateCeremony, opts.Challenge)),
			"attestationObject": protocol.URLEncodedBase64(attestationObject),
			"transports":        []string{string(protocol.Internal)},
		},
		"clientExtensionResults":  map[string]any{},
		"authenticatorAttachment": string(protocol.Platform),
	})
}

// Authenticate implements Ceremony. Without allowed credentials the chooser picks among the
// discoverable credentials.
func (s *SoftAuthenticator) Authenticate(ctx context.Context, options *protocol.CredentialAssertion) ([]byte, error) {
	opts := options.Response

	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.find(ctx, opts.AllowedCredentials)
	if err != nil {
		return nil, err
	}
	if err := s.confirm(ctx, protocol.AssertCeremony, cred.UserName); err != nil {
		return nil, err
	}

	clientDataJSON := s.clientData(protocol.AssertCeremony, opts.Challenge)
	authData := s.authData(opts.RelyingPartyID, flagUserPresent|flagUserVerified, nil)
	msg := SignedMessage(Metadata{AuthenticatorData: authData, ClientDataJSON: string(clientDataJSON)})
	sig, err := ecdsa.SignASN1(rand.Reader, cred.Key, msg[:])
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"id":    EncodeChallenge(cred.ID),
		"rawId": protocol.URLEncodedBase64(cred.ID),
		"type":  string(protocol.PublicKeyCredentialType),
		"response": map[string]any{
			"clientDataJSON":    protocol.URLEncodedBase64(clientDataJSON),
			"authenticatorData": protocol.URLEncodedBase64(authData),
			"signature":         protocol.URLEncodedBase64(sig),
			"userHandle":        protocol.URLEncodedBase64(cred.UserHandle),
		},
		"clientExtensionResults":  map[string]any{},
		"authenticatorAttachment": string(protocol.Platform),
	})
}

func (s *SoftAuthenticator) find(ctx context.Context, allowed []protocol.CredentialDescriptor) (*softCredential, error) {
	if len(allowed) == 0 {
		switch {
		case len(s.creds) == 0:
			return nil, errNoCredential
		case len(s.creds) == 1 || s.choose == nil:
			return s.creds[0], nil
		}
		offered := make([]Discoverable, len(s.creds))
		for i, c := range s.creds {
			offered[i] = Discoverable{UserName: c.UserName, UserHandle: c.UserHandle}
		}
		i, err := s.choose(ctx, offered)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(s.creds) {
			return nil, errors.Errorf("credential choice %d out of range", i)
		}
		return s.creds[i], nil
	}
	for _, desc := range allowed {
		for _, c := range s.creds {
			if bytes.Equal(c.ID, desc.CredentialID) {
				return c, nil
			}
		}
	}
	return nil, errNoCredential
}

func userHandleBytes(id any) ([]byte, error) {
	switch v := id.(type) {
	case []byte:
		return v, nil
	case protocol.URLEncodedBase64:
		return v, nil
	case string:
		var decoded protocol.URLEncodedBase64
		if err := decoded.UnmarshalJSON([]byte(`"` + v + `"`)); err != nil {
			return nil, err
		}
		return decoded, nil
	default:
		return nil, errors.Errorf("unsupported user id type %T", id)
	}
}

type keyringEntry struct {
	ID         string        `json:"id"`
	UserHandle hexutil.Bytes `json:"userHandle"`
	UserName   string        `json:"userName"`
	Key        []byte        `json:"key"`
}

type keyring struct {
	Counter     uint32         `json:"counter"`
	Credentials []keyringEntry `json:"credentials"`
}

func (s *SoftAuthenticator) save() error {
	if s.path == "" {
		return nil
	}
	kr := keyring{Counter: s.counter}
	for _, c := range s.creds {
		der, err := x509.MarshalECPrivateKey(c.Key)
		if err != nil {
			return err
		}
		kr.Credentials = append(kr.Credentials, keyringEntry{
			ID:         EncodeChallenge(c.ID),
			UserHandle: c.UserHandle,
			UserName:   c.UserName,
			Key:        der,
		})
	}
	data, err := json.MarshalIndent(kr, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create keyring dir")
	}
	return errors.Wrap(os.WriteFile(s.path, data, 0o600), "write keyring")
}

func (s *SoftAuthenticator) unmarshal(data []byte) error {
	var kr keyring
	if err := json.Unmarshal(data, &kr); err != nil {
		return err
	}
	s.counter = kr.Counter
	for _, e := range kr.Credentials {
		id, err := decodeCredentialID(e.ID)
		if err != nil {
			return err
		}
		key, err := x509.ParseECPrivateKey(e.Key)
		if err != nil {
			return err
		}
		s.creds = append(s.creds, &softCredential{ID: id, UserHandle: e.UserHandle, UserName: e.UserName, Key: key})
	}
	return nil
}

// NewSoftProvider returns a Provider backed by an in-memory SoftAuthenticator, handy for tests
// and scripted use.
func NewSoftProvider(rp RelyingParty) (*Bridge, *SoftAuthenticator) {
	auth := NewSoftAuthenticator(rp.Origin)
	return NewBridge(auth, rp), auth
}

// declined is the PromptFunc of an authenticator whose user always says no.
func declined(context.Context, protocol.CeremonyType, string) error {
	return acct.ErrUserCancelled
}

// Decline makes every following ceremony fail with acct.ErrUserCancelled.
func (s *SoftAuthenticator) Decline() { s.SetPrompt(declined) }
