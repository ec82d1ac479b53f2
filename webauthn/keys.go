// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package webauthn

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"math/big"

	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

var (
	p256      = elliptic.P256()
	p256Order = p256.Params().N
	p256Half  = new(big.Int).Rsh(p256Order, 1)
)

// ParseSignature converts a DER encoded ECDSA signature into its 64 byte r || s form, replacing s
// with n - s when s lies in the upper half of the curve order.
func ParseSignature(der []byte) ([]byte, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
		input = cryptobyte.String(der)
	)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, acct.NewEncodingError("signature", "malformed DER signature")
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.Cmp(p256Order) >= 0 || s.Cmp(p256Order) >= 0 {
		return nil, acct.NewEncodingError("signature", "scalar out of range")
	}
	if s.Cmp(p256Half) > 0 {
		s.Sub(p256Order, s)
	}
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

// ParsePublicKey accepts a P-256 public key as a COSE key, a DER SubjectPublicKeyInfo, a 65 byte
// uncompressed point or a 64 byte x || y pair.
func ParsePublicKey(b []byte) (acct.PublicKey, error) {
	var pub acct.PublicKey
	switch {
	case len(b) == 65 && b[0] == 0x04:
		pub = acct.PublicKey{X: new(big.Int).SetBytes(b[1:33]), Y: new(big.Int).SetBytes(b[33:])}
	case len(b) == 64:
		pub = acct.PublicKey{X: new(big.Int).SetBytes(b[:32]), Y: new(big.Int).SetBytes(b[32:])}
	default:
		if key, err := x509.ParsePKIXPublicKey(b); err == nil {
			ecKey, ok := key.(*ecdsa.PublicKey)
			if !ok || ecKey.Curve != p256 {
				return acct.PublicKey{}, acct.NewEncodingError("publicKey", "not a P-256 key")
			}
			pub = acct.PublicKey{X: ecKey.X, Y: ecKey.Y}
			break
		}
		parsed, err := parseCOSE(b)
		if err != nil {
			return acct.PublicKey{}, err
		}
		pub = parsed
	}
	if !p256.IsOnCurve(pub.X, pub.Y) {
		return acct.PublicKey{}, acct.NewEncodingError("publicKey", "point is not on P-256")
	}
	return pub, nil
}

func parseCOSE(b []byte) (acct.PublicKey, error) {
	key, err := webauthncose.ParsePublicKey(b)
	if err != nil {
		return acct.PublicKey{}, acct.NewEncodingError("publicKey", "unrecognized key encoding")
	}
	var ec2 webauthncose.EC2PublicKeyData
	switch k := key.(type) {
	case webauthncose.EC2PublicKeyData:
		ec2 = k
	case *webauthncose.EC2PublicKeyData:
		ec2 = *k
	default:
		return acct.PublicKey{}, acct.NewEncodingError("publicKey", "not an EC2 key")
	}
	if ec2.Algorithm != int64(webauthncose.AlgES256) {
		return acct.PublicKey{}, acct.NewEncodingError("publicKey", "not an ES256 key")
	}
	return acct.PublicKey{
		X: new(big.Int).SetBytes(ec2.XCoord),
		Y: new(big.Int).SetBytes(ec2.YCoord),
	}, nil
}

// ToECDSA converts pub into a P-256 ecdsa key.
func ToECDSA(pub acct.PublicKey) (*ecdsa.PublicKey, error) {
	if pub.X == nil || pub.Y == nil || !p256.IsOnCurve(pub.X, pub.Y) {
		return nil, acct.NewEncodingError("publicKey", "point is not on P-256")
	}
	return &ecdsa.PublicKey{Curve: p256, X: pub.X, Y: pub.Y}, nil
}
