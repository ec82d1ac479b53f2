// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package webauthn

import (
	"math"
	"strings"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

const (
	challengeKey = `"challenge"`
	typeKey      = `"type"`
)

// NewMetadata locates the challenge and type members inside clientDataJSON.
func NewMetadata(authenticatorData []byte, clientDataJSON string, userVerificationRequired bool) (Metadata, error) {
	challengeIndex, err := keyIndex(clientDataJSON, challengeKey)
	if err != nil {
		return Metadata{}, err
	}
	typeIndex, err := keyIndex(clientDataJSON, typeKey)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		AuthenticatorData:        authenticatorData,
		ClientDataJSON:           clientDataJSON,
		ChallengeIndex:           challengeIndex,
		TypeIndex:                typeIndex,
		UserVerificationRequired: userVerificationRequired,
	}, nil
}

func keyIndex(clientDataJSON, key string) (uint16, error) {
	i := strings.Index(clientDataJSON, key)
	if i < 0 {
		return 0, acct.NewEncodingError("clientDataJSON", "missing "+key)
	}
	if i > math.MaxUint16 {
		return 0, acct.NewEncodingError("clientDataJSON", key+" beyond uint16 offset")
	}
	return uint16(i), nil
}
