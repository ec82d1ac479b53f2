// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package simulated

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wjorgensen/OneWalletDemo/contract"
)

func TestRevertData(t *testing.T) {
	dabi, err := abi.JSON(bytes.NewReader(contract.DelegationABI()))
	require.NoError(t, err)

	for _, name := range []string{"InvalidSignature", "InvalidAuthority", "KeyNotAuthorized", "KeyExpired"} {
		t.Run(name, func(t *testing.T) {
			e, ok := dabi.Errors[name]
			require.True(t, ok)

			r := revertWithError(&dabi, name)
			assert.Equal(t, e.ID[:4], r.data)

			// the revert must not alias the ABI's selector
			r.data[0] ^= 0xff
			assert.NotEqual(t, e.ID[:4], r.data)
		})
	}

	t.Run("reason", func(t *testing.T) {
		r := revertWithReason("boom")
		assert.Equal(t, errorSelector, r.data[:4])
		reason, err := abi.UnpackRevert(r.data)
		require.NoError(t, err)
		assert.Equal(t, "boom", reason)
	})
}
