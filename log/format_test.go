// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sink []byte

func BenchmarkPrettyInt64Logfmt(b *testing.B) {
	buf := make([]byte, 100)
	b.ReportAllocs()
	for b.Loop() {
		sink = appendInt64(buf, rand.Int64()) //#nosec G404
	}
}

func BenchmarkPrettyUint64Logfmt(b *testing.B) {
	buf := make([]byte, 100)
	b.ReportAllocs()
	for b.Loop() {
		sink = appendUint64(buf, rand.Uint64(), false) //#nosec G404
	}
}

func TestAppendInt64(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{99999, "99999"},
		{100000, "100,000"},
		{-1234567, "-1,234,567"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, string(appendInt64(nil, c.in)))
	}
}

func TestTerminalHandler(t *testing.T) {
	var out bytes.Buffer
	l := NewLogger(NewTerminalHandler(&out, false))

	l.Info("executed batch", "nonce", big.NewInt(7), "fee", uint256.NewInt(21000), "data", []byte{0x12, 0x34})

	line := out.String()
	require.Contains(t, line, "INFO ")
	require.Contains(t, line, "executed batch")
	assert.Contains(t, line, "nonce=7")
	assert.Contains(t, line, "fee=21000")
	assert.Contains(t, line, "data=0x1234")
}

func TestTerminalHandlerLevel(t *testing.T) {
	var out bytes.Buffer
	var lvl slog.LevelVar
	lvl.Set(slog.LevelWarn)
	l := NewLogger(NewTerminalHandlerWithLevel(&out, &lvl, false))

	l.Info("hidden")
	require.Empty(t, out.String())

	l.Warn("shown", "k", "v w")
	assert.Contains(t, out.String(), `k="v w"`)
}

func TestWithContextFollowsRoot(t *testing.T) {
	pkgLogger := WithContext("pkg", "test")

	var out bytes.Buffer
	prev := Root()
	SetDefault(NewLogger(LogfmtHandler(&out)))
	defer SetDefault(prev)

	pkgLogger.Info("hello", "n", 1)
	assert.Contains(t, out.String(), "pkg=test")
	assert.Contains(t, out.String(), "lvl=info")
}

func TestFromLegacyLevel(t *testing.T) {
	assert.Equal(t, LevelCrit, FromLegacyLevel(0))
	assert.Equal(t, slog.LevelInfo, FromLegacyLevel(LegacyLevelInfo))
	assert.Equal(t, LevelTrace, FromLegacyLevel(9))
	assert.Equal(t, LevelCrit, FromLegacyLevel(-1))
}

func TestJSONHandler(t *testing.T) {
	var out bytes.Buffer
	var lvl slog.LevelVar
	l := NewLogger(JSONHandlerWithLevel(&out, &lvl))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	l.Info("signed", "key", key, "data", []byte{0xca, 0xfe}, "value", big.NewInt(1000000), "missing", (*big.Int)(nil))

	var record map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.Equal(t, "info", record["lvl"])
	assert.Equal(t, "<redacted>", record["key"])
	assert.Equal(t, "0xcafe", record["data"])
	assert.Equal(t, "1000000", record["value"])
	assert.Equal(t, "<nil>", record["missing"])
	assert.Contains(t, record, "t")
}

func TestTerminalHandlerRedactsKeys(t *testing.T) {
	var out bytes.Buffer
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	NewLogger(NewTerminalHandler(&out, false)).Info("signing", "key", key)
	assert.Contains(t, out.String(), "key=<redacted>")
	assert.NotContains(t, out.String(), key.D.String())
}
