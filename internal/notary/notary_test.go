package notary

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockChainRecord(t *testing.T) {
	n := NewMockChain("testnet")
	r, err := n.Record(context.Background(), "credit", "abc", "retire", map[string]string{"serial": "KEN-2025-001-2024-001"})
	require.NoError(t, err)
	assert.Equal(t, "testnet", r.Network)
	assert.True(t, strings.HasPrefix(r.TxHash, "0x"))
	assert.Len(t, r.TxHash, 2+64)
}

func TestMockChainHashIsStablePerPayload(t *testing.T) {
	n := NewMockChain("")
	a, err := n.Record(context.Background(), "credit", "abc", "retire", map[string]string{"k": "v"})
	require.NoError(t, err)
	b, err := n.Record(context.Background(), "credit", "abc", "retire", map[string]string{"k": "v"})
	require.NoError(t, err)
	c, err := n.Record(context.Background(), "credit", "abc", "transfer", map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, a.TxHash, b.TxHash)
	assert.NotEqual(t, a.TxHash, c.TxHash)
	assert.Equal(t, "mocknet", a.Network)
}
