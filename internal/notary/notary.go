// Package notary is the mocked blockchain notarization layer. The registry
// records state transitions with it fire-and-forget; no business decision
// ever depends on a receipt.
package notary

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/sha3"
)

// Receipt is the opaque acknowledgement returned by the chain.
type Receipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber int64  `json:"block_number,omitempty"`
	Network     string `json:"network"`
}

// Notary records entity actions on an external ledger.
type Notary interface {
	Record(ctx context.Context, entityType, entityID, action string, payload interface{}) (*Receipt, error)
}

// MockChain fabricates deterministic-looking receipts. The tx hash is the
// Keccak-256 of the canonical payload, which makes receipts stable in tests.
type MockChain struct {
	Network string
}

func NewMockChain(network string) *MockChain {
	if network == "" {
		network = "mocknet"
	}
	return &MockChain{Network: network}
}

func (m *MockChain) Record(ctx context.Context, entityType, entityID, action string, payload interface{}) (*Receipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("notary: marshal payload: %w", err)
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(entityType))
	h.Write([]byte(entityID))
	h.Write([]byte(action))
	h.Write(body)
	return &Receipt{
		TxHash:      "0x" + hex.EncodeToString(h.Sum(nil)),
		BlockNumber: time.Now().UnixMilli(),
		Network:     m.Network,
	}, nil
}

// RecordAsync notarizes in the background. Failures are logged and dropped;
// the triggering transition has already committed.
func RecordAsync(n Notary, entityType, entityID, action string, payload interface{}) {
	if n == nil {
		return
	}
	go func() {
		if _, err := n.Record(context.Background(), entityType, entityID, action, payload); err != nil {
			log.Error().Err(err).Str("entity_type", entityType).Str("entity_id", entityID).Str("action", action).Msg("notarization failed")
		}
	}()
}
