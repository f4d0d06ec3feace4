// Package bridge maps identities between the Ethereum and Move account
// models. The forward mapping embeds the 20-byte Ethereum address into the
// low 20 bytes of a 32-byte engine address; the inverse is defined only for
// addresses of that form.
package bridge

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/NoirHQ/engine-sidecar/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const deriveCacheSize = 4096

// Bridge derives Ethereum addresses from secp256k1 public keys and
// translates them into and out of the engine's address space. All
// operations are pure; the only state is a write-once derivation cache
// safe for concurrent use.
type Bridge struct {
	derived *lru.Cache // 64-byte pubkey -> common.Address
}

func New() *Bridge {
	cache, _ := lru.New(deriveCacheSize)
	return &Bridge{derived: cache}
}

// Derive computes the Ethereum address of an uncompressed secp256k1 public
// key: the low 20 bytes of Keccak-256 over the 64-byte curve point. The
// cache is consulted before hashing, so repeat keys cost one map lookup.
func (b *Bridge) Derive(pubkey []byte) (common.Address, error) {
	switch len(pubkey) {
	case 65:
		if pubkey[0] != 0x04 {
			return common.Address{}, fmt.Errorf("%w: invalid public key prefix 0x%02x", models.ErrAddressMapping, pubkey[0])
		}
		pubkey = pubkey[1:]
	case 64:
	default:
		return common.Address{}, fmt.Errorf("%w: invalid public key length %d", models.ErrAddressMapping, len(pubkey))
	}
	key := string(pubkey)
	if cached, ok := b.derived.Get(key); ok {
		return cached.(common.Address), nil
	}
	addr := common.BytesToAddress(crypto.Keccak256(pubkey)[12:])
	b.derived.Add(key, addr)
	return addr, nil
}

// ToMoveAddress embeds an Ethereum address into the engine address space.
// Total and injective: the high 12 bytes are zero, the low 20 carry the
// Ethereum address.
func ToMoveAddress(addr common.Address) models.MoveAddress {
	var out models.MoveAddress
	copy(out[12:], addr[:])
	return out
}

// ToEthAddress inverts ToMoveAddress. Engine addresses outside the embedded
// range are not under sidecar control and have no Ethereum projection.
func ToEthAddress(addr models.MoveAddress) (common.Address, error) {
	for _, c := range addr[:12] {
		if c != 0 {
			return common.Address{}, fmt.Errorf("%w: %s is not an embedded address", models.ErrAddressMapping, addr)
		}
	}
	return common.BytesToAddress(addr[12:]), nil
}
