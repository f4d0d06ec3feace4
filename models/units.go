package models

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Unit conversion between the engine's base currency unit and wei. The
// factor is deployment policy (consts.WeiPerBaseUnit by default); these
// helpers only provide the arithmetic.

// WeiFromBaseUnits scales an engine balance or fee into wei.
func WeiFromBaseUnits(base, factor uint64) *big.Int {
	z := new(uint256.Int).Mul(uint256.NewInt(base), uint256.NewInt(factor))
	return z.ToBig()
}

// BaseUnitsFromWei scales a wei amount down to engine base units, rounding
// toward zero. Amounts exceeding the engine's u64 range saturate.
func BaseUnitsFromWei(wei *big.Int, factor uint64) uint64 {
	if wei == nil || wei.Sign() <= 0 {
		return 0
	}
	w, overflow := uint256.FromBig(wei)
	if overflow {
		return ^uint64(0)
	}
	z := new(uint256.Int).Div(w, uint256.NewInt(factor))
	if !z.IsUint64() {
		return ^uint64(0)
	}
	return z.Uint64()
}

// EthGasFromMove converts an executed engine resource cost (gas units at an
// engine gas unit price) into an Ethereum-shaped gas amount at the given
// wei gas price. The transform is deterministic, documented as an
// approximation of later actual consumption.
func EthGasFromMove(gasUsed, gasUnitPrice, factor uint64, ethGasPrice *big.Int) uint64 {
	costWei := new(uint256.Int).Mul(uint256.NewInt(gasUsed), uint256.NewInt(gasUnitPrice))
	costWei.Mul(costWei, uint256.NewInt(factor))
	price, overflow := uint256.FromBig(ethGasPrice)
	if overflow || price.IsZero() {
		return gasUsed
	}
	z := new(uint256.Int).Div(costWei, price)
	if !z.IsUint64() {
		return ^uint64(0)
	}
	return z.Uint64()
}
