// Package asset models on-chain tokens and exact token amounts.
// Amounts are big.Int in the token's smallest unit; decimal.Decimal is
// only used at the boundaries (config parsing, display, API payloads).
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ID identifies an asset by chain and contract address. The zero
// address denotes the chain's native coin.
type ID struct {
	chainID uint64
	address common.Address
}

// NewNativeID returns the ID of a chain's native coin.
func NewNativeID(chainID uint64) ID {
	return ID{chainID: chainID}
}

// NewTokenID returns the ID of an ERC20 token.
func NewTokenID(chainID uint64, addr common.Address) ID {
	if addr == (common.Address{}) {
		panic("asset: token address cannot be zero, use NewNativeID")
	}
	return ID{chainID: chainID, address: addr}
}

func (id ID) ChainID() uint64         { return id.chainID }
func (id ID) Address() common.Address { return id.address }
func (id ID) IsNative() bool          { return id.address == (common.Address{}) }

func (id ID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/native", id.chainID)
	}
	return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
}

// Asset is token metadata. The symbol is display only; identity is the ID.
type Asset struct {
	id       ID
	symbol   string
	name     string
	decimals uint8
}

// New creates an Asset.
func New(id ID, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	return &Asset{id: id, symbol: symbol, name: name, decimals: decimals}
}

// NewToken is a shorthand for an ERC20 asset.
func NewToken(chainID uint64, addr common.Address, symbol, name string, decimals uint8) *Asset {
	return New(NewTokenID(chainID, addr), symbol, name, decimals)
}

func (a *Asset) ID() ID                  { return a.id }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) Address() common.Address { return a.id.address }
func (a *Asset) String() string          { return a.symbol }

// Name returns the human readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Equals compares two assets by ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}
