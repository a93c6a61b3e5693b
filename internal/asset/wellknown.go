package asset

import "github.com/ethereum/go-ethereum/common"

const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
)

// Ethereum mainnet token addresses.
var (
	AddrWETH = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDT = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrUNI  = common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984")
	AddrWBTC = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

var (
	ETH  = New(NewNativeID(ChainIDEthereum), "ETH", "Ethereum", 18)
	WETH = NewToken(ChainIDEthereum, AddrWETH, "WETH", "Wrapped Ether", 18)
	USDC = NewToken(ChainIDEthereum, AddrUSDC, "USDC", "USD Coin", 6)
	USDT = NewToken(ChainIDEthereum, AddrUSDT, "USDT", "Tether USD", 6)
	DAI  = NewToken(ChainIDEthereum, AddrDAI, "DAI", "Dai Stablecoin", 18)
	UNI  = NewToken(ChainIDEthereum, AddrUNI, "UNI", "Uniswap", 18)
	WBTC = NewToken(ChainIDEthereum, AddrWBTC, "WBTC", "Wrapped Bitcoin", 8)
)

// DefaultRegistry returns a registry with the mainnet tokens above.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{ETH, WETH, USDC, USDT, DAI, UNI, WBTC} {
		r.Register(a)
	}
	return r
}
