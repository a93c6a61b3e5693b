// Package di contains dependency injection tokens for the amm context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/amm/app"
	"github.com/fd1az/flashloan-arb/business/amm/infra/uniswapv2"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Registry = di.NewToken[*app.Registry]("amm.Registry")
	// Mirror is nil unless at least one pool mirrors mainnet.
	Mirror = di.NewToken[*uniswapv2.Mirror]("amm.Mirror")
)

func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetMirror(c di.ServiceRegistry) *uniswapv2.Mirror {
	return di.GetToken(c, Mirror)
}
