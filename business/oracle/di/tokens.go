// Package di contains dependency injection tokens for the oracle context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/oracle/app"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Gateway = di.NewToken[*app.Gateway]("oracle.Gateway")
)

func GetGateway(c di.ServiceRegistry) *app.Gateway {
	return di.GetToken(c, Gateway)
}
