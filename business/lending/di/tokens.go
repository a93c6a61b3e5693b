// Package di contains dependency injection tokens for the lending context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/lending/app"
	"github.com/fd1az/flashloan-arb/internal/di"
)

var (
	Facility = di.NewToken[*app.Facility]("lending.Facility")
)

func GetFacility(c di.ServiceRegistry) *app.Facility {
	return di.GetToken(c, Facility)
}
