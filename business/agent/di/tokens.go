// Package di contains dependency injection tokens for the agent context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/agent/app"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Agent = di.NewToken[*app.Agent]("agent.Agent")
	// Alerter is nil when alerting is disabled.
	Alerter = di.NewToken[app.Alerter]("agent.Alerter")
)

func GetAgent(c di.ServiceRegistry) *app.Agent {
	return di.GetToken(c, Agent)
}

func GetAlerter(c di.ServiceRegistry) app.Alerter {
	return di.GetToken(c, Alerter)
}
