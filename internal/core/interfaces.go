package core

import "hubwatch/internal/types"

// EventSource hands out DashboardChanged subscriptions. Cancel must release
// the subscription and close the channel.
type EventSource interface {
	Subscribe() (<-chan types.DashboardChanged, func())
}
