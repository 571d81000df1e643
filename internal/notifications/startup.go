package notifications

import (
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/sirupsen/logrus"
)

type StartupNotifier struct {
	registry types.NetworkRegistry
	slack    *SlackService
	logger   *logrus.Logger
}

func NewStartupNotifier(registry types.NetworkRegistry, slack *SlackService, logger *logrus.Logger) *StartupNotifier {
	return &StartupNotifier{
		registry: registry,
		slack:    slack,
		logger:   logger,
	}
}

// NotifyStartup logs the registered networks and posts a summary to Slack
// when it is configured.
func (n *StartupNotifier) NotifyStartup() error {
	networks := n.registry.List()

	n.logger.Infof("=== Custom Networks (%d) ===", len(networks))
	for _, network := range networks {
		n.logger.WithFields(logrus.Fields{
			"chain_id": network.ChainID,
			"rpc_url":  network.RPCURL,
			"ticker":   network.Ticker,
		}).Info("  " + network.NetworkName)
	}

	if n.slack == nil {
		return nil
	}
	return n.slack.SendSlackMessage(formatStartupMessage(networks, n.slack.now()))
}
