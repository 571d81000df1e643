package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/internal/approval"
	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/0xPuncker/chain-gatekeeper/pkg/utils"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func networkFields(chain types.ChainParams) []Field {
	fields := []Field{
		{
			Title: "Chain ID",
			Value: chain.ChainID,
			Short: true,
		},
		{
			Title: "Ticker",
			Value: chain.Ticker,
			Short: true,
		},
		{
			Title: "RPC URL",
			Value: chain.RPCURL,
			Short: false,
		},
	}

	if explorer := chain.Explorer(); explorer != "" {
		fields = append(fields, Field{
			Title: "Explorer",
			Value: fmt.Sprintf("🔍 <%s|View Explorer>", explorer),
			Short: false,
		})
	}
	return fields
}

func formatApprovalMessage(a approval.Approval, now time.Time) *SlackMessage {
	remaining := a.ExpiresAt.Sub(now)

	color := "#36a64f"
	if remaining < time.Minute {
		color = "#ffcc00"
	}

	fields := append([]Field{
		{
			Title: "Origin",
			Value: a.Origin,
			Short: true,
		},
		{
			Title: "Expires In",
			Value: utils.FormatDuration(remaining),
			Short: true,
		},
	}, networkFields(a.RequestData)...)

	return &SlackMessage{
		Text: fmt.Sprintf("🔐 Approval Requested: Add %s", a.RequestData.NetworkName),
		Attachments: []Attachment{
			{
				Color:  color,
				Fields: fields,
				Footer: fmt.Sprintf("Approval: %s | Type: %s", a.ID, a.Type),
				Ts:     now.Unix(),
			},
		},
	}
}

var outcomeColors = map[approval.Outcome]string{
	approval.OutcomeApproved:  "good",
	approval.OutcomeRejected:  "danger",
	approval.OutcomeExpired:   "warning",
	approval.OutcomeCancelled: "#808080",
}

// formatResolutionMessage titles the outcome word only. Network names are
// shown exactly as the dapp sent them.
func formatResolutionMessage(a approval.Approval, outcome approval.Outcome, now time.Time) *SlackMessage {
	return &SlackMessage{
		Text: fmt.Sprintf("Approval %s: Add %s", cases.Title(language.English).String(string(outcome)), a.RequestData.NetworkName),
		Attachments: []Attachment{
			{
				Color:  outcomeColors[outcome],
				Fields: []Field{{Title: "Origin", Value: a.Origin, Short: true}},
				Footer: fmt.Sprintf("Approval: %s | Type: %s", a.ID, a.Type),
				Ts:     now.Unix(),
			},
		},
	}
}

func formatNetworkAddedMessage(chain types.ChainParams, now time.Time) *SlackMessage {
	return &SlackMessage{
		Text: fmt.Sprintf("✅ Network Added: %s", chain.NetworkName),
		Attachments: []Attachment{
			{
				Color:  "good",
				Fields: networkFields(chain),
				Ts:     now.Unix(),
			},
		},
	}
}

func formatStartupMessage(networks []types.ChainParams, now time.Time) *SlackMessage {
	names := make([]string, 0, len(networks))
	for _, n := range networks {
		names = append(names, fmt.Sprintf("%s (%s)", n.NetworkName, n.ChainID))
	}

	text := "No custom networks registered"
	if len(names) > 0 {
		text = strings.Join(names, "\n")
	}

	return &SlackMessage{
		Text: fmt.Sprintf("🚀 Chain Gatekeeper started with %d custom networks", len(networks)),
		Attachments: []Attachment{
			{
				Color: "#808080",
				Text:  text,
				Ts:    now.Unix(),
			},
		},
	}
}
