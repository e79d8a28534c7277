package storage

import "strings"

// TxSource identifies which path produced a protective transaction.
type TxSource string

const (
	TxSourceMonitor TxSource = "monitor"
	TxSourceManual  TxSource = "manual"
	TxSourceAgent   TxSource = "agent"
)

// ParseTxSource normalises a raw source value, defaulting to manual.
func ParseTxSource(raw string) TxSource {
	switch TxSource(strings.ToLower(strings.TrimSpace(raw))) {
	case TxSourceMonitor:
		return TxSourceMonitor
	case TxSourceAgent:
		return TxSourceAgent
	default:
		return TxSourceManual
	}
}

// Subscription is a watched position. Identity is the case-insensitive
// (UserAddress, TokenAddress) pair; at most one record may exist per pair.
type Subscription struct {
	UserAddress    string `json:"userAddress"`
	TokenSymbol    string `json:"tokenSymbol"`
	TokenID        string `json:"tokenId"`
	TokenAddress   string `json:"tokenAddress"`
	Amount         string `json:"amount"`
	Enabled        bool   `json:"enabled"`
	RiskThreshold  int    `json:"riskThreshold"`
	LastExecutedAt int64  `json:"lastExecutedAt,omitempty"`
}

// SameIdentity reports whether two subscriptions refer to the same position.
func (s Subscription) SameIdentity(other Subscription) bool {
	return strings.EqualFold(s.UserAddress, other.UserAddress) &&
		strings.EqualFold(s.TokenAddress, other.TokenAddress)
}

// TxHistoryItem is one append-only execution record.
type TxHistoryItem struct {
	UserAddress     string   `json:"userAddress"`
	TokenAddress    string   `json:"tokenAddress"`
	TxHash          string   `json:"txHash"`
	Timestamp       int64    `json:"timestamp"`
	Source          TxSource `json:"source"`
	RouterAddress   string   `json:"routerAddress,omitempty"`
	ExecutorAddress string   `json:"executorAddress,omitempty"`
}

// RiskSample is one per-subscription observation from a monitor cycle,
// retained for charting and post-hoc review.
type RiskSample struct {
	Timestamp      int64   `json:"timestamp"`
	Token          string  `json:"token"`
	SentimentScore float64 `json:"sentimentScore"`
	RiskScore      int     `json:"riskScore"`
	ShouldExit     bool    `json:"shouldExit"`
}
