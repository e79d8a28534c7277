package storage

import (
	"path/filepath"
	"sort"
	"strings"
)

const (
	historyFile = "tx_history.json"

	defaultHistoryLimit = 100
	defaultMaxHistory   = 500
)

// HistoryQuery filters a history read.
type HistoryQuery struct {
	UserAddress string
	Limit       int
}

// HistoryStore keeps the most recent protective transactions. Writes are
// read-modify-write over the whole file, so concurrent writers must be
// serialised by the caller.
type HistoryStore struct {
	path     string
	maxItems int
}

// NewHistoryStore roots the store at dataDir with the given retention cap.
func NewHistoryStore(dataDir string, maxItems int) *HistoryStore {
	if maxItems <= 0 {
		maxItems = defaultMaxHistory
	}
	return &HistoryStore{path: filepath.Join(dataDir, historyFile), maxItems: maxItems}
}

// Load returns history records newest first, optionally filtered by user.
func (h *HistoryStore) Load(q HistoryQuery) ([]TxHistoryItem, error) {
	all, err := readRecords[TxHistoryItem](h.path)
	if err != nil {
		return nil, err
	}

	items := all
	if q.UserAddress != "" {
		items = items[:0:0]
		for _, it := range all {
			if strings.EqualFold(it.UserAddress, q.UserAddress) {
				items = append(items, it)
			}
		}
	}

	sortNewestFirst(items)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > h.maxItems {
		limit = h.maxItems
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Append records a new item, keeping only the newest maxItems.
func (h *HistoryStore) Append(item TxHistoryItem) error {
	all, err := readRecords[TxHistoryItem](h.path)
	if err != nil {
		return err
	}

	all = append(all, item)
	sortNewestFirst(all)
	if len(all) > h.maxItems {
		all = all[:h.maxItems]
	}

	return writeRecords(h.path, all)
}

func sortNewestFirst(items []TxHistoryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
}
