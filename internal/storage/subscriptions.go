package storage

import "path/filepath"

const subscriptionsFile = "subscriptions.json"

// SubscriptionStore persists the watched positions as a single JSON record
// file with full-read/full-write semantics. Safe under the monitor's
// single-flight guarantee; not safe against a second process writing the
// same file concurrently.
type SubscriptionStore struct {
	path string
}

// NewSubscriptionStore roots the store at dataDir.
func NewSubscriptionStore(dataDir string) *SubscriptionStore {
	return &SubscriptionStore{path: filepath.Join(dataDir, subscriptionsFile)}
}

// Load returns every stored subscription. A missing file is an empty list.
func (s *SubscriptionStore) Load() ([]Subscription, error) {
	return readRecords[Subscription](s.path)
}

// Save replaces the stored subscription set.
func (s *SubscriptionStore) Save(subs []Subscription) error {
	return writeRecords(s.path, subs)
}

// Upsert inserts or replaces the record matching sub's identity.
func (s *SubscriptionStore) Upsert(sub Subscription) (Subscription, error) {
	subs, err := s.Load()
	if err != nil {
		return Subscription{}, err
	}

	replaced := false
	for i := range subs {
		if subs[i].SameIdentity(sub) {
			subs[i] = sub
			replaced = true
			break
		}
	}
	if !replaced {
		subs = append(subs, sub)
	}

	if err := s.Save(subs); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// MergeTouched writes back the stored set with only the touched records'
// Enabled/LastExecutedAt fields updated, matched by case-insensitive
// identity. Untouched records are persisted exactly as loaded so the
// monitor never clobbers concurrent edits to unrelated subscriptions.
func (s *SubscriptionStore) MergeTouched(touched []Subscription) error {
	current, err := s.Load()
	if err != nil {
		return err
	}

	for i := range current {
		for _, t := range touched {
			if current[i].SameIdentity(t) {
				current[i].Enabled = t.Enabled
				current[i].LastExecutedAt = t.LastExecutedAt
				break
			}
		}
	}

	return s.Save(current)
}
