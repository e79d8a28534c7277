package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func testSub(user, token string) Subscription {
	return Subscription{
		UserAddress:   user,
		TokenSymbol:   "BNB",
		TokenID:       "binancecoin",
		TokenAddress:  token,
		Amount:        "0.5",
		Enabled:       true,
		RiskThreshold: 80,
	}
}

func TestSubscriptionLoadMissingFile(t *testing.T) {
	store := NewSubscriptionStore(t.TempDir())
	subs, err := store.Load()
	if err != nil {
		t.Fatalf("文件缺失不应报错: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("期望空列表, 实际 %d 条", len(subs))
	}
}

func TestSubscriptionUpsertCaseInsensitive(t *testing.T) {
	store := NewSubscriptionStore(t.TempDir())

	if _, err := store.Upsert(testSub("0xAAbb", "0x1111")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	updated := testSub("0xaabb", "0x1111")
	updated.RiskThreshold = 60
	if _, err := store.Upsert(updated); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	subs, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("大小写不同的同一身份应合并, 实际 %d 条", len(subs))
	}
	if subs[0].RiskThreshold != 60 {
		t.Fatalf("expected updated threshold 60, got %d", subs[0].RiskThreshold)
	}
}

func TestSubscriptionUpsertDistinctIdentity(t *testing.T) {
	store := NewSubscriptionStore(t.TempDir())

	if _, err := store.Upsert(testSub("0xAA", "0x1111")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if _, err := store.Upsert(testSub("0xAA", "0x2222")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	subs, _ := store.Load()
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(subs))
	}
}

func TestMergeTouchedLeavesOthersAsLoaded(t *testing.T) {
	dir := t.TempDir()
	store := NewSubscriptionStore(dir)

	a := testSub("0xAA", "0x1111")
	b := testSub("0xBB", "0x2222")
	if err := store.Save([]Subscription{a, b}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	touched := a
	touched.Enabled = false
	touched.LastExecutedAt = 1700000000000
	// RiskThreshold changes on touched records must NOT be merged back.
	touched.RiskThreshold = 5

	if err := store.MergeTouched([]Subscription{touched}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	subs, _ := store.Load()
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(subs))
	}
	if subs[0].Enabled || subs[0].LastExecutedAt != 1700000000000 {
		t.Fatalf("touched record not updated: %+v", subs[0])
	}
	if subs[0].RiskThreshold != 80 {
		t.Fatalf("merge must only update enabled/lastExecutedAt, got threshold %d", subs[0].RiskThreshold)
	}
	if !subs[1].Enabled || subs[1].LastExecutedAt != 0 {
		t.Fatalf("untouched record was modified: %+v", subs[1])
	}
}

func TestMergeTouchedNoOpIsByteStable(t *testing.T) {
	dir := t.TempDir()
	store := NewSubscriptionStore(dir)

	if err := store.Save([]Subscription{testSub("0xAA", "0x1111")}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(dir, subscriptionsFile))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if err := store.MergeTouched(nil); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	after, _ := os.ReadFile(filepath.Join(dir, subscriptionsFile))

	if string(before) != string(after) {
		t.Fatalf("no-op merge changed file contents:\n%s\nvs\n%s", before, after)
	}
}

func TestSubscriptionLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, subscriptionsFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewSubscriptionStore(dir)
	if _, err := store.Load(); err == nil {
		t.Fatal("损坏的文件应报错而不是静默返回空集")
	}
}
