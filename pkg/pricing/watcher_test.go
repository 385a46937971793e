package pricing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"meterr-hq/io/pkg/costs"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	if err := os.WriteFile(path, []byte(samplePricing), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, version, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	table := NewTable(nil)
	table.Replace(entries, version)

	w, err := NewWatcher(table, dir, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Watch(ctx) }()
	defer w.Stop()

	// Give the watcher a moment to register the directory.
	time.Sleep(50 * time.Millisecond)

	updated := `entries:
  - provider: openai
    model: gpt-4
    input_per_1k: "0.02"
    output_per_1k: "0.04"
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	want := costs.MustParseUSD("0.02")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rate, match := table.Lookup("openai", "gpt-4", time.Now())
		if match == costs.MatchExact && rate.InputPer1K == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("table was not reloaded after pricing file change")
}

func TestWatcher_KeepsSnapshotOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	if err := os.WriteFile(path, []byte(samplePricing), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, version, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	table := NewTable(nil)
	table.Replace(entries, version)

	w, err := NewWatcher(table, dir, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("{{{{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The bad file must not clobber the active snapshot.
	time.Sleep(300 * time.Millisecond)
	rate, match := table.Lookup("openai", "gpt-4", time.Now())
	if match != costs.MatchExact || rate.InputPer1K != costs.MustParseUSD("0.03") {
		t.Fatalf("snapshot was lost after failed reload: match=%d rate=%+v", match, rate)
	}
}
