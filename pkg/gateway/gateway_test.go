package gateway

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"meterr-hq/io/pkg/config"
	"meterr-hq/io/pkg/costs"
	"meterr-hq/io/pkg/importer"
	"meterr-hq/io/pkg/insights"
	"meterr-hq/io/pkg/ledger"
	"meterr-hq/io/pkg/ledger/recorder"
	"meterr-hq/io/pkg/ledger/storage"
	"meterr-hq/io/pkg/pricing"
	"meterr-hq/io/pkg/upstream"
)

// testHarness wires a gateway server against an in-memory ledger and a
// single httptest upstream registered as both providers.
type testHarness struct {
	server   *Server
	store    *storage.MemoryStore
	recorder *recorder.Recorder
}

func newTestHarness(t *testing.T, upstreamURL string, mutate func(cfg *config.Config)) *testHarness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Gateway.DefaultCustomerID = ""
	if mutate != nil {
		mutate(cfg)
	}

	store := storage.NewMemoryStore()
	rec := recorder.NewRecorder(store, nil, recorder.DefaultConfig())
	t.Cleanup(func() { rec.Close() })

	table := pricing.DefaultTable()
	calc := costs.NewCalculator(table)

	forwarders := make(map[string]*upstream.Forwarder)
	for _, provider := range []string{upstream.ProviderOpenAI, upstream.ProviderAnthropic} {
		fw, err := upstream.NewForwarder(&upstream.ForwarderConfig{
			Name:    provider,
			BaseURL: upstreamURL,
		})
		if err != nil {
			t.Fatalf("NewForwarder(%s) error = %v", provider, err)
		}
		t.Cleanup(fw.Close)
		forwarders[provider] = fw
	}

	server := NewServer(cfg, Dependencies{
		Store:      store,
		Recorder:   rec,
		Calculator: calc,
		Forwarders: forwarders,
		Importer:   importer.NewImporter(store, calc),
		Insights:   insights.NewGenerator(store, table, nil),
	})

	return &testHarness{server: server, store: store, recorder: rec}
}

// waitForEvents polls the store until n events exist for the customer
// or the deadline passes. The recorder writes asynchronously.
func (h *testHarness) waitForEvents(t *testing.T, customerID string, n int) []*ledger.MeteringEvent {
	t.Helper()

	from := time.Now().Add(-time.Hour)
	deadline := time.Now().Add(3 * time.Second)
	for {
		events, err := h.store.ListEvents(context.Background(), customerID, from, time.Now().Add(time.Hour), 100, 0)
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if len(events) >= n {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d events, have %d", n, len(events))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func newGatewayServer(t *testing.T, upstream *httptest.Server) (*testHarness, *httptest.Server) {
	t.Helper()
	h := newTestHarness(t, upstream.URL, nil)
	gw := httptest.NewServer(h.server.Handler())
	t.Cleanup(gw.Close)
	return h, gw
}
