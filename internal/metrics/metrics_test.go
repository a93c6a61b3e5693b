package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/metric"
)

func TestNewMetricProvider_PrometheusScrape(t *testing.T) {
	ctx := context.Background()

	mp, err := NewMetricProvider(ctx, WithServiceName("flasharb-test"))
	if err != nil {
		t.Fatalf("NewMetricProvider() error: %v", err)
	}
	defer mp.Shutdown(ctx)

	counter, err := mp.Meter("test").Int64Counter("probe_total", metric.WithDescription("probe"))
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(ctx, 3)

	srv := httptest.NewServer(NewPrometheusServer().Handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "probe_total") {
		t.Errorf("scrape does not contain probe_total:\n%s", body)
	}
}

func TestNewMetricProvider_UnknownProvider(t *testing.T) {
	_, err := NewMetricProvider(context.Background(), WithProviderConfig(ProviderCfg{Provider: "statsd"}))
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}
