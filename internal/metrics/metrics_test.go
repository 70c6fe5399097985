package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveRequest(t *testing.T) {
	ObserveRequest("example.com", "GET", 200, 0.012)
	ObserveRequest("example.com", "GET", 200, 0.034)
	ObserveRequest("example.com", "POST", 404, 0.001)

	counter, err := requestsTotal.GetMetricWithLabelValues("example.com", "GET", "200")
	if err != nil {
		t.Fatal(err)
	}
	var m dto.Metric
	if err := counter.Write(&m); err != nil {
		t.Fatal(err)
	}
	if got := m.GetCounter().GetValue(); got < 2 {
		t.Errorf("counter = %v, want at least 2", got)
	}
}

func TestCollectorsRegistered(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "gatehouse_http_") {
			found = true
			break
		}
	}
	if !found {
		t.Error("gatehouse collectors not registered on the default registry")
	}
}
