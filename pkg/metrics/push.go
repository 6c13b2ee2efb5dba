package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// RunGrouping groups a push by run. The collectors already carry the
// benchmark and engine labels, and a pushed metric may not repeat a grouping
// label.
func RunGrouping(runID string) map[string]string {
	return map[string]string{"run_id": runID}
}

// Push sends the registry to a Pushgateway under job, grouped by the given
// label pairs.
func (m *Metrics) Push(ctx context.Context, url string, job string, grouping map[string]string) error {
	pusher := push.New(url, job).Gatherer(m.registry)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
