package core

import (
	"context"
	"maps"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// MultiMetricsRecorder fans every sample out to each recorder in order.
type MultiMetricsRecorder []MetricsRecorder

func NewMultiMetricsRecorder(recorders ...MetricsRecorder) MetricsRecorder {
	out := make(MultiMetricsRecorder, 0, len(recorders))
	for _, recorder := range recorders {
		if recorder != nil {
			out = append(out, recorder)
		}
	}
	switch len(out) {
	case 0:
		return NopMetricsRecorder{}
	case 1:
		return out[0]
	}
	return out
}

func (m MultiMetricsRecorder) IncCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	for _, recorder := range m {
		recorder.IncCounter(ctx, name, value, cloneTags(tags))
	}
}

func (m MultiMetricsRecorder) ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	for _, recorder := range m {
		recorder.ObserveHistogram(ctx, name, value, cloneTags(tags))
	}
}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	maps.Copy(copied, tags)
	return copied
}

var (
	_ MetricsRecorder = NopMetricsRecorder{}
	_ MetricsRecorder = MultiMetricsRecorder(nil)
)
