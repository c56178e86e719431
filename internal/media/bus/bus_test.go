// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestBusDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var mu sync.Mutex
	var got []media.MessageType
	b := New("p1", func(m media.Message) {
		mu.Lock()
		got = append(got, m.Type)
		mu.Unlock()
		assert.Equal(t, "p1", m.Source)
	}, 4)

	ctx := context.Background()
	require.NoError(t, b.Post(ctx, media.Message{Type: media.MessageStateChanged}))
	require.NoError(t, b.Post(ctx, media.Message{Type: media.MessageCapsNegotiated}))
	require.NoError(t, b.Post(ctx, media.Message{Type: media.MessageEOS}))
	b.Close()

	assert.Equal(t, []media.MessageType{
		media.MessageStateChanged,
		media.MessageCapsNegotiated,
		media.MessageEOS,
	}, got)
}

func TestBusPostAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New("p1", nil, 1)
	b.Close()
	b.Close()

	before := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("eos", "closed"))
	err := b.Post(context.Background(), media.Message{Type: media.MessageEOS})
	require.ErrorIs(t, err, media.ErrClosed)
	after := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("eos", "closed"))
	assert.Greater(t, after, before)
}

func TestBusPostTimeoutIncrementsDropMetrics(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	b := New("p1", func(media.Message) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	}, 1)

	// One message held by the handler, one filling the queue.
	require.NoError(t, b.Post(context.Background(), media.Message{Type: media.MessageWarning}))
	<-entered
	require.NoError(t, b.Post(context.Background(), media.Message{Type: media.MessageWarning}))

	before := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("warning", "timeout"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Post(ctx, media.Message{Type: media.MessageWarning})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	after := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("warning", "timeout"))
	assert.Greater(t, after, before)

	close(release)
	b.Close()
}

func TestBusPostRejectsNilContext(t *testing.T) {
	b := New("p1", nil, 1)
	defer b.Close()
	//nolint:staticcheck // nil context is the case under test
	err := b.Post(nil, media.Message{Type: media.MessageEOS})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context is nil")
}
