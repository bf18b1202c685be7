// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorprof/likwid-collector/internal/metrics"
)

func bufferEvent(session string) metrics.MetricEvent {
	return metrics.MetricEvent{
		SessionID:  session,
		MetricType: metrics.MetricTypeProfileReport,
	}
}

func TestBufferPushAndDrain(t *testing.T) {
	buffer, err := NewMetricsBuffer(4)
	require.NoError(t, err)

	assert.Nil(t, buffer.Drain())

	buffer.Push(bufferEvent("s1"))
	buffer.Push(bufferEvent("s2"))
	assert.Equal(t, 2, buffer.Len())

	drained := buffer.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "s1", drained[0].SessionID)
	assert.Equal(t, "s2", drained[1].SessionID)
	assert.Zero(t, buffer.Len())
}

func TestBufferDropsOldestWhenFull(t *testing.T) {
	buffer, err := NewMetricsBuffer(2)
	require.NoError(t, err)

	buffer.Push(bufferEvent("s1"))
	buffer.Push(bufferEvent("s2"))
	buffer.Push(bufferEvent("s3"))

	drained := buffer.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "s2", drained[0].SessionID)
	assert.Equal(t, "s3", drained[1].SessionID)
}

func TestBufferNotification(t *testing.T) {
	buffer, err := NewMetricsBuffer(2)
	require.NoError(t, err)

	buffer.Push(bufferEvent("s1"))
	select {
	case <-buffer.NotifyChannel():
	default:
		t.Fatal("expected a pending notification after Push")
	}

	// Repeated pushes coalesce into a single pending notification.
	buffer.Push(bufferEvent("s2"))
	buffer.Push(bufferEvent("s3"))
	<-buffer.NotifyChannel()
	select {
	case <-buffer.NotifyChannel():
		t.Fatal("expected notifications to coalesce")
	default:
	}
}
