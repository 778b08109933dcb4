package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("voice_bridge", reg)

	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsActive))

	c.Message("audio", OutcomeHandled)
	c.Message("audio", OutcomeBusy)
	c.Message("audio", OutcomeBusy)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.messagesTotal.WithLabelValues("audio", OutcomeBusy)))

	c.PipelineFailed("bridge")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pipelineErrors.WithLabelValues("bridge")))

	c.ProviderSwitched("tts", "openai")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.providerSwitches.WithLabelValues("tts", "openai")))

	c.PipelineCompleted("audio", 1500*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(c.pipelineDuration))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 6, count)
}
