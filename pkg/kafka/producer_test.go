package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestProducer_PublishMarshalsJSON(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "snappy")

	err := p.Publish(context.Background(), "oracle.signals", []byte("BTC"), map[string]int{"score": 78})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "oracle.signals", w.msgs[0].Topic)
	assert.Equal(t, []byte("BTC"), w.msgs[0].Key)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, 78, decoded["score"])
}

func TestProducer_PublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&recordingWriter{err: boom}, "snappy")

	err := p.PublishMessage(context.Background(), "oracle.logs", "raw")
	assert.ErrorIs(t, err, boom)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(100*time.Millisecond, time.Second, attempt)
		assert.LessOrEqual(t, d, time.Second)
		assert.Greater(t, d, time.Duration(0))
	}
}
