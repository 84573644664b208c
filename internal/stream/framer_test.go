package stream

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/ragchat/internal/apierr"
)

const sampleStream = "data: Hello\n\ndata: World\n\ndata:\n\n\n\ndata: 你好\n\ndata: tail"

func frame(t *testing.T, chunks []string) []string {
	t.Helper()
	framer := NewFramer(0)
	var events []string
	for _, c := range chunks {
		got, err := framer.Push(c)
		require.NoError(t, err)
		events = append(events, got...)
	}
	if remainder, ok := framer.Flush(); ok {
		events = append(events, remainder)
	}
	return events
}

func TestFramerSplitsOnBlankLine(t *testing.T) {
	events := frame(t, []string{sampleStream})
	assert.Equal(t, []string{"data: Hello", "data: World", "data:", "", "data: 你好", "data: tail"}, events)
}

func TestFramerChunkingInvariance(t *testing.T) {
	want := frame(t, []string{sampleStream})

	for i := 0; i <= len(sampleStream); i++ {
		for j := i; j <= len(sampleStream); j++ {
			chunks := []string{sampleStream[:i], sampleStream[i:j], sampleStream[j:]}
			require.Equal(t, want, frame(t, chunks), "splits at %d and %d", i, j)
		}
	}

	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 200; n++ {
		var chunks []string
		rest := sampleStream
		for rest != "" {
			size := rng.Intn(len(rest)) + 1
			chunks = append(chunks, rest[:size])
			rest = rest[size:]
		}
		require.Equal(t, want, frame(t, chunks), "chunks %q", chunks)
	}
}

func TestFramerRetainsRemainder(t *testing.T) {
	framer := NewFramer(0)
	events, err := framer.Push("data: a\n")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, len("data: a\n"), framer.Buffered())

	events, err = framer.Push("\ndata: b")
	require.NoError(t, err)
	assert.Equal(t, []string{"data: a"}, events)

	remainder, ok := framer.Flush()
	require.True(t, ok)
	assert.Equal(t, "data: b", remainder)

	_, ok = framer.Flush()
	assert.False(t, ok)
}

func TestFramerRejectsOversizedEvent(t *testing.T) {
	framer := NewFramer(8)
	_, err := framer.Push("data: 0123456789")
	var protocolErr *apierr.ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	assert.Contains(t, protocolErr.Message, "8 bytes")
	assert.Zero(t, framer.Buffered())
}

func TestFramerOversizedRemainderKeepsCompletedEvents(t *testing.T) {
	framer := NewFramer(8)
	events, err := framer.Push("data: a\n\ndata: 0123456789")
	var protocolErr *apierr.ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, []string{"data: a"}, events)
}

func TestFramerBoundIgnoresCompletedEvents(t *testing.T) {
	framer := NewFramer(8)
	events, err := framer.Push("data: 0123456789\n\nok")
	require.NoError(t, err)
	assert.Equal(t, []string{"data: 0123456789"}, events)
}
