// Package stream turns a chunked HTTP response body into ordered content fragments.
//
// Bytes flow through three stages: a Reader decodes them into text, a Framer
// splits the text into events on blank lines, and Extract strips the data
// marker from each event.
package stream

import (
	"context"
	"io"
	"time"

	"github.com/malonaz/ragchat/internal/debug"
)

// Options configures a Pump.
type Options struct {
	// IdleTimeout aborts the stream when no bytes arrive for this long. Zero disables it.
	IdleTimeout time.Duration
	// MaxEventSize bounds a single unterminated event. Zero uses DefaultMaxEventSize.
	MaxEventSize int
}

// Pump reads body to its end and calls onFragment for each content fragment, in order.
// It returns nil once the body ends and the final unterminated event, if any, has been delivered.
// On failure, fragments of fully framed events have already been delivered and the partial
// remainder is discarded. Pump always closes body.
func Pump(ctx context.Context, body io.ReadCloser, opts Options, onFragment func(string)) error {
	log := debug.GetLogger()
	maxEventSize := opts.MaxEventSize
	if maxEventSize == 0 {
		maxEventSize = DefaultMaxEventSize
	}

	reader := NewReader(body, opts.IdleTimeout)
	defer reader.Close()
	framer := NewFramer(maxEventSize)

	for {
		text, err := reader.Next(ctx)
		if err == io.EOF {
			if event, ok := framer.Flush(); ok {
				log.Debug("delivering unterminated final event", "bytes", len(event))
				if content, ok := Extract(event); ok {
					onFragment(content)
				}
			}
			return nil
		}
		if err != nil {
			log.Debug("stream aborted", "error", err, "buffered", framer.Buffered())
			return err
		}

		events, err := framer.Push(text)
		for _, event := range events {
			if content, ok := Extract(event); ok {
				onFragment(content)
			}
		}
		if err != nil {
			return err
		}
	}
}
