package stream

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/malonaz/ragchat/internal/apierr"
)

const readBufferSize = 4096

type chunk struct {
	data []byte
	err  error
}

// Reader pulls bytes from a response body and yields decoded text fragments.
// A background goroutine performs the blocking reads so that Next can honor
// cancellation and the idle timeout.
type Reader struct {
	body        io.ReadCloser
	decoder     *Decoder
	idleTimeout time.Duration

	chunks    chan chunk
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// NewReader starts reading body. An idleTimeout <= 0 waits indefinitely between reads.
// The caller must Close the reader.
func NewReader(body io.ReadCloser, idleTimeout time.Duration) *Reader {
	r := &Reader{
		body:        body,
		decoder:     NewDecoder(),
		idleTimeout: idleTimeout,
		chunks:      make(chan chunk),
		done:        make(chan struct{}),
	}
	go r.pump()
	return r
}

func (r *Reader) pump() {
	for {
		buf := make([]byte, readBufferSize)
		n, err := r.body.Read(buf)
		if n > 0 {
			select {
			case r.chunks <- chunk{data: buf[:n]}:
			case <-r.done:
				return
			}
		}
		if err != nil {
			select {
			case r.chunks <- chunk{err: err}:
			case <-r.done:
			}
			return
		}
	}
}

// Next returns the next non-empty text fragment. It returns io.EOF once the body
// is exhausted and every held-back byte has been decoded.
func (r *Reader) Next(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}

	var timeout <-chan time.Time
	var timer *time.Timer
	if r.idleTimeout > 0 {
		timer = time.NewTimer(r.idleTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return "", r.fail(ctx.Err())

		case <-timeout:
			r.Close()
			return "", r.fail(&apierr.TransportError{Op: "read", Err: apierr.ErrIdleTimeout})

		case c := <-r.chunks:
			if c.err == io.EOF {
				r.err = io.EOF
				text, err := r.decoder.Decode(nil, true)
				if err != nil {
					return "", r.fail(&apierr.ProtocolError{Message: "decoding stream", Err: err})
				}
				if text != "" {
					return text, nil
				}
				return "", io.EOF
			}
			if c.err != nil {
				return "", r.fail(&apierr.TransportError{Op: "read", Err: c.err})
			}

			text, err := r.decoder.Decode(c.data, false)
			if err != nil {
				return "", r.fail(&apierr.ProtocolError{Message: "decoding stream", Err: err})
			}
			if text != "" {
				return text, nil
			}
			// Only part of a multi-byte sequence arrived.
			if timer != nil {
				timer.Reset(r.idleTimeout)
			}
		}
	}
}

func (r *Reader) fail(err error) error {
	r.err = err
	return err
}

// Close releases the body and stops the background read.
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		err = r.body.Close()
	})
	return err
}
