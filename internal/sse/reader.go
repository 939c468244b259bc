package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const readChunkSize = 4096

// Read consumes r until EOF and calls fn for every frame in arrival order.
// Frames are dispatched strictly sequentially; fn is never called
// concurrently. Reading stops early when fn returns an error, which is then
// returned unchanged, or when ctx is done.
//
// Read enforces no timeout of its own. Callers bound it through ctx, which
// should also be the context of the request that produced r so that a
// blocked body read is interrupted.
func Read(ctx context.Context, r io.Reader, fn func(Frame) error) error {
	dec := NewDecoder()
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			for _, f := range dec.Feed(buf[:n]) {
				if err := fn(f); err != nil {
					return err
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				for _, f := range dec.Flush() {
					if err := fn(f); err != nil {
						return err
					}
				}
				return nil
			}
			// A body closed because the request context ended surfaces as a
			// read error; report the context error instead.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read stream: %w", readErr)
		}
	}
}
