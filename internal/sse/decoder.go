// Package sse decodes Server-Sent-Events byte streams into frames.
//
// The decoder is push-based: callers feed it chunks exactly as they come off
// the wire and get back every frame completed by that chunk. Chunk boundaries
// may fall anywhere, including inside a multi-byte UTF-8 sequence, a field
// name, or a JSON token.
package sse

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Frame is one dispatched SSE event block.
type Frame struct {
	// Event is the value of the last "event:" line, empty when absent.
	Event string
	// Data holds every "data:" line joined with "\n".
	Data string
	// ID is the value of the last "id:" line.
	ID string
	// Retry is the reconnection delay in milliseconds, 0 when unset.
	Retry int
}

// JSON unmarshals the frame payload into v.
func (f Frame) JSON(v any) error {
	return json.Unmarshal([]byte(f.Data), v)
}

var delimiter = []byte("\n\n")

// Decoder turns a sequence of byte chunks into frames. It is not safe for
// concurrent use; one decoder belongs to one stream.
type Decoder struct {
	utf8    transform.Transformer
	pending []byte // undecoded bytes of a split multi-byte sequence
	scratch []byte

	buf     []byte // decoded text not yet dispatched
	scanned int    // bytes of buf already searched for a delimiter
	cr      bool   // decoded text ended in '\r'
}

// NewDecoder returns a decoder with empty state. A leading byte-order mark is
// stripped and invalid byte sequences become U+FFFD.
func NewDecoder() *Decoder {
	return &Decoder{
		utf8:    unicode.UTF8BOM.NewDecoder(),
		scratch: make([]byte, 4096),
	}
}

// Feed decodes chunk and returns the frames it completes, in order.
func (d *Decoder) Feed(chunk []byte) []Frame {
	d.appendText(d.decode(chunk, false), false)
	return d.drain()
}

// Flush ends the stream. Any buffered, unterminated block is dispatched as a
// final frame, matching a server that closes without a trailing blank line.
func (d *Decoder) Flush() []Frame {
	d.appendText(d.decode(nil, true), true)
	frames := d.drain()

	if len(bytes.TrimSpace(d.buf)) > 0 {
		if f, ok := parseBlock(d.buf); ok {
			frames = append(frames, f)
		}
	}
	d.Reset()
	return frames
}

// Reset discards all buffered state.
func (d *Decoder) Reset() {
	d.utf8.Reset()
	d.pending = nil
	d.buf = nil
	d.scanned = 0
	d.cr = false
}

// Buffered reports how many decoded bytes are waiting for a delimiter.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// decode runs chunk through the stateful UTF-8 transformer. Bytes of an
// incomplete trailing sequence are held in pending until the next call.
func (d *Decoder) decode(chunk []byte, atEOF bool) []byte {
	src := make([]byte, 0, len(d.pending)+len(chunk))
	src = append(src, d.pending...)
	src = append(src, chunk...)

	var out []byte
	for {
		nDst, nSrc, err := d.utf8.Transform(d.scratch, src, atEOF)
		out = append(out, d.scratch[:nDst]...)
		src = src[nSrc:]
		if err == transform.ErrShortDst && (nDst > 0 || nSrc > 0) {
			continue
		}
		break
	}

	d.pending = append(d.pending[:0], src...)
	return out
}

// appendText normalises CRLF and lone CR line endings to LF and appends the
// result to the frame buffer. A trailing CR is held back because the next
// chunk may start with its LF.
func (d *Decoder) appendText(text []byte, atEOF bool) {
	if d.cr {
		text = append([]byte{'\r'}, text...)
		d.cr = false
	}
	if !atEOF && len(text) > 0 && text[len(text)-1] == '\r' {
		d.cr = true
		text = text[:len(text)-1]
	}
	if len(text) == 0 {
		return
	}

	text = bytes.ReplaceAll(text, []byte("\r\n"), []byte("\n"))
	text = bytes.ReplaceAll(text, []byte("\r"), []byte("\n"))
	d.buf = append(d.buf, text...)
}

// drain splits off every complete block in the buffer.
func (d *Decoder) drain() []Frame {
	var frames []Frame
	for {
		// Resume one byte early so a delimiter straddling two feeds is found.
		start := d.scanned - 1
		if start < 0 {
			start = 0
		}
		idx := bytes.Index(d.buf[start:], delimiter)
		if idx < 0 {
			d.scanned = len(d.buf)
			break
		}
		idx += start

		block := d.buf[:idx]
		if f, ok := parseBlock(block); ok {
			frames = append(frames, f)
		}

		d.buf = d.buf[idx+len(delimiter):]
		d.scanned = 0
	}

	if len(d.buf) == 0 {
		d.buf = nil
	}
	return frames
}

// parseBlock interprets the lines of one block. Blocks with neither data nor
// an event name (comments, keep-alives) report ok=false.
func parseBlock(block []byte) (Frame, bool) {
	var (
		f    Frame
		data []string
	)

	for _, line := range strings.Split(string(block), "\n") {
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			f.Event = value
		case "data":
			data = append(data, value)
		case "id":
			if !strings.ContainsRune(value, 0) {
				f.ID = value
			}
		case "retry":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				f.Retry = n
			}
		}
	}

	if len(data) == 0 && f.Event == "" {
		return Frame{}, false
	}
	f.Data = strings.Join(data, "\n")
	return f, true
}
