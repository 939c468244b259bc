package sse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(d *Decoder, chunks ...string) []Frame {
	var frames []Frame
	for _, c := range chunks {
		frames = append(frames, d.Feed([]byte(c))...)
	}
	return append(frames, d.Flush()...)
}

func TestDecoder_SingleChunk(t *testing.T) {
	frames := feedAll(NewDecoder(),
		"data: {\"type\":\"start\"}\n\ndata: {\"type\":\"complete\"}\n\n")

	require.Len(t, frames, 2)
	assert.Equal(t, `{"type":"start"}`, frames[0].Data)
	assert.Equal(t, `{"type":"complete"}`, frames[1].Data)
}

func TestDecoder_PartialFrameIsBuffered(t *testing.T) {
	d := NewDecoder()

	frames := d.Feed([]byte("data: {\"type\":\"sta"))
	assert.Empty(t, frames)
	assert.Positive(t, d.Buffered())

	frames = d.Feed([]byte("rt\"}\n"))
	assert.Empty(t, frames, "single newline does not end a frame")

	frames = d.Feed([]byte("\ndata: {\"type\":"))
	require.Len(t, frames, 1)
	assert.Equal(t, `{"type":"start"}`, frames[0].Data)
}

func TestDecoder_SplitMultiByteRune(t *testing.T) {
	payload := "data: {\"title\":\"나의 학습 로드맵\"}\n\n"
	raw := []byte(payload)

	// Cut inside the three-byte encoding of '나'.
	cut := strings.Index(payload, "나") + 1

	d := NewDecoder()
	var frames []Frame
	frames = append(frames, d.Feed(raw[:cut])...)
	frames = append(frames, d.Feed(raw[cut:])...)

	require.Len(t, frames, 1)
	assert.Equal(t, `{"title":"나의 학습 로드맵"}`, frames[0].Data)
	assert.NotContains(t, frames[0].Data, "�")
}

func TestDecoder_ByteAtATime(t *testing.T) {
	stream := "event: monthly_generated\ndata: {\"month_number\":1,\"title\":\"기초\"}\n\n" +
		": keep-alive\n\n" +
		"data: {\"type\":\"complete\"}\n\n"

	d := NewDecoder()
	var frames []Frame
	for i := 0; i < len(stream); i++ {
		frames = append(frames, d.Feed([]byte{stream[i]})...)
	}

	require.Len(t, frames, 2)
	assert.Equal(t, "monthly_generated", frames[0].Event)
	assert.Equal(t, `{"month_number":1,"title":"기초"}`, frames[0].Data)
	assert.Equal(t, "", frames[1].Event)
}

func TestDecoder_LineEndings(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
	}{
		{name: "crlf", chunks: []string{"data: a\r\n\r\ndata: b\r\n\r\n"}},
		{name: "crlf split between cr and lf", chunks: []string{"data: a\r", "\n\r", "\ndata: b\r\n\r\n"}},
		{name: "lone cr", chunks: []string{"data: a\r\rdata: b\r\r"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := feedAll(NewDecoder(), tt.chunks...)
			require.Len(t, frames, 2)
			assert.Equal(t, "a", frames[0].Data)
			assert.Equal(t, "b", frames[1].Data)
		})
	}
}

func TestDecoder_Fields(t *testing.T) {
	frames := feedAll(NewDecoder(),
		"id: 7\nretry: 1500\nevent: progress\ndata: line one\ndata:line two\nunknown: x\n\n")

	require.Len(t, frames, 1)
	f := frames[0]
	assert.Equal(t, "7", f.ID)
	assert.Equal(t, 1500, f.Retry)
	assert.Equal(t, "progress", f.Event)
	assert.Equal(t, "line one\nline two", f.Data)
}

func TestDecoder_CommentsAndEmptyBlocksAreSkipped(t *testing.T) {
	frames := feedAll(NewDecoder(), ": ping\n\n\n\n:another\n\ndata: x\n\n")
	require.Len(t, frames, 1)
	assert.Equal(t, "x", frames[0].Data)
}

func TestDecoder_FlushDispatchesUnterminatedFrame(t *testing.T) {
	d := NewDecoder()
	assert.Empty(t, d.Feed([]byte("data: {\"type\":\"complete\"}")))

	frames := d.Flush()
	require.Len(t, frames, 1)
	assert.Equal(t, `{"type":"complete"}`, frames[0].Data)
	assert.Zero(t, d.Buffered())
}

func TestDecoder_StripsBOM(t *testing.T) {
	frames := feedAll(NewDecoder(), "\xEF\xBB", "\xBFdata: x\n\n")
	require.Len(t, frames, 1)
	assert.Equal(t, "x", frames[0].Data)
}

func TestDecoder_InvalidBytesAreReplaced(t *testing.T) {
	frames := feedAll(NewDecoder(), "data: a\xffb\n\n")
	require.Len(t, frames, 1)
	assert.Equal(t, "a�b", frames[0].Data)
}

func TestFrameJSON(t *testing.T) {
	var v struct {
		Type string `json:"type"`
	}
	require.NoError(t, Frame{Data: `{"type":"start"}`}.JSON(&v))
	assert.Equal(t, "start", v.Type)

	assert.Error(t, Frame{Data: "not json"}.JSON(&v))
}

func TestRead(t *testing.T) {
	body := "data: 1\n\ndata: 2\n\ndata: 3"

	var got []string
	err := Read(context.Background(), iotest.OneByteReader(strings.NewReader(body)), func(f Frame) error {
		got = append(got, f.Data)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, got)
}

func TestRead_CallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0

	err := Read(context.Background(), strings.NewReader("data: 1\n\ndata: 2\n\n"), func(Frame) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestRead_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()

	go func() {
		_, _ = pw.Write([]byte("data: 1\n\n"))
	}()

	err := Read(ctx, pr, func(Frame) error {
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	_ = pw.Close()
}

func TestRead_ReadError(t *testing.T) {
	err := Read(context.Background(), iotest.ErrReader(errors.New("connection reset")), func(Frame) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
