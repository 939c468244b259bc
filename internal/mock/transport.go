package mock

import (
	"io"
	"net/http"
	"strconv"
	"sync"
)

// Host is the placeholder host of in-process mock URLs.
const Host = "studyplan.mock"

// BaseURL is the API root to use with Transport.
const BaseURL = "http://" + Host + BasePath

// Transport returns a RoundTripper that serves requests from s in process.
// Responses stream: the body is readable as soon as the handler writes its
// header, and closing it stops the handler.
func (s *Server) Transport() http.RoundTripper {
	return &transport{handler: s}
}

type transport struct {
	handler http.Handler
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	pr, pw := io.Pipe()
	w := &pipeWriter{
		header: make(http.Header),
		pipe:   pw,
		ready:  make(chan struct{}),
	}

	// Handlers read the request as a server would see it.
	in := req.Clone(req.Context())
	in.RequestURI = req.URL.RequestURI()
	in.RemoteAddr = "127.0.0.1:0"
	if in.Body == nil {
		in.Body = http.NoBody
	}

	go func() {
		defer func() {
			w.WriteHeader(http.StatusOK)
			_ = in.Body.Close()
			_ = pw.CloseWithError(in.Context().Err())
		}()
		t.handler.ServeHTTP(w, in)
	}()

	select {
	case <-w.ready:
	case <-req.Context().Done():
		_ = pr.Close()
		return nil, req.Context().Err()
	}

	resp := &http.Response{
		Status:        strconv.Itoa(w.status) + " " + http.StatusText(w.status),
		StatusCode:    w.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        w.sent,
		Body:          pr,
		ContentLength: -1,
		Request:       req,
	}
	return resp, nil
}

// pipeWriter is an http.ResponseWriter whose body flows through a pipe.
type pipeWriter struct {
	header http.Header
	sent   http.Header
	pipe   *io.PipeWriter
	status int
	once   sync.Once
	ready  chan struct{}
}

func (w *pipeWriter) Header() http.Header {
	return w.header
}

func (w *pipeWriter) WriteHeader(code int) {
	w.once.Do(func() {
		w.status = code
		w.sent = w.header.Clone()
		close(w.ready)
	})
}

func (w *pipeWriter) Write(p []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return w.pipe.Write(p)
}

// Flush implements http.Flusher. Writes reach the reader directly.
func (w *pipeWriter) Flush() {
	w.WriteHeader(http.StatusOK)
}
