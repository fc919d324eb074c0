// Package inject appends the live-reload client script to outgoing HTML
// responses.
package inject

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/snapfire/snapfire/internal/livereload"
)

var bodyCloseTag = []byte("</body>")

// Middleware returns a response transform that injects the reload script
// tag, bound to the given endpoint path, into successful HTML responses.
// Non-HTML, non-2xx and streamed responses pass through byte-identical,
// and a response that already carries the tag is never injected twice.
func Middleware(endpoint string, logger *zap.Logger) func(http.Handler) http.Handler {
	tag := []byte(livereload.ScriptTag(endpoint))
	marker := []byte(livereload.ScriptTagMarker)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Upgrade requests must reach the handler on the raw writer;
			// the buffering recorder cannot hijack the connection.
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.streamed {
				return
			}

			body := rec.buf.Bytes()
			if !shouldInject(rec, body, marker) {
				rec.replay(body)
				return
			}

			injected := injectBefore(body, tag)
			rec.Header().Set("Content-Length", strconv.Itoa(len(injected)))
			rec.replay(injected)
			logger.Debug("reload script injected",
				zap.String("path", r.URL.Path), zap.Int("bytes", len(tag)))
		})
	}
}

func shouldInject(rec *recorder, body, marker []byte) bool {
	if rec.status < 200 || rec.status >= 300 {
		return false
	}
	ct := rec.Header().Get("Content-Type")
	if !strings.Contains(strings.ToLower(ct), "text/html") {
		return false
	}
	// Already injected earlier in this request lifecycle.
	return !bytes.Contains(body, marker)
}

// injectBefore places the tag immediately before the last closing body tag,
// or at the very end when the document has none.
func injectBefore(body, tag []byte) []byte {
	idx := lastIndexFold(body, bodyCloseTag)

	out := make([]byte, 0, len(body)+len(tag))
	if idx < 0 {
		out = append(out, body...)
		out = append(out, tag...)
		return out
	}
	out = append(out, body[:idx]...)
	out = append(out, tag...)
	out = append(out, body[idx:]...)
	return out
}

// lastIndexFold is bytes.LastIndex under ASCII case folding.
func lastIndexFold(haystack, needle []byte) int {
	for i := len(haystack) - len(needle); i >= 0; i-- {
		if bytes.EqualFold(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

// recorder buffers the response so the body can be rewritten before it
// reaches the client. A handler that flushes explicitly is streaming;
// buffered bytes are forwarded untouched and the recorder degrades to a
// passthrough.
type recorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	streamed bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.streamed {
		return r.ResponseWriter.Write(p)
	}
	return r.buf.Write(p)
}

func (r *recorder) Flush() {
	if !r.streamed {
		r.streamed = true
		r.Header().Del("Content-Length")
		r.ResponseWriter.WriteHeader(r.status)
		_, _ = r.ResponseWriter.Write(r.buf.Bytes())
	}
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// replay forwards the final status and body to the real writer.
func (r *recorder) replay(body []byte) {
	r.ResponseWriter.WriteHeader(r.status)
	_, _ = r.ResponseWriter.Write(body)
}
