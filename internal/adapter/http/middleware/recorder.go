package middleware

import (
	"bufio"
	"net"
	"net/http"
)

// statusRecorder remembers what the handler wrote so Logging and Metrics can
// report it. It keeps Hijack working for the websocket upgrade on /ws.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func record(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}

func (rw *statusRecorder) WriteHeader(status int) {
	if rw.status == 0 {
		rw.status = status
	}
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Status is 200 when the handler wrote nothing.
func (rw *statusRecorder) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}
