package proxy

import (
	"errors"
	"io"
	"net/http"
)

const maxBufferedResponseBytes = 16 << 20

// relayStreaming copies upstream body bytes to the caller as they arrive.
// No buffering beyond the copy chunk, no re-framing of event-stream data.
// The upstream status is mirrored, not hard-coded. Client disconnects
// surface as write errors and end the loop; the deferred body close then
// cancels the upstream read.
func relayStreaming(w http.ResponseWriter, resp *http.Response) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// relayBuffered reads the full upstream body and forwards it unmodified,
// mirroring the upstream status code.
func relayBuffered(w http.ResponseWriter, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBufferedResponseBytes))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, err = w.Write(body)
	return err
}
