package webmonitor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
)

var (
	blankOnce sync.Once
	blankData []byte
	blankErr  error
)

// blankJPEG is the placeholder frame shown while no session is producing
// frames: a dark frame with a neutral bar.
func blankJPEG() ([]byte, error) {
	blankOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 640, 480))
		bg := color.RGBA{R: 30, G: 30, B: 36, A: 255}
		bar := color.RGBA{R: 70, G: 70, B: 80, A: 255}
		for y := 0; y < 480; y++ {
			for x := 0; x < 640; x++ {
				if y >= 220 && y < 260 {
					img.Set(x, y, bar)
				} else {
					img.Set(x, y, bg)
				}
			}
		}
		var buf bytes.Buffer
		if blankErr = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); blankErr == nil {
			blankData = buf.Bytes()
		}
	})
	return blankData, blankErr
}

// streamMJPEGFromChannel streams MJPEG from a channel (fanout pattern).
// A placeholder is sent whenever no frame arrives within idle.
func streamMJPEGFromChannel(ctx context.Context, w http.ResponseWriter, frameCh <-chan []byte, idle time.Duration) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	blank, err := blankJPEG()
	if err != nil {
		http.Error(w, "Failed to render frame", http.StatusInternalServerError)
		return
	}

	jpegData := blank
	for {
		if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
			logger.Debug("MJPEG", "Client disconnected during write: %v", err)
			return
		}
		if _, err := w.Write(jpegData); err != nil {
			logger.Debug("MJPEG", "Client disconnected during frame write: %v", err)
			return
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			logger.Debug("MJPEG", "Client disconnected during delimiter write: %v", err)
			return
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return
		case data, ok := <-frameCh:
			if !ok {
				return
			}
			jpegData = data
		case <-time.After(idle):
			jpegData = blank
		}
	}
}

// wantsProtobuf reports whether the client asked for protobuf SSE payloads.
func wantsProtobuf(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/protobuf") ||
		strings.Contains(accept, "application/x-protobuf")
}

// streamEventsFromChannel streams pre-serialized events to an SSE client.
// Data is already serialized in both formats by the broadcaster.
func streamEventsFromChannel(ctx context.Context, w http.ResponseWriter, eventCh <-chan *SerializedEvent, useProtobuf bool, initial *SerializedEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if useProtobuf {
		w.Header().Set("X-Content-Format", "application/protobuf")
	} else {
		w.Header().Set("X-Content-Format", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	write := func(event *SerializedEvent) bool {
		data := event.JSONData
		if useProtobuf {
			data = event.ProtobufData
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			logger.Debug("SSE", "Client disconnected during event write: %v", err)
			return false
		}
		flusher.Flush()
		return true
	}

	if initial != nil && !write(initial) {
		return
	}

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if !write(event) {
				return
			}
		case <-keepalive.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				logger.Debug("SSE", "Client disconnected during keepalive: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
