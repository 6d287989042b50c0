package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"levelsense/internal/feedback"
	"levelsense/internal/level"
)

const serviceName = "levelsense"

// Controller is the slice of the level service the API drives.
// Implementations must be safe to call concurrently.
type Controller interface {
	Snapshot() level.Snapshot
	Calibrate() error
	ResetCalibration() error
	SetSound(enabled bool) error
	SetMode(m feedback.Mode) error
}

func Handler(status *Status, ctl Controller, bc *level.Broadcaster, logs *LogBuffer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var lv level.Snapshot
		if ctl != nil {
			lv = ctl.Snapshot()
		}
		writeJSON(w, status.Snapshot(time.Now().UTC(), lv))
	})

	registerControl(mux, ctl)

	if bc != nil {
		mux.HandleFunc("/api/stream", streamHandler(bc))
	}

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.Handle("/api/about", AboutHandler())

	// No UI is shipped; the root page points an operator at the API.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		var lv level.Snapshot
		if ctl != nil {
			lv = ctl.Snapshot()
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>levelsense</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>levelsense</h1>")
		_, _ = fmt.Fprintf(w, "<p>See <a href=\"/api/status\">/api/status</a>, <a href=\"/api/logs?format=text\">/api/logs</a>, <a href=\"/api/about\">/api/about</a>. Live frames at /api/stream (WebSocket).</p>")
		_, _ = fmt.Fprintf(w, "<pre>pitch=%.2f\nroll=%.2f\norientation=%s\nlevel=%v\ncolor=%s\ncalibrated=%v</pre>",
			lv.PitchDeg, lv.RollDeg, lv.Orientation, lv.IsLevel, lv.Color, lv.Calibrated,
		)
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func Serve(ctx context.Context, listenAddr string, status *Status, ctl Controller, bc *level.Broadcaster, logs *LogBuffer) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, ctl, bc, logs),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
