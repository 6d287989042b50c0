package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"levelsense/internal/feedback"
)

// registerControl wires the pipeline control actions. Bodies are
// decoded strictly: unknown keys, nulls and trailing data are rejected
// so a client typo cannot silently half-apply.
func registerControl(mux *http.ServeMux, ctl Controller) {
	mux.HandleFunc("/api/calibrate", func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		if ctl == nil {
			http.Error(w, "pipeline unavailable", http.StatusNotFound)
			return
		}
		if err := ctl.Calibrate(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeOK(w)
	})

	mux.HandleFunc("/api/calibrate/reset", func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		if ctl == nil {
			http.Error(w, "pipeline unavailable", http.StatusNotFound)
			return
		}
		if err := ctl.ResetCalibration(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeOK(w)
	})

	mux.HandleFunc("/api/sound", func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		if ctl == nil {
			http.Error(w, "pipeline unavailable", http.StatusNotFound)
			return
		}
		var p struct {
			Enabled *bool `json:"enabled"`
		}
		if err := decodeStrict(w, r, &p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if p.Enabled == nil {
			http.Error(w, "invalid json: \"enabled\" is required", http.StatusBadRequest)
			return
		}
		if err := ctl.SetSound(*p.Enabled); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeOK(w)
	})

	mux.HandleFunc("/api/mode", func(w http.ResponseWriter, r *http.Request) {
		if !requirePost(w, r) {
			return
		}
		if ctl == nil {
			http.Error(w, "pipeline unavailable", http.StatusNotFound)
			return
		}
		var p struct {
			Mode *string `json:"mode"`
		}
		if err := decodeStrict(w, r, &p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if p.Mode == nil {
			http.Error(w, "invalid json: \"mode\" is required", http.StatusBadRequest)
			return
		}
		if err := ctl.SetMode(feedback.Mode(*p.Mode)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeOK(w)
	})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{\"ok\":true}\n"))
}

// decodeStrict reads a small JSON body into dst, rejecting unknown
// fields and trailing data. Control payloads are tiny; the read is
// capped accordingly.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := strings.TrimSpace(r.Header.Get("Content-Type")); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return errors.New("content-type must be application/json")
	}
	r.Body = http.MaxBytesReader(w, r.Body, 4*1024)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid json: trailing data")
	}
	return nil
}
