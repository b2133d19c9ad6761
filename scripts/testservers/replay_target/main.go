// Command replay_target serves a small catalog API to replay against locally:
//
//	go run ./scripts/testservers/replay_target -port 8089
//	go run ./cmd/webreplay -i 5 -c 10 --checksum scripts/testservers/replay_target/*.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const maxBytes = 10 << 20

func main() {
	port := flag.Int("port", 8089, "Listening port")
	flag.Parse()

	if *port <= 0 {
		logrus.Fatal("port must be > 0")
	}

	addr := fmt.Sprintf(":%d", *port)
	logrus.WithField("addr", addr).Info("replay target listening")
	logrus.Fatal(http.ListenAndServe(addr, newMux()))
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", handleProducts)
	mux.HandleFunc("/products/", handleProduct)
	mux.HandleFunc("/search", handleSearch)
	mux.HandleFunc("/slow", handleSlow)
	mux.HandleFunc("/status/", handleStatus)
	mux.HandleFunc("/bytes/", handleBytes)
	mux.HandleFunc("/echo", handleEcho)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "path": r.URL.Path})
	})
	return mux
}

func handleProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	items := make([]map[string]any, 0, 10)
	for i := 1; i <= 10; i++ {
		id := (page-1)*10 + i
		items = append(items, map[string]any{"id": id, "name": fmt.Sprintf("product-%d", id)})
	}
	respondJSON(w, http.StatusOK, map[string]any{"page": page, "items": items})
}

func handleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/products/"))
	if err != nil || id < 1 {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "name": fmt.Sprintf("product-%d", id)})
}

func handleSearch(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"query":   r.URL.Query().Get("q"),
		"results": []string{"alpha", "beta"},
	})
}

// handleSlow sleeps for ?ms= milliseconds before answering.
func handleSlow(w http.ResponseWriter, r *http.Request) {
	ms, _ := strconv.Atoi(r.URL.Query().Get("ms"))
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-r.Context().Done():
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"slept_ms": ms})
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
	if err != nil || code < 100 || code > 599 {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid status"})
		return
	}
	w.WriteHeader(code)
}

// handleBytes answers with n deterministic bytes so checksums stay stable.
func handleBytes(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/bytes/"))
	if err != nil || n < 0 || n > maxBytes {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid size"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(n))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte('a' + i%26)
	}
	_, _ = w.Write(buf)
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"method":  r.Method,
		"path":    r.URL.Path,
		"query":   r.URL.RawQuery,
		"headers": r.Header,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
