package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ssRhy/LTS/internal/ws"
)

// NewMux wires the websocket endpoint and the HTTP discovery surface.
func NewMux(hub *ws.Hub, publicWSURL string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", hub.HandleWS)

	// Discovery endpoint: the client locates the transport here instead of
	// hardcoding host and port.
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		url := strings.TrimSpace(publicWSURL)
		if url == "" {
			scheme := "ws"
			if r.TLS != nil {
				scheme = "wss"
			}
			url = scheme + "://" + r.Host + "/ws"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"websocket_url": url,
			"status":        "ok",
		})
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return cors(mux)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
