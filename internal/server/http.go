package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Handler routes /ws to the websocket endpoint and serves the current scene
// state as JSON on /state.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/state", s.handleState)
	return mux
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if atomic.LoadInt32(&s.running) == 0 {
		http.Error(w, ErrServerNotRunning.Error(), http.StatusServiceUnavailable)
		return
	}

	reply := make(chan Message, 1)
	if !s.submit(request{cmd: Command{Action: ActionState}, reply: reply}) {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	select {
	case msg := <-reply:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(msg)
	case <-r.Context().Done():
	case <-s.stopChan:
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
	}
}
