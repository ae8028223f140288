package server

import (
	"net/http"

	"relaydash/pkg/httpx"
)

// handleDeviceState proxies GET http://{ip}/relay/0 and returns the device's
// JSON unchanged.
func (s *Server) handleDeviceState(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing ip parameter")
		return
	}
	body, err := s.relay.State(r.Context(), ip)
	if err != nil {
		s.log.Warn().Err(err).Str("ip", ip).Msg("relay state failed")
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleToggleRelay proxies GET http://{ip}/relay/0?turn={turn}. The device's
// reply is discarded; only a failed call is reported.
func (s *Server) handleToggleRelay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ip, turn := q.Get("ip"), q.Get("turn")
	if ip == "" || turn == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing ip or turn parameter")
		return
	}
	if err := s.relay.Toggle(r.Context(), ip, turn); err != nil {
		s.log.Warn().Err(err).Str("ip", ip).Str("turn", turn).Msg("relay toggle failed")
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.Info().Str("ip", ip).Str("turn", turn).Msg("relay toggled")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "ip": ip, "turn": turn})
}
