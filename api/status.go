package api

import (
	"net/http"
	"time"
)

type statusResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Version     string `json:"version"`
	History     bool   `json:"history"`
	Generations int    `json:"generations,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:  "ok",
		Uptime:  time.Since(s.StartTime).Truncate(time.Second).String(),
		Version: s.Version,
		History: s.History != nil,
	}
	if s.History != nil {
		n, err := s.History.Count()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Generations = n
	}
	writeJSON(w, http.StatusOK, resp)
}
