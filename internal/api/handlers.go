package api

import (
	"encoding/json"
	"net/http"
	"slices"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/gorilla/websocket"
)

func (s *GatewayApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := s.gw.Accept(conn)
	go client.Write()
	go client.Read()
}

func (s *GatewayApp) health(w http.ResponseWriter, r *http.Request) {
	if err := s.es.Ping(); err != nil {
		s.log.Println("store ping:", err)
		errResp := NewServiceUnavailableError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *GatewayApp) presence(w http.ResponseWriter, r *http.Request) {
	vacationID := r.URL.Query().Get("vacation_id")
	if vacationID == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, s.gw.PresenceSnapshot(vacationID))
}

type pushSubscribeRequest struct {
	VacationID   string               `json:"vacationId"`
	Subscription webpush.Subscription `json:"subscription"`
}

func (s *GatewayApp) pushSubscribe(w http.ResponseWriter, r *http.Request) {
	if s.push == nil {
		errResp := NewServiceUnavailableError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req pushSubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.VacationID == "" || req.Subscription.Endpoint == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.push.Subscribe(req.VacationID, req.Subscription)
	w.WriteHeader(http.StatusCreated)
}
