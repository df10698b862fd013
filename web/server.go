package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/yessjun/stay-sub000/sim"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server streams simulation snapshots to websocket clients and exposes
// the control surface. It never mutates simulation state directly;
// every command goes through the clock's boundary queue.
type Server struct {
	clock        *sim.Clock
	addr         string
	broadcastGap time.Duration

	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
}

func NewServer(clock *sim.Clock, addr string) *Server {
	return &Server{
		clock:        clock,
		addr:         addr,
		broadcastGap: 200 * time.Millisecond,
		clients:      make(map[*websocket.Conn]bool),
	}
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWs)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/control", s.handleControl)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: s.addr, Handler: mux}

	go s.broadcastSnapshots(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server starting on %s", s.addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("err upgrading connection: %v", err)
		return
	}

	s.clientsMutex.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMutex.Unlock()

	log.Printf("new websocket client connected, total clients: %d", total)

	go s.handleClientMessages(conn)
}

func (s *Server) handleClientMessages(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.clientsMutex.Lock()
		delete(s.clients, conn)
		log.Printf("websocket client disconnected, remaining clients: %d", len(s.clients))
		s.clientsMutex.Unlock()
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
	}
}

func (s *Server) broadcastSnapshots(ctx context.Context) {
	ticker := time.NewTicker(s.broadcastGap)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.clientsMutex.Lock()
		n := len(s.clients)
		s.clientsMutex.Unlock()
		if n == 0 {
			continue
		}

		payload, err := json.Marshal(s.clock.Snapshot())
		if err != nil {
			log.Printf("err marshaling snapshot: %v", err)
			continue
		}

		s.clientsMutex.Lock()
		for conn := range s.clients {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error: %v", err)
				conn.Close()
				delete(s.clients, conn)
			}
		}
		s.clientsMutex.Unlock()
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(s.clock.Metrics())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(s.clock.Snapshot())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Printf("failed to parse form data: %v", err)
		http.Error(w, "Bad form data", http.StatusBadRequest)
		return
	}

	action := r.FormValue("action")
	if action == "" {
		http.Error(w, "Action parameter required", http.StatusBadRequest)
		return
	}

	log.Printf("control action received: %s", action)
	result := map[string]interface{}{"success": true}

	switch action {
	case "start":
		s.clock.SetRunning(true)
	case "stop":
		s.clock.SetRunning(false)
	case "set_speed":
		factor, err := strconv.ParseFloat(r.FormValue("factor"), 64)
		if err != nil {
			http.Error(w, "Invalid speed factor", http.StatusBadRequest)
			return
		}
		s.clock.SetSpeed(factor)
		result["message"] = fmt.Sprintf("speed factor set to %.1f", factor)
	case "trigger_emergency":
		s.clock.TriggerEmergency()
	case "clear_emergency":
		s.clock.ClearEmergency()
	case "zone_protection":
		s.clock.SetZoneProtection(r.FormValue("enabled") == "true")
	case "force_release":
		id := r.FormValue("slot")
		if id == "" {
			http.Error(w, "Slot parameter required", http.StatusBadRequest)
			return
		}
		s.clock.ForceReleaseSlot(id)
	default:
		http.Error(w, "Invalid action", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
