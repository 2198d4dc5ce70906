package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Server is the operations side server. It runs on its own port so the lab
// dashboard can be firewalled separately from the API.
type Server struct {
	db   *pgxpool.Pool
	port int

	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex

	startedAt time.Time
}

type SystemStats struct {
	Timestamp      time.Time `json:"timestamp"`
	Uptime         string    `json:"uptime"`
	CPUPercent     float64   `json:"cpu_percent"`
	MemoryPercent  float64   `json:"memory_percent"`
	MemoryUsed     string    `json:"memory_used"`
	MemoryTotal    string    `json:"memory_total"`
	DiskPercent    float64   `json:"disk_percent"`
	DatabaseStatus string    `json:"database_status"`
	DBResponseMs   int64     `json:"db_response_ms"`
	DBConnections  int       `json:"db_connections"`
	DBSize         string    `json:"db_size"`
	PendingReports int       `json:"pending_reports"`
	ReportsToday   int       `json:"reports_today"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewServer(db *pgxpool.Pool, port int) *Server {
	return &Server{
		db:        db,
		port:      port,
		clients:   make(map[*websocket.Conn]bool),
		startedAt: time.Now(),
	}
}

// Start runs the monitoring server. Blocks, so call it in a goroutine.
func (s *Server) Start() error {
	r := mux.NewRouter()
	r.HandleFunc("/api/stats", s.handleStats).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket)

	go s.broadcastLoop()

	log.Printf("[Monitoring] Server listening on port %d", s.port)
	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), r)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.collect(r.Context()))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Monitoring] WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMux.Lock()
	s.clients[conn] = true
	s.clientsMux.Unlock()

	// Reader loop only to detect disconnect
	go func() {
		defer func() {
			s.clientsMux.Lock()
			delete(s.clients, conn)
			s.clientsMux.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcastLoop pushes fresh stats to all connected dashboards every 5s
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.clientsMux.Lock()
		if len(s.clients) == 0 {
			s.clientsMux.Unlock()
			continue
		}
		s.clientsMux.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		stats := s.collect(ctx)
		cancel()

		s.clientsMux.Lock()
		for conn := range s.clients {
			if err := conn.WriteJSON(stats); err != nil {
				delete(s.clients, conn)
				conn.Close()
			}
		}
		s.clientsMux.Unlock()
	}
}

func (s *Server) collect(ctx context.Context) SystemStats {
	stats := SystemStats{
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsed = formatBytes(vm.Used)
		stats.MemoryTotal = formatBytes(vm.Total)
	}
	if du, err := disk.Usage("/"); err == nil {
		stats.DiskPercent = du.UsedPercent
	}

	start := time.Now()
	if err := s.db.Ping(ctx); err != nil {
		stats.DatabaseStatus = "unhealthy"
		return stats
	}
	stats.DatabaseStatus = "healthy"
	stats.DBResponseMs = time.Since(start).Milliseconds()
	stats.DBConnections = int(s.db.Stat().TotalConns())

	if err := s.db.QueryRow(ctx,
		`SELECT pg_size_pretty(pg_database_size(current_database()))`,
	).Scan(&stats.DBSize); err != nil {
		log.Printf("[Monitoring] db size query: %v", err)
	}

	// Domain counters for the dashboard cards
	if err := s.db.QueryRow(ctx,
		`SELECT
		 (SELECT COUNT(*) FROM pop_test_headers WHERE status='pending') +
		 (SELECT COUNT(*) FROM test_reports WHERE status='pending'),
		 (SELECT COUNT(*) FROM pop_test_headers WHERE created_at >= CURRENT_DATE)`,
	).Scan(&stats.PendingReports, &stats.ReportsToday); err != nil {
		log.Printf("[Monitoring] report counters query: %v", err)
	}

	return stats
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
