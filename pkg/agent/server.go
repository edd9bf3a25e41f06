package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/satmesh-network/satmesh/pkg/simapi"
	"github.com/satmesh-network/satmesh/pkg/util"
)

// allowedCommands maps the /execute verbs to their fixed argv prefixes.
var allowedCommands = map[string][]string{
	"ping":       {"ping", "-c", "4"},
	"traceroute": {"traceroute"},
	"ip":         {"ip", "route"},
}

// Server exposes the agent's RPC surface.
type Server struct {
	agent *Agent
}

// NewServer wraps an agent in its HTTP surface.
func NewServer(a *Agent) *Server {
	return &Server{agent: a}
}

// Routes builds the request mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/config/interface", s.handleInterface)
	mux.HandleFunc("/config/link", s.handleLink)
	mux.HandleFunc("/config/uplink", s.handleUplink)
	mux.HandleFunc("/config/frr", s.handleFRR)
	mux.HandleFunc("/config/position", s.handlePosition)
	mux.HandleFunc("/execute", s.handleExecute)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/shutdown", s.handleShutdown)
	return mux
}

// ListenAndServe runs the agent server on the fixed agent port until the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", simapi.AgentPort),
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeResult(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	res := simapi.Result{Success: err == nil}
	if err != nil {
		res.Error = err.Error()
	}
	json.NewEncoder(w).Encode(res)
}

func (s *Server) handleInterface(w http.ResponseWriter, r *http.Request) {
	var req simapi.InterfaceRequest
	if err := decode(r, &req); err != nil {
		writeResult(w, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err))
		return
	}
	err := s.agent.ApplyInterface(req)
	if err != nil {
		util.WithNode(s.agent.name).Warnf("config/interface %s: %v", req.Name, err)
	}
	writeResult(w, err)
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req simapi.LinkRequest
	if err := decode(r, &req); err != nil {
		writeResult(w, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err))
		return
	}
	err := s.agent.ApplyLink(req)
	if err != nil {
		util.WithNode(s.agent.name).Warnf("config/link %s: %v", req.Neighbor, err)
	}
	writeResult(w, err)
}

func (s *Server) handleUplink(w http.ResponseWriter, r *http.Request) {
	var req simapi.UplinkRequest
	if err := decode(r, &req); err != nil {
		writeResult(w, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err))
		return
	}
	err := s.agent.ApplyUplink(req)
	if err != nil {
		util.WithNode(s.agent.name).Warnf("config/uplink %s: %v", req.Satellite, err)
	}
	writeResult(w, err)
}

func (s *Server) handleFRR(w http.ResponseWriter, r *http.Request) {
	var req simapi.FRRRequest
	if err := decode(r, &req); err != nil {
		writeResult(w, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err))
		return
	}
	writeResult(w, s.agent.ApplyFRR(req.Files))
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req simapi.PositionRequest
	if err := decode(r, &req); err != nil {
		writeResult(w, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err))
		return
	}
	s.agent.ApplyPosition(req)
	writeResult(w, nil)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req simapi.ExecuteRequest
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Command) == "" {
		http.Error(w, `{"error": "no command specified"}`, http.StatusBadRequest)
		return
	}

	parts := strings.Fields(req.Command)
	prefix, ok := allowedCommands[parts[0]]
	if !ok {
		http.Error(w, fmt.Sprintf(`{"error": "command %s not allowed"}`, parts[0]), http.StatusForbidden)
		return
	}

	argv := append(append([]string(nil), prefix...), parts[1:]...)
	stdout, stderr, code, err := s.agent.sys.Execute(r.Context(), argv)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error": %q}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(simapi.ExecuteResult{
		Success:    code == 0,
		Output:     stdout,
		Error:      stderr,
		ReturnCode: code,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.agent.Status())
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.agent.Shutdown()
	writeResult(w, nil)
}
