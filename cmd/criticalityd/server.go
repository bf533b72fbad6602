package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/criticality/internal/checkpoint"
	"github.com/fyrsmithlabs/criticality/internal/logging"
	"github.com/fyrsmithlabs/criticality/internal/orchestrator"
	"github.com/fyrsmithlabs/criticality/internal/phase"
	"github.com/fyrsmithlabs/criticality/pkg/criticality"
)

// daemon serializes access to the single protocol instance: the tick loop
// and the HTTP handlers both go through its mutex, so a tick is never
// interleaved with a status read or a resolution write. This is the
// one-tick-at-a-time rule enforced at the process boundary.
type daemon struct {
	mu       sync.Mutex
	proto    *criticality.Protocol
	logger   *logging.Logger
	pending  *phase.BlockingResolution
	lastTick time.Time
}

func newDaemon(p *criticality.Protocol, logger *logging.Logger) *daemon {
	return &daemon{proto: p, logger: logger}
}

// StatusResponse is the JSON shape GET /status returns.
type StatusResponse struct {
	Kind            string   `json:"kind"`
	Phase           string   `json:"phase"`
	Substate        string   `json:"substate,omitempty"`
	Query           string   `json:"query,omitempty"`
	Error           string   `json:"error,omitempty"`
	Artifacts       []string `json:"artifacts"`
	PendingQueries  int      `json:"pending_queries"`
	ResolvedQueries int      `json:"resolved_queries"`
}

// ResolveRequest is the JSON shape POST /resolve accepts.
type ResolveRequest struct {
	QueryID   string `json:"query_id"`
	Response  string `json:"response"`
	Rationale string `json:"rationale,omitempty"`
}

// HealthResponse is the JSON shape GET /healthz returns.
type HealthResponse struct {
	Status string `json:"status"`
}

func (d *daemon) newServer(metricsHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", d.handleHealth)
	mux.HandleFunc("GET /status", d.handleStatus)
	mux.HandleFunc("POST /resolve", d.handleResolve)
	mux.Handle("GET /metrics", metricsHandler)
	return &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func listenAndServe(srv *http.Server, addr string) error {
	srv.Addr = addr
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (d *daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (d *daemon) handleStatus(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	snapshot := d.proto.Snapshot
	d.mu.Unlock()

	resp := StatusResponse{
		Kind:      string(snapshot.State.Kind()),
		Artifacts: make([]string, len(snapshot.Artifacts)),
	}
	for i, a := range snapshot.Artifacts {
		resp.Artifacts[i] = string(a)
	}
	for _, q := range snapshot.BlockingQueries {
		if q.Resolved {
			resp.ResolvedQueries++
		} else {
			resp.PendingQueries++
		}
	}

	switch st := snapshot.State.(type) {
	case phase.ActiveState:
		resp.Phase = string(st.Phase)
		resp.Substate = st.Substate
	case phase.BlockingState:
		resp.Phase = string(st.Phase)
		resp.Query = st.Query
	case phase.FailedState:
		resp.Phase = string(st.Phase)
		resp.Error = st.Error
	case phase.CompleteState:
		resp.Phase = string(phase.Complete)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleResolve queues a human resolution for the next tick. It does not
// tick inline: the tick loop owns all state advancement, so the response
// only acknowledges receipt.
func (d *daemon) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Response == "" {
		http.Error(w, "response is required", http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	blocked := d.proto.Snapshot.State.Kind() == phase.KindBlocking
	if blocked {
		d.pending = &phase.BlockingResolution{
			QueryID:    req.QueryID,
			Response:   req.Response,
			Rationale:  req.Rationale,
			ResolvedAt: time.Now().UTC(),
		}
	}
	d.mu.Unlock()

	if !blocked {
		http.Error(w, "protocol is not blocked", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// tickLoop advances the protocol once per interval until a terminal
// outcome or ctx cancellation. Blocking outcomes keep the loop alive: the
// next tick re-evaluates after a resolution arrives over HTTP.
func (d *daemon) tickLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.mu.Lock()
		pending := d.pending
		d.pending = nil
		result, err := d.proto.Tick(ctx, pending)
		d.lastTick = time.Now()
		d.mu.Unlock()

		logCtx := logging.WithPhase(ctx, snapshotPhase(result.Context.Snapshot))
		if err != nil {
			d.logger.Error(logCtx, "tick failed", zap.Error(err))
			continue
		}

		switch result.Outcome {
		case orchestrator.OutcomeComplete:
			d.logger.Info(logCtx, "protocol complete")
			return
		case orchestrator.OutcomeFailed:
			d.logger.Error(logCtx, "protocol failed; halting tick loop")
			return
		case orchestrator.OutcomeBlocked:
			d.logger.Debug(logCtx, "protocol blocked awaiting human input")
		case orchestrator.OutcomeNoValidTransition:
			d.logger.Warn(logCtx, "no valid transition from current phase")
			return
		}
	}
}

// watchStateFile surfaces writes to the state file that did not closely
// follow one of this process's own ticks — the state file is owned by a
// single process, so a second writer is a misconfiguration worth warning
// about, never a reason to clobber what it wrote.
func (d *daemon) watchStateFile(ctx context.Context, w *checkpoint.Watcher) {
	writes := make(chan checkpoint.ExternalWrite)
	errs := make(chan error)
	go w.Run(ctx, writes, errs)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-writes:
			d.mu.Lock()
			sinceTick := time.Since(d.lastTick)
			d.mu.Unlock()
			if sinceTick > time.Second {
				d.logger.Warn(ctx, "state file changed outside this process",
					zap.String("path", ev.Path))
			}
		case err := <-errs:
			d.logger.Warn(ctx, "state file watcher error", zap.Error(err))
		}
	}
}

// snapshotPhase names the phase a snapshot is in, for log correlation.
func snapshotPhase(s phase.StateSnapshot) string {
	if s.State == nil {
		return ""
	}
	switch st := s.State.(type) {
	case phase.ActiveState:
		return string(st.Phase)
	case phase.BlockingState:
		return string(st.Phase)
	case phase.FailedState:
		return string(st.Phase)
	default:
		return string(phase.Complete)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
