package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/copyleftdev/evolver/internal/config"
	"github.com/copyleftdev/evolver/internal/logging"
	"github.com/copyleftdev/evolver/internal/metrics"
	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/fitness"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Run statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"

	// StatusCancelling is reported between a cancel request and the
	// generation boundary where the run actually stops.
	StatusCancelling = "cancelling"
)

var (
	errRunNotFound = errors.New("evolution run not found")
	errTooManyRuns = errors.New("too many evolution runs in progress")
	errRunTooLarge = errors.New("evolution run exceeds configured limits")
)

// RunState tracks one evolution run started through the API.
// Fields are guarded by Server.runsMu.
type RunState struct {
	ID          string
	Status      string
	StartTime   time.Time
	EndTime     *time.Time
	Optimizer   optimization.Optimizer
	Result      *optimization.OptimizationResult
	Err         string
	CancelFunc  context.CancelFunc
	LastUpdated time.Time

	// cancelling is set by a cancel request; the run stays active until
	// runEvolution records its outcome.
	cancelling bool
}

func (r *RunState) terminal() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Server exposes evolution runs over REST and JSON-RPC 2.0.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *metrics.Metrics

	runs   map[string]*RunState
	runsMu sync.RWMutex
	wg     sync.WaitGroup
}

// NewServer creates a server. m may be nil to disable metrics.
func NewServer(cfg *config.Config, logger Logger, m *metrics.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		runs:    make(map[string]*RunState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evolve", s.handleEvolve)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/evolution/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// StartRequest overrides the configured evolution defaults for one run.
// Zero values keep the default.
type StartRequest struct {
	PopulationSize         int       `json:"population_size,omitempty"`
	Iterations             *int      `json:"iterations,omitempty"`
	MutationFactors        []float64 `json:"mutation_factors,omitempty"`
	MutationsPerGeneration *int      `json:"mutations_per_generation,omitempty"`
	DomainBound            float64   `json:"domain_bound,omitempty"`
	Seed                   int64     `json:"seed,omitempty"`
	Fitness                string    `json:"fitness,omitempty"`
}

// StartResponse acknowledges a new run
type StartResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

type runRequest struct {
	RunID string `json:"run_id"`
}

// SolutionView is the wire form of a candidate and its fitness
type SolutionView struct {
	Generation int     `json:"generation"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Value      float64 `json:"value"`
}

// StatusResponse reports the progress of a run
type StatusResponse struct {
	RunID       string                        `json:"run_id"`
	Status      string                        `json:"status"`
	Progress    float64                       `json:"progress"`
	Generation  int                           `json:"generation"`
	Iterations  int                           `json:"iterations"`
	StartTime   string                        `json:"start_time"`
	EndTime     string                        `json:"end_time,omitempty"`
	LastUpdated string                        `json:"last_update"`
	Best        *SolutionView                 `json:"best_solution,omitempty"`
	History     []SolutionView                `json:"history,omitempty"`
	Stats       *optimization.GenerationStats `json:"stats,omitempty"`
	Error       string                        `json:"error,omitempty"`
}

func toView(ev optimization.Evaluation) SolutionView {
	return SolutionView{
		Generation: ev.Iteration,
		X:          ev.Solution.Parameters[0],
		Y:          ev.Solution.Parameters[1],
		Value:      ev.Solution.Value,
	}
}

// runConfig merges req over the configured defaults.
func (s *Server) runConfig(req StartRequest) (genetic.Config, error) {
	cfg, err := genetic.ConfigFromEnv(s.cfg)
	if err != nil {
		return genetic.Config{}, err
	}
	if req.PopulationSize != 0 {
		cfg.PopulationSize = req.PopulationSize
	}
	if req.Iterations != nil {
		cfg.Iterations = *req.Iterations
	}
	if len(req.MutationFactors) > 0 {
		cfg.MutationFactors = req.MutationFactors
	}
	if req.MutationsPerGeneration != nil {
		cfg.MutationsPerGeneration = *req.MutationsPerGeneration
	}
	if req.DomainBound != 0 {
		cfg.DomainBound = req.DomainBound
	}
	if req.Seed != 0 {
		cfg.RandomSeed = req.Seed
	}
	if req.Fitness != "" {
		fn, err := fitness.Lookup(req.Fitness)
		if err != nil {
			return genetic.Config{}, err
		}
		cfg.Fitness = fn
	}

	limits := s.cfg.Evolution
	if cfg.PopulationSize > limits.MaxPopulation {
		return genetic.Config{}, fmt.Errorf("%w: population size %d above %d",
			errRunTooLarge, cfg.PopulationSize, limits.MaxPopulation)
	}
	if cfg.Iterations > limits.MaxIterations {
		return genetic.Config{}, fmt.Errorf("%w: iterations %d above %d",
			errRunTooLarge, cfg.Iterations, limits.MaxIterations)
	}
	return cfg, nil
}

// startRun validates the request, builds the optimizer and runs it in the background.
func (s *Server) startRun(req StartRequest) (*StartResponse, error) {
	cfg, err := s.runConfig(req)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	runLogger := s.logger.WithFields(map[string]interface{}{"run_id": id})

	var recorder genetic.Recorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	opt, err := genetic.NewOptimizer(cfg, logging.NewZapLogger(runLogger), recorder)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	state, err := s.register(id, opt, cancel)
	if err != nil {
		cancel()
		return nil, err
	}

	go s.runEvolution(ctx, state)

	return &StartResponse{RunID: id, Status: StatusPending}, nil
}

// register admits a built optimizer as a new run if the active-run limit allows it.
func (s *Server) register(id string, opt optimization.Optimizer, cancel context.CancelFunc) (*RunState, error) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	now := time.Now()
	s.pruneLocked(now)

	active := 0
	for _, run := range s.runs {
		if !run.terminal() {
			active++
		}
	}
	if active >= s.cfg.Evolution.MaxRuns {
		return nil, errTooManyRuns
	}

	state := &RunState{
		ID:          id,
		Status:      StatusPending,
		StartTime:   now,
		Optimizer:   opt,
		CancelFunc:  cancel,
		LastUpdated: now,
	}
	s.runs[id] = state
	s.wg.Add(1)
	if s.metrics != nil {
		s.metrics.RunStarted()
	}
	return state, nil
}

// pruneLocked forgets finished runs that ended before the retention window,
// then the oldest finished runs beyond the retained count. runsMu must be held.
func (s *Server) pruneLocked(now time.Time) {
	var finished []*RunState
	for id, run := range s.runs {
		if !run.terminal() || run.EndTime == nil {
			continue
		}
		if now.Sub(*run.EndTime) > s.cfg.Evolution.RunRetention {
			delete(s.runs, id)
			continue
		}
		finished = append(finished, run)
	}

	excess := len(finished) - s.cfg.Evolution.RetainedRuns
	if excess <= 0 {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].EndTime.Before(*finished[j].EndTime)
	})
	for _, run := range finished[:excess] {
		delete(s.runs, run.ID)
	}
}

// runEvolution drives one optimizer to completion
func (s *Server) runEvolution(ctx context.Context, state *RunState) {
	defer s.wg.Done()

	s.runsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	s.runsMu.Unlock()

	result, err := state.Optimizer.Optimize(ctx)

	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	state.Result = result
	switch {
	case state.cancelling && (err == nil || errors.Is(err, context.Canceled)):
		// an acknowledged cancel holds even if the last generation won the race
		state.Status = StatusCancelled
	case err == nil:
		state.Status = StatusCompleted
	case errors.Is(err, context.Canceled):
		state.Status = StatusCancelled
	default:
		state.Status = StatusFailed
		state.Err = err.Error()
		s.logger.Error("Evolution failed", map[string]interface{}{
			"run_id": state.ID,
			"error":  err.Error(),
		})
	}
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	if s.metrics != nil {
		s.metrics.RunFinished(state.Status)
	}
	s.pruneLocked(now)
}

// runStatus builds the status report of a run
func (s *Server) runStatus(id string) (*StatusResponse, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	state, ok := s.runs[id]
	if !ok {
		return nil, errRunNotFound
	}

	done, total := state.Optimizer.Progress()
	status := state.Status
	if state.cancelling && !state.terminal() {
		status = StatusCancelling
	}
	resp := &StatusResponse{
		RunID:       state.ID,
		Status:      status,
		Generation:  done,
		Iterations:  total,
		StartTime:   state.StartTime.Format(time.RFC3339),
		LastUpdated: state.LastUpdated.Format(time.RFC3339),
		Error:       state.Err,
	}
	switch {
	case total > 0:
		resp.Progress = float64(done) / float64(total)
	case state.Status == StatusCompleted:
		resp.Progress = 1
	}
	if state.EndTime != nil {
		resp.EndTime = state.EndTime.Format(time.RFC3339)
	}

	if best := state.Optimizer.GetBestSolution(); best != nil {
		view := SolutionView{X: best.Parameters[0], Y: best.Parameters[1], Value: best.Value}
		history := state.Optimizer.GetHistory()
		for _, ev := range history {
			resp.History = append(resp.History, toView(ev))
		}
		if len(history) > 0 {
			view.Generation = history[len(history)-1].Iteration
		}
		resp.Best = &view
	}
	if g, ok := state.Optimizer.(*genetic.Optimizer); ok {
		st := g.LastStats()
		resp.Stats = &st
	}
	return resp, nil
}

// cancelRun requests a stop of a running evolution
func (s *Server) cancelRun(id string) error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	state, ok := s.runs[id]
	if !ok {
		return errRunNotFound
	}
	if state.terminal() {
		return fmt.Errorf("cannot cancel evolution run with status: %s", state.Status)
	}
	if state.cancelling {
		return nil
	}

	state.cancelling = true
	state.LastUpdated = time.Now()
	state.CancelFunc()

	s.logger.Info("Evolution cancelled", map[string]interface{}{"run_id": id})
	return nil
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "evolution.start":
		var req StartRequest
		if err = decodeParams(request.Params, &req, false); err == nil {
			result, err = s.startRun(req)
		}
	case "evolution.status":
		var req runRequest
		if err = decodeParams(request.Params, &req, true); err == nil {
			result, err = s.runStatus(req.RunID)
		}
	case "evolution.cancel":
		var req runRequest
		if err = decodeParams(request.Params, &req, true); err == nil {
			err = s.cancelRun(req.RunID)
			result = map[string]string{"status": "cancellation requested"}
		}
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		var invalid *paramsError
		if errors.As(err, &invalid) {
			s.respondWithError(w, -32602, err.Error(), request.ID)
			return
		}
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

type paramsError struct{ msg string }

func (e *paramsError) Error() string { return e.msg }

// decodeParams unmarshals the first positional parameter into dst.
func decodeParams(params []json.RawMessage, dst interface{}, required bool) error {
	if len(params) == 0 {
		if required {
			return &paramsError{"missing required parameters"}
		}
		return nil
	}
	if err := json.Unmarshal(params[0], dst); err != nil {
		return &paramsError{fmt.Sprintf("invalid parameter format: %v", err)}
	}
	if rr, ok := dst.(*runRequest); ok && rr.RunID == "" {
		return &paramsError{"run_id is required"}
	}
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Close cancels every run and waits for their goroutines to return
func (s *Server) Close() error {
	s.runsMu.Lock()
	for _, run := range s.runs {
		if run.CancelFunc != nil {
			run.CancelFunc()
		}
	}
	s.runsMu.Unlock()

	s.wg.Wait()
	return nil
}

// handleEvolve handles POST /api/v1/evolve
func (s *Server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("invalid request body: %v", err),
			})
			return
		}
	}

	result, err := s.startRun(req)
	switch {
	case errors.Is(err, errTooManyRuns):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	case errors.Is(err, errRunTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, result)
	}
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.runStatus(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancel handles DELETE /api/v1/evolution/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	err := s.cancelRun(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, errRunNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
	}
}
