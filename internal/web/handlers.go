package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/tsvingest/internal/core"
	"github.com/JonMunkholm/tsvingest/internal/logging"
)

// maxIngestBody bounds the JSON body of POST /api/ingest.
const maxIngestBody = 64 << 10

// IngestRequest is the body of POST /api/ingest.
type IngestRequest struct {
	OutputDir string      `json:"outputDir"`
	Mode      string      `json:"mode"` // "file" or "datasource"
	Owner     OwnerParams `json:"owner"`
}

// OwnerParams identifies the content object records are attached to.
type OwnerParams struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string     `json:"status"`
	Passes PassStatus `json:"passes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Passes: s.limiter.status()})
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.ingestor.Mapping().Describe())
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, badRequest("invalid request body: "+err.Error()))
		return
	}

	owner, err := req.owner()
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.limiter.acquire(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Ingest.Timeout)
	defer cancel()
	ctx = core.ContextWithLogger(ctx, logging.FromContext(r.Context()))
	ctx = core.ContextWithCaller(ctx, r.RemoteAddr)

	result, err := s.ingestor.Run(ctx, filepath.Clean(req.OutputDir), owner)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if result.Cancelled {
		logging.FromContext(r.Context()).Warn("ingest pass cancelled",
			"pass_id", result.PassID.String(),
			"records_posted", result.RecordsPosted,
		)
		respondError(w, r, fmt.Errorf("%w: %w", core.ErrCancelled, ctx.Err()))
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// owner validates the request and builds the core.Owner for the pass.
func (req IngestRequest) owner() (core.Owner, error) {
	if strings.TrimSpace(req.OutputDir) == "" {
		return core.Owner{}, badRequest("outputDir is required")
	}
	if !filepath.IsAbs(req.OutputDir) {
		return core.Owner{}, badRequest("outputDir must be an absolute path")
	}
	if strings.TrimSpace(req.Owner.ID) == "" {
		return core.Owner{}, badRequest("owner.id is required")
	}

	var kind core.OwnerKind
	switch strings.ToLower(req.Mode) {
	case "", string(core.OwnerDataSource):
		kind = core.OwnerDataSource
	case string(core.OwnerFile):
		kind = core.OwnerFile
	default:
		return core.Owner{}, badRequest(`mode must be "file" or "datasource"`)
	}

	name := req.Owner.Name
	if name == "" {
		name = filepath.Base(req.OutputDir)
	}
	return core.Owner{ID: req.Owner.ID, Name: name, Kind: kind}, nil
}
