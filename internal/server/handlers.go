package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/entailrag/internal/filter"
	"github.com/ppiankov/entailrag/internal/index"
	"github.com/ppiankov/entailrag/internal/model"
	"github.com/ppiankov/entailrag/internal/pipeline"
)

type retrieveRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

type decomposeRequest struct {
	Claim string `json:"claim" binding:"required"`
}

type decomposeResponse struct {
	Compound  bool            `json:"compound"`
	Kind      model.ClaimKind `json:"kind"`
	Subclaims []string        `json:"subclaims"`
}

type filterRequest struct {
	Claim     string   `json:"claim" binding:"required"`
	Passages  []string `json:"passages"`
	Mode      string   `json:"mode"`
	Threshold *float64 `json:"threshold,omitempty"`
}

type answerRequest struct {
	Question string `json:"question" binding:"required"`
	Claim    string `json:"claim"`
	Pipeline string `json:"pipeline"`
}

type answerResponse struct {
	Success  bool   `json:"success"`
	Pipeline string `json:"pipeline"`
	Answer   string `json:"answer,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Error    string `json:"error,omitempty"`
}

type analyzeResponse struct {
	Success  bool                    `json:"success"`
	Question string                  `json:"question"`
	Claim    string                  `json:"claim"`
	Results  []model.QuestionResult  `json:"results"`
	Compare  map[string]analyzeDelta `json:"compare"`
}

type analyzeDelta struct {
	Retrieved int  `json:"retrieved"`
	Kept      int  `json:"kept"`
	Fallback  bool `json:"fallback"`
}

func (s *Server) handleRetrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.K == 0 {
		req.K = s.opts.TopK
	}
	if s.deps.Retriever == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no index loaded"})
		return
	}

	passages, err := s.deps.Retriever.Retrieve(c.Request.Context(), req.Query, req.K)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"passages": passages})
}

func (s *Server) handleDecompose(c *gin.Context) {
	var req decomposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d := s.deps.Decomposer
	c.JSON(http.StatusOK, decomposeResponse{
		Compound:  d.IsCompound(req.Claim),
		Kind:      d.Kind(req.Claim),
		Subclaims: d.Subclaims(req.Claim),
	})
}

func (s *Server) handleFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.deps.Filter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no classifier configured"})
		return
	}

	mode, err := filter.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	threshold := s.opts.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if err := filter.ValidateThreshold(threshold); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Passages == nil {
		req.Passages = []string{}
	}

	kept, err := s.deps.Filter.Strings(c.Request.Context(), req.Claim, req.Passages, mode, threshold)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"passages": kept})
}

func (s *Server) handleAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	p, ok := s.lookup(req.Pipeline)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown pipeline: " + req.Pipeline})
		return
	}

	answer, err := p.Answer(c.Request.Context(), req.Question, req.Claim)
	if err != nil {
		resp := answerResponse{Pipeline: p.Name(), Error: err.Error()}
		var failure *pipeline.Failure
		if errors.As(err, &failure) {
			resp.Stage = string(failure.Stage)
		}
		c.JSON(statusFor(err), resp)
		return
	}

	c.JSON(http.StatusOK, answerResponse{Success: true, Pipeline: p.Name(), Answer: answer})
}

// handleAnalyze runs every configured pipeline on one question and compares their evidence
func (s *Server) handleAnalyze(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	resp := analyzeResponse{
		Success:  true,
		Question: req.Question,
		Claim:    req.Claim,
		Results:  make([]model.QuestionResult, 0, len(s.deps.Pipelines)),
		Compare:  make(map[string]analyzeDelta, len(s.deps.Pipelines)),
	}

	for _, p := range s.deps.Pipelines {
		result := model.QuestionResult{Pipeline: p.Name()}
		trace, err := p.AnswerWithTrace(c.Request.Context(), req.Question, req.Claim)
		if err != nil {
			// A provider outage fails the whole comparison
			if pipeline.IsProviderFailure(err) {
				c.JSON(http.StatusBadGateway, gin.H{"success": false, "pipeline": p.Name(), "error": err.Error()})
				return
			}
			resp.Success = false
			result.Error = err.Error()
			resp.Results = append(resp.Results, result)
			continue
		}

		result.Trace = trace
		resp.Results = append(resp.Results, result)
		resp.Compare[p.Name()] = analyzeDelta{
			Retrieved: len(trace.PassagesBefore),
			Kept:      len(trace.PassagesAfter),
			Fallback:  trace.FallbackUsed,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) lookup(name string) (pipeline.Pipeline, bool) {
	if name == "" {
		if len(s.deps.Pipelines) == 0 {
			return nil, false
		}
		return s.deps.Pipelines[0], true
	}
	p, ok := s.pipelines[name]
	return p, ok
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.deps.Logger.Warn("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor maps provider failures to 502 and contract violations to 400
func statusFor(err error) int {
	switch {
	case pipeline.IsProviderFailure(err):
		return http.StatusBadGateway
	case errors.Is(err, index.ErrInvalidK), errors.Is(err, index.ErrEmptyCorpus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
