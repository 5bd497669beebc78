// Package api exposes the moderation queue and the posting webhook over HTTP.
// The dashboard/UI and authentication live outside this service.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"promoscout/internal/model"
	"promoscout/internal/moderation"
	"promoscout/internal/orchestrator"
	"promoscout/internal/storage"
)

// BalanceGetter is the slice of the posting client the API needs.
type BalanceGetter interface {
	Balance(ctx context.Context) (float64, error)
}

// Server wires the HTTP surface.
type Server struct {
	queue   *moderation.Queue
	orch    *orchestrator.Orchestrator
	runs    *storage.RunStore
	balance BalanceGetter
	log     *zap.Logger
	engine  *gin.Engine
}

func NewServer(queue *moderation.Queue, orch *orchestrator.Orchestrator, runs *storage.RunStore, balance BalanceGetter, log *zap.Logger) *Server {
	s := &Server{queue: queue, orch: orch, runs: runs, balance: balance, log: log}
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	e.POST("/webhooks/posting", s.handleWebhook)

	v1 := e.Group("/api/v1")
	{
		v1.GET("/drafts", s.listDrafts)
		v1.POST("/drafts/:id/approve", s.approveDraft)
		v1.POST("/drafts/:id/reject", s.rejectDraft)
		v1.POST("/drafts/:id/body", s.editDraft)
		v1.POST("/drafts/bulk/approve", s.bulkApprove)
		v1.POST("/drafts/bulk/reject", s.bulkReject)
		v1.POST("/items/:id/skip", s.skipItem)
		v1.POST("/projects/:project/submit", s.submitProject)
		v1.GET("/projects/:project/runs", s.projectRuns)
		v1.POST("/tasks/:id/cancel", s.cancelTask)
		v1.GET("/balance", s.getBalance)
	}
	s.engine = e
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run(addr string) error { return s.engine.Run(addr) }

// fail maps storage sentinel errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) listDrafts(c *gin.Context) {
	f := storage.DraftFilter{
		Status:  model.DraftStatus(c.Query("status")),
		Project: c.Query("project"),
		Query:   c.Query("q"),
	}
	drafts, err := s.queue.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

type approveRequest struct {
	Body *string `json:"body"`
}

func (s *Server) approveDraft(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.queue.Approve(c.Request.Context(), c.Param("id"), req.Body); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) rejectDraft(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.queue.Reject(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type editRequest struct {
	Body string `json:"body" binding:"required"`
}

func (s *Server) editDraft(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.queue.Edit(c.Request.Context(), c.Param("id"), req.Body); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type bulkRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

func (s *Server) bulkApprove(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": s.queue.BulkApprove(c.Request.Context(), req.IDs)})
}

func (s *Server) bulkReject(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": s.queue.BulkReject(c.Request.Context(), req.IDs)})
}

func (s *Server) skipItem(c *gin.Context) {
	if err := s.queue.SkipItem(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type submitRequest struct {
	Upvotes int `json:"upvotes"`
}

func (s *Server) submitProject(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	results, err := s.orch.Submit(c.Request.Context(), c.Param("project"), req.Upvotes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) projectRuns(c *gin.Context) {
	ctx := c.Request.Context()
	project := c.Param("project")
	discovery, err := s.runs.Get(ctx, storage.RunDiscovery, project)
	if err != nil {
		fail(c, err)
		return
	}
	classification, err := s.runs.Get(ctx, storage.RunClassification, project)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discovery": discovery, "classification": classification})
}

func (s *Server) cancelTask(c *gin.Context) {
	if err := s.orch.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) getBalance(c *gin.Context) {
	balance, err := s.balance.Balance(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// handleWebhook always acknowledges with 2xx so the posting service does not
// retry-storm; malformed payloads and unknown task ids are logged and
// discarded.
func (s *Server) handleWebhook(c *gin.Context) {
	var ev orchestrator.WebhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		s.log.Warn("webhook: malformed payload, discarding", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if err := s.orch.HandleEvent(c.Request.Context(), ev); err != nil {
		s.log.Error("webhook: event handling failed", zap.String("external_id", ev.ExternalTaskID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
