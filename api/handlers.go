package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/emilyzhang/newscrawlr/crawlerdb"
	"github.com/emilyzhang/newscrawlr/scheduler"
	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultLimit    = 50
	maxLimit        = 200
)

// rootHandler specifies a handler for the / endpoint.
func (s *Server) rootHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  serviceName,
		"version":  serviceVersion,
		"features": []string{"extract", "scheduler"},
	})
}

// statusHandler specifies a handler for the /api/scheduler/status endpoint.
func (s *Server) statusHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	s.writeJSON(w, http.StatusOK, schedulerapi.SchedulerStatus{
		Running:            s.scheduler.Running(),
		RegisteredCrawlers: s.scheduler.RegisteredCrawlers(),
	})
}

// startHandler specifies a handler for the /api/scheduler/start endpoint.
func (s *Server) startHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	if err := s.scheduler.Start(); err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			s.writeError(w, http.StatusBadRequest, "Scheduler is already running")
			return
		}
		s.internalError(w, req, err)
		return
	}
	s.writeJSON(w, http.StatusOK, schedulerapi.ControlResponse{Message: "Scheduler started", Running: true})
}

// stopHandler specifies a handler for the /api/scheduler/stop endpoint.
func (s *Server) stopHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	if err := s.scheduler.Stop(); err != nil {
		if errors.Is(err, scheduler.ErrNotRunning) {
			s.writeError(w, http.StatusBadRequest, "Scheduler is not running")
			return
		}
		s.internalError(w, req, err)
		return
	}
	s.writeJSON(w, http.StatusOK, schedulerapi.ControlResponse{Message: "Scheduler stopped", Running: false})
}

// statsHandler specifies a handler for the /api/scheduler/stats endpoint.
func (s *Server) statsHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	stats, err := s.scheduler.Stats(req.Context())
	if err != nil {
		s.internalError(w, req, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// tasksHandler specifies a handler for the /api/tasks endpoint. Pages are
// cut after filtering.
func (s *Server) tasksHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	q := req.URL.Query()
	enabled, err := boolParam(q, "enabled")
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	page, err := intParam(q, "page", 1, 1, 0)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	pageSize, err := intParam(q, "page_size", defaultPageSize, 1, maxPageSize)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tasks, err := s.db.ListTasks(req.Context(), crawlerdb.TaskFilter{Country: q.Get("country"), Enabled: enabled})
	if err != nil {
		s.internalError(w, req, err)
		return
	}

	// compare page counts first so a huge page can't overflow the offset
	start := len(tasks)
	if page-1 < (len(tasks)+pageSize-1)/pageSize {
		start = (page - 1) * pageSize
	}
	end := start + pageSize
	if end > len(tasks) {
		end = len(tasks)
	}
	resp := make([]schedulerapi.Task, 0, end-start)
	for _, t := range tasks[start:end] {
		resp = append(resp, toAPITask(t))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// lookupTask fetches a task, answering with a 404 when it doesn't exist.
func (s *Server) lookupTask(w http.ResponseWriter, req *http.Request, sourceID string) (*crawlerdb.Task, bool) {
	t, err := s.db.GetTask(req.Context(), sourceID)
	if err != nil {
		if errors.Is(err, crawlerdb.ErrDoesNotExist) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Task not found: %s", sourceID))
		} else {
			s.internalError(w, req, err)
		}
		return nil, false
	}
	return t, true
}

// taskHandler specifies a handler for the GET /api/tasks/<source_id> endpoint.
func (s *Server) taskHandler(w http.ResponseWriter, req *http.Request, params []string) {
	t, ok := s.lookupTask(w, req, params[0])
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toAPITask(t))
}

// updateTaskHandler specifies a handler for the PATCH /api/tasks/<source_id>
// endpoint. Only the fields present in the body are changed.
func (s *Server) updateTaskHandler(w http.ResponseWriter, req *http.Request, params []string) {
	sourceID := params[0]
	var update schedulerapi.TaskUpdate
	defer req.Body.Close()
	if err := json.NewDecoder(req.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid request body: %s", err.Error()))
		return
	}
	if update.IntervalMinutes != nil && *update.IntervalMinutes < 1 {
		s.writeError(w, http.StatusUnprocessableEntity, "interval_minutes must be greater than or equal to 1")
		return
	}

	t, err := s.db.UpdateTaskSettings(req.Context(), sourceID, update.Enabled, update.IntervalMinutes)
	if err != nil {
		if errors.Is(err, crawlerdb.ErrDoesNotExist) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Task not found: %s", sourceID))
		} else {
			s.internalError(w, req, err)
		}
		return
	}
	s.Logger.Info("task updated", zap.String("source_id", sourceID), zap.Bool("enabled", t.Enabled), zap.Int("interval_minutes", t.IntervalMinutes))
	s.writeJSON(w, http.StatusOK, schedulerapi.TaskActionResponse{Message: "Task updated", SourceID: sourceID})
}

// runTaskHandler specifies a handler for the /api/tasks/<source_id>/run
// endpoint. The crawl runs in the background.
func (s *Server) runTaskHandler(w http.ResponseWriter, req *http.Request, params []string) {
	sourceID := params[0]
	err := s.scheduler.RunTask(req.Context(), sourceID)
	switch {
	case errors.Is(err, crawlerdb.ErrDoesNotExist):
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("Task not found: %s", sourceID))
	case errors.Is(err, scheduler.ErrTaskRunning):
		s.writeError(w, http.StatusConflict, fmt.Sprintf("Task is already running: %s", sourceID))
	case err != nil:
		s.internalError(w, req, err)
	default:
		s.writeJSON(w, http.StatusOK, schedulerapi.TaskActionResponse{Message: "Task started", SourceID: sourceID})
	}
}

// countriesHandler specifies a handler for the /api/countries endpoint.
func (s *Server) countriesHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	stats, err := s.db.CountryStats(req.Context())
	if err != nil {
		s.internalError(w, req, err)
		return
	}
	resp := schedulerapi.CountriesResponse{Countries: make([]schedulerapi.CountryStats, 0, len(stats))}
	for _, c := range stats {
		resp.Countries = append(resp.Countries, schedulerapi.CountryStats(c))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// historyHandler specifies a handler for the /api/history endpoint. The
// status filter is applied to the fetched rows.
func (s *Server) historyHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	q := req.URL.Query()
	limit, err := intParam(q, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var history []*crawlerdb.History
	if sourceID := q.Get("source_id"); sourceID != "" {
		t, ok := s.lookupTask(w, req, sourceID)
		if !ok {
			return
		}
		history, err = s.db.TaskHistory(req.Context(), t.ID, limit)
	} else {
		history, err = s.db.RecentHistory(req.Context(), limit)
	}
	if err != nil {
		s.internalError(w, req, err)
		return
	}

	status := q.Get("status")
	resp := make([]schedulerapi.History, 0, len(history))
	for _, h := range history {
		if status != "" && h.Status != status {
			continue
		}
		resp = append(resp, schedulerapi.History(*h))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// articlesHandler specifies a handler for the /api/articles endpoint.
func (s *Server) articlesHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	q := req.URL.Query()
	sourceID := q.Get("source_id")
	if sourceID == "" {
		s.writeError(w, http.StatusBadRequest, "source_id is required")
		return
	}
	limit, err := intParam(q, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	articles, err := s.db.ArticlesBySource(req.Context(), sourceID, limit)
	if err != nil {
		s.internalError(w, req, err)
		return
	}
	resp := make([]schedulerapi.Article, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, toAPIArticle(a))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// initHandler specifies a handler for the /api/init endpoint.
func (s *Server) initHandler(w http.ResponseWriter, req *http.Request, _ []string) {
	interval, err := intParam(req.URL.Query(), "interval_minutes", scheduler.DefaultInterval, 1, 0)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	total, err := s.scheduler.InitTasks(req.Context(), interval)
	if err != nil {
		s.internalError(w, req, err)
		return
	}
	s.writeJSON(w, http.StatusOK, schedulerapi.InitResponse{
		Message:         "Tasks initialized",
		TotalTasks:      total,
		IntervalMinutes: interval,
	})
}

func toAPITask(t *crawlerdb.Task) schedulerapi.Task {
	return schedulerapi.Task(*t)
}

func toAPIArticle(a *crawlerdb.Article) schedulerapi.Article {
	return schedulerapi.Article{
		ID:          a.ID,
		SourceID:    a.SourceID,
		ArticleID:   a.ArticleID,
		Title:       a.Title,
		URL:         a.URL,
		Author:      a.Author,
		PublishTime: a.PublishTime,
		Summary:     a.Summary,
		Category:    a.Category,
		CreatedAt:   a.CreatedAt,
	}
}
