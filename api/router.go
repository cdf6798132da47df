package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"go.uber.org/zap"
)

type handlerFunc func(w http.ResponseWriter, req *http.Request, params []string)

type route struct {
	method  string
	pattern *regexp.Regexp
	handler handlerFunc
}

func (s *Server) routes() []route {
	return []route{
		{http.MethodGet, regexp.MustCompile(`^/$`), s.rootHandler},
		{http.MethodGet, regexp.MustCompile(`^/api/health$`), s.healthHandler},
		{http.MethodGet, regexp.MustCompile(`^/api/platforms$`), s.platformsHandler},
		{http.MethodPost, regexp.MustCompile(`^/api/extract$`), s.extractHandler},
		{http.MethodGet, regexp.MustCompile(`^/api/scheduler/status$`), s.statusHandler},
		{http.MethodPost, regexp.MustCompile(`^/api/scheduler/start$`), s.startHandler},
		{http.MethodPost, regexp.MustCompile(`^/api/scheduler/stop$`), s.stopHandler},
		{http.MethodGet, regexp.MustCompile(`^/api/scheduler/stats$`), s.statsHandler},
		{http.MethodGet, regexp.MustCompile(`^/api/tasks$`), s.tasksHandler},
		{http.MethodGet, regexp.MustCompile(`^/api/tasks/([^/]+)$`), s.taskHandler},
		{http.MethodPatch, regexp.MustCompile(`^/api/tasks/([^/]+)$`), s.updateTaskHandler},
		{http.MethodPost, regexp.MustCompile(`^/api/tasks/([^/]+)/run$`), s.runTaskHandler},
		{http.MethodGet, regexp.MustCompile(`^/api/countries$`), s.countriesHandler},
		{http.MethodGet, regexp.MustCompile(`^/api/history$`), s.historyHandler},
		{http.MethodGet, regexp.MustCompile(`^/api/articles$`), s.articlesHandler},
		{http.MethodPost, regexp.MustCompile(`^/api/init$`), s.initHandler},
	}
}

// router routes requests to the correct handler. Path parameters are
// matched against the escaped path and unescaped before use.
func (s *Server) router(w http.ResponseWriter, req *http.Request) {
	s.Logger.Debug("new request", zap.String("method", req.Method), zap.String("path", req.URL.Path))
	p := req.URL.EscapedPath()
	methodMismatch := false
	for _, r := range s.routes() {
		m := r.pattern.FindStringSubmatch(p)
		if m == nil {
			continue
		}
		if r.method != req.Method {
			methodMismatch = true
			continue
		}
		params := make([]string, 0, len(m)-1)
		for _, raw := range m[1:] {
			v, err := url.PathUnescape(raw)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid path parameter: %s", raw))
				return
			}
			params = append(params, v)
		}
		r.handler(w, req, params)
		return
	}
	if methodMismatch {
		s.writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	s.writeError(w, http.StatusNotFound, fmt.Sprintf("Not a valid endpoint: %s", req.URL.Path))
}

type errorBody struct {
	Detail interface{} `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("unable to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail interface{}) {
	s.writeJSON(w, status, errorBody{Detail: detail})
}

// internalError logs err and answers with a 500.
func (s *Server) internalError(w http.ResponseWriter, req *http.Request, err error) {
	s.Logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

// intParam reads an optional integer query parameter bounded by [min, max].
// A max of 0 means unbounded.
func intParam(q url.Values, name string, def, min, max int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %s", name, raw)
	}
	if v < min {
		return 0, fmt.Errorf("%s must be greater than or equal to %d", name, min)
	}
	if max > 0 && v > max {
		return 0, fmt.Errorf("%s must be less than or equal to %d", name, max)
	}
	return v, nil
}

// boolParam reads an optional boolean query parameter.
func boolParam(q url.Values, name string) (*bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a boolean: %s", name, raw)
	}
	return &v, nil
}
