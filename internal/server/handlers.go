package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/gridcollage/pkg/collage/templates"
	errs "github.com/matzehuels/gridcollage/pkg/errors"
	"github.com/matzehuels/gridcollage/pkg/observability"
	"github.com/matzehuels/gridcollage/pkg/pipeline"
	"github.com/matzehuels/gridcollage/pkg/session"
	"github.com/matzehuels/gridcollage/pkg/studio"
)

type templateResponse struct {
	templates.Template
	Slots   int    `json:"slots"`
	Preview string `json:"preview"`
}

type templateRequest struct {
	Template string `json:"template"`
}

type spanRequest struct {
	RowSpan int `json:"row_span"`
	ColSpan int `json:"col_span"`
}

type assignRequest struct {
	ImageID string `json:"image_id"`
}

type errorResponse struct {
	Code  errs.Code `json:"code"`
	Error string    `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	var out []templateResponse
	for _, t := range templates.List() {
		out = append(out, templateResponse{
			Template: t,
			Slots:    t.Slots(),
			Preview:  t.Layout().String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if r.ContentLength != 0 {
		if !s.decode(w, r, &req) {
			return
		}
	}
	sess, err := s.studio.Create(r.Context(), req.Template)
	s.respondSession(w, r, http.StatusCreated, sess, err)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.Get(r.Context(), chi.URLParam(r, "sessionID"))
	s.respondSession(w, r, http.StatusOK, sess, err)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, errs.Wrap(errs.ErrCodeTooLarge, err, "request body too large"))
			return
		}
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInvalidInput, err, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	sess, img, err := s.studio.Upload(r.Context(), chi.URLParam(r, "sessionID"), header.Filename, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"image": img, "session": sess})
}

func (s *Server) handleClearImages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.ClearImages(r.Context(), chi.URLParam(r, "sessionID"))
	s.respondSession(w, r, http.StatusOK, sess, err)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	rc, img, err := s.studio.OpenImage(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "imageID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.RemoveImage(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "imageID"))
	s.respondSession(w, r, http.StatusOK, sess, err)
}

func (s *Server) handleSwitchTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.studio.SwitchTemplate(r.Context(), chi.URLParam(r, "sessionID"), req.Template)
	s.respondSession(w, r, http.StatusOK, sess, err)
}

func (s *Server) handleSetSpan(w http.ResponseWriter, r *http.Request) {
	var req spanRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.studio.SetSpan(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "cellID"), req.RowSpan, req.ColSpan)
	s.respondSession(w, r, http.StatusOK, sess, err)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.studio.Assign(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "cellID"), req.ImageID)
	s.respondSession(w, r, http.StatusOK, sess, err)
}

func (s *Server) handleAutoFill(w http.ResponseWriter, r *http.Request) {
	sess, err := s.studio.AutoFill(r.Context(), chi.URLParam(r, "sessionID"))
	s.respondSession(w, r, http.StatusOK, sess, err)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eo := studio.ExportOptions{
		Format:     q.Get("format"),
		Background: q.Get("background"),
		Gap:        pipeline.DefaultGap,
	}
	for name, dst := range map[string]*int{
		"width":   &eo.Width,
		"height":  &eo.Height,
		"gap":     &eo.Gap,
		"quality": &eo.Quality,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, errs.New(errs.ErrCodeInvalidOutputSpec, "%s must be an integer, got %q", name, v))
			return
		}
		*dst = n
	}

	exp, err := s.studio.Export(r.Context(), chi.URLParam(r, "sessionID"), eo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.Header().Set("Content-Disposition", `attachment; filename="collage`+exp.Format.Extension()+`"`)
	w.Header().Set("X-Export-Key", exp.Key)
	if len(exp.Failures) > 0 {
		w.Header().Set("X-Decode-Failures", strconv.Itoa(len(exp.Failures)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}

func (s *Server) respondSession(w http.ResponseWriter, r *http.Request, status int, sess *session.Session, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, sess)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request body"))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)
	route := r.URL.Path
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", route, "err", err)
		observability.HTTP().OnError(r.Context(), r.Method, route, err)
	}
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	msg := errs.UserMessage(err)
	if status >= http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
