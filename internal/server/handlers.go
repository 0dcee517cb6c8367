package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mgpai22/clipforge/internal/manifest"
	"github.com/mgpai22/clipforge/internal/media"
	"github.com/mgpai22/clipforge/internal/pipeline"
)

// body of POST /api/jobs/{id}/process; absent fields keep manifest defaults
type processRequest struct {
	SilenceCut manifest.SilenceCut `json:"silence_cut"`
	Captions   manifest.Captions   `json:"captions"`
}

// one server-sent event on the progress stream
type streamMessage struct {
	Stage    string           `json:"stage,omitempty"`
	Progress float64          `json:"progress"`
	Result   *pipeline.Result `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
	Kind     string           `json:"kind,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, http.StatusBadRequest, "Empty filename")
		return
	}

	id := uuid.NewString()
	dir := filepath.Join(s.cfg.WorkDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".mp4"
	}
	input := filepath.Join(dir, "input"+ext)
	if err := saveUpload(file, input); err != nil {
		os.RemoveAll(dir)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job := &Job{
		ID:        id,
		Filename:  header.Filename,
		Dir:       dir,
		InputPath: input,
		Created:   time.Now(),
		status:    StatusUploaded,
	}
	s.jobs.add(job)
	s.logger.Infow("File uploaded", "job", id, "filename", header.Filename, "size", header.Size)

	s.writeJSON(w, http.StatusOK, map[string]string{"job_id": id, "filename": header.Filename})
}

func saveUpload(src io.Reader, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return out.Close()
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.list()
	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, j.View())
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}

	req := processRequest{
		SilenceCut: manifest.DefaultSilenceCut(),
		Captions:   manifest.DefaultCaptions(),
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	m := manifest.New(job.InputPath, filepath.Join(job.Dir, "output"+filepath.Ext(job.InputPath)))
	m.WorkDir = filepath.Join(job.Dir, "work")
	m.SilenceCut = req.SilenceCut
	m.Captions = req.Captions
	if err := m.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := s.jobContext()
	if !job.begin(cancel) {
		cancel()
		s.writeError(w, http.StatusConflict, fmt.Sprintf("Job is already %s", StatusProcessing))
		return
	}

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		defer cancel()

		logger := s.logger.With("job", job.ID)
		result, err := s.processor.Process(ctx, m, job.publish)
		if err != nil {
			status, kind := StatusError, pipeline.Kind(err)
			if ctx.Err() != nil {
				status, kind = StatusCanceled, pipeline.KindCanceled
			}
			logger.Warnw("Job failed", "kind", kind, "error", err)
			job.finish(nil, status, errorMessage(err), kind)
			return
		}
		logger.Infow("Job complete", "final_duration", result.FinalDuration)
		job.finish(result, StatusDone, "", "")
	}()

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	events, done := job.stream()
	if events == nil {
		s.writeError(w, http.StatusConflict, "No processing in progress")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(msg streamMessage) {
		data, _ := json.Marshal(msg)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	idle := time.NewTimer(s.cfg.StreamTimeout)
	defer idle.Stop()

	for {
		select {
		case e := <-events:
			send(streamMessage{Stage: e.Stage, Progress: roundProgress(e.Fraction)})
			idle.Reset(s.cfg.StreamTimeout)
		case <-done:
			for drained := false; !drained; {
				select {
				case e := <-events:
					send(streamMessage{Stage: e.Stage, Progress: roundProgress(e.Fraction)})
				default:
					drained = true
				}
			}
			send(finalMessage(job.View()))
			return
		case <-idle.C:
			send(streamMessage{Error: "timeout"})
			return
		case <-r.Context().Done():
			return
		}
	}
}

func finalMessage(v JobView) streamMessage {
	if v.Status == StatusDone {
		return streamMessage{Stage: "complete", Progress: 1, Result: v.Result}
	}
	return streamMessage{Stage: string(v.Status), Progress: v.Progress, Error: v.Error, Kind: v.Kind}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, job.View())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, func(res *pipeline.Result) string { return res.OutputPath })
}

func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, func(res *pipeline.Result) string { return res.CaptionPath })
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, pick func(*pipeline.Result) string) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	v := job.View()
	if v.Status != StatusDone || v.Result == nil {
		s.writeError(w, http.StatusConflict, "Job not complete")
		return
	}
	path := pick(v.Result)
	if path == "" {
		s.writeError(w, http.StatusNotFound, "Job produced no such file")
		return
	}
	http.ServeFile(w, r, path)
}

// handleDelete cancels a running job, or forgets a finished one and removes
// its files.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if job.stop() {
		s.logger.Infow("Job canceled", "job", job.ID)
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "canceling"})
		return
	}

	s.jobs.remove(job.ID)
	if err := os.RemoveAll(job.Dir); err != nil {
		s.logger.Warnw("Failed to remove job directory", "job", job.ID, "error", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Job, bool) {
	job, ok := s.jobs.get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Job not found")
	}
	return job, ok
}

// errorMessage renders a job failure for API clients. Delegate failures
// carry the tail of the tool output.
func errorMessage(err error) string {
	var delegate *media.DelegateError
	if errors.As(err, &delegate) {
		if tail := delegate.Diagnostics(); tail != "" {
			tool := delegate.Op
			if fields := strings.Fields(tool); len(fields) > 0 {
				tool = fields[0]
			}
			return fmt.Sprintf("%s failed: %s", tool, tail)
		}
	}
	return err.Error()
}

func roundProgress(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorw("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
