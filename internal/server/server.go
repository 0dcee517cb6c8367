// Package server hosts editing jobs over HTTP: upload a file, start a run,
// follow its progress as server-sent events and download the result.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mgpai22/clipforge/internal/logging"
	"github.com/mgpai22/clipforge/internal/manifest"
	"github.com/mgpai22/clipforge/internal/pipeline"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8321

	defaultMaxUpload = 10 << 30
)

// Processor runs one job. *pipeline.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, m *manifest.Manifest, sink pipeline.Sink) (*pipeline.Result, error)
}

type Config struct {
	Host    string
	Port    int
	WorkDir string // job directories are created here; a temp dir when empty

	MaxUploadBytes int64
	StreamTimeout  time.Duration // idle time after which a progress stream gives up
}

func (c Config) addr() string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

type Server struct {
	cfg       Config
	processor Processor
	logger    *logging.Logger
	jobs      *registry
	mux       *http.ServeMux

	// parent of every job context; canceled on Close
	baseCtx  context.Context
	stopJobs context.CancelFunc
	running  sync.WaitGroup
}

func New(cfg Config, processor Processor, logger *logging.Logger) (*Server, error) {
	if processor == nil {
		return nil, errors.New("server needs a processor")
	}
	if cfg.WorkDir == "" {
		dir, err := os.MkdirTemp("", "clipforge_")
		if err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
		cfg.WorkDir = dir
	} else if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = 2 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		processor: processor,
		logger:    logging.OrNop(logger).Named("server"),
		jobs:      newRegistry(),
		mux:       http.NewServeMux(),
		baseCtx:   ctx,
		stopJobs:  cancel,
	}

	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/jobs", s.handleList)
	s.mux.HandleFunc("POST /api/jobs/{id}/process", s.handleProcess)
	s.mux.HandleFunc("GET /api/jobs/{id}/progress", s.handleProgress)
	s.mux.HandleFunc("GET /api/jobs/{id}/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/jobs/{id}/result", s.handleResult)
	s.mux.HandleFunc("GET /api/jobs/{id}/captions", s.handleCaptions)
	s.mux.HandleFunc("DELETE /api/jobs/{id}", s.handleDelete)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// WorkDir returns the directory holding job files.
func (s *Server) WorkDir() string {
	return s.cfg.WorkDir
}

// Run serves until ctx is canceled, then shuts down and stops running jobs.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Infow("Server listening", "address", listener.Addr().String(), "work_dir", s.cfg.WorkDir)

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	s.Close()
	return nil
}

// Close cancels every running job and waits for them to return.
func (s *Server) Close() {
	s.stopJobs()
	s.running.Wait()
}

func (s *Server) jobContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(s.baseCtx)
}
