// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the vote analysis views as a JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/analysis"
	"github.com/urnamapa/urnamapa/spatial"
	"github.com/urnamapa/urnamapa/votes"
	"go.uber.org/zap"
)

var (
	// ErrBadFilename is returned for names that are not a plain .csv file
	// inside the uploads directory.
	ErrBadFilename = eris.New("invalid file name")

	// ErrFileNotFound is returned when the requested file was never
	// uploaded.
	ErrFileNotFound = eris.New("file not found")
)

const maxUploadMemory = 32 << 20

type Server struct {
	service    *analysis.Service
	uploadsDir string
}

func NewServer(service *analysis.Service, uploadsDir string) *Server {
	return &Server{
		service:    service,
		uploadsDir: uploadsDir,
	}
}

// Handler returns the router with every API route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())
	r.MaxMultipartMemory = maxUploadMemory

	r.GET("/api/files", s.listFiles)
	r.POST("/api/upload", s.upload)
	r.GET("/api/data/:filename", s.listOffices)
	r.GET("/api/map/:filename/:candidate", s.candidateMap)
	r.GET("/api/compare/:filename/:c1/:c2", s.compare)
	r.POST("/api/analyze_area", s.analyzeArea)

	return r
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := os.MkdirAll(s.uploadsDir, 0o750); err != nil {
		return eris.Wrapf(err, "creating %s", s.uploadsDir)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.String("addr", addr), zap.String("uploads", s.uploadsDir))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}

	return nil
}

// resolveFile maps an uploaded file name to its path. Anything that could
// escape the uploads directory is rejected.
func (s *Server) resolveFile(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) || !isCSV(name) {
		return "", eris.Wrapf(ErrBadFilename, "%q", name)
	}

	return filepath.Join(s.uploadsDir, name), nil
}

func (s *Server) loadRecords(name string) ([]votes.Record, error) {
	path, err := s.resolveFile(name)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, eris.Wrapf(ErrFileNotFound, "%q", name)
		}

		return nil, eris.Wrapf(err, "stat %s", name)
	}

	return votes.LoadFile(path)
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// statusOf maps domain failures to HTTP statuses.
func statusOf(err error) int {
	switch {
	case eris.Is(err, ErrBadFilename),
		eris.Is(err, votes.ErrParseFailure),
		eris.Is(err, spatial.ErrInvalidPolygon):
		return http.StatusBadRequest
	case eris.Is(err, ErrFileNotFound), eris.Is(err, analysis.ErrNoVotes):
		return http.StatusNotFound
	case eris.Is(err, votes.ErrJoinFailure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(ctx *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("path", ctx.Request.URL.Path), zap.Error(err))
	}

	ctx.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		zap.L().Debug("http access",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Int("bytes", ctx.Writer.Size()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("ip", ctx.ClientIP()),
		)
	}
}
