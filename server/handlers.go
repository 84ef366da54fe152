// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/spatial"
	"github.com/urnamapa/urnamapa/votes"
	"go.uber.org/zap"
)

// FileInfo describes an uploaded result file.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (s *Server) listFiles(ctx *gin.Context) {
	entries, err := os.ReadDir(s.uploadsDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		abortWithError(ctx, eris.Wrapf(err, "listing %s", s.uploadsDir))

		return
	}

	files := []FileInfo{}

	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{Name: e.Name(), Size: info.Size()})
	}

	ctx.JSON(http.StatusOK, files)
}

func (s *Server) upload(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "a multipart field named file is required"})

		return
	}

	path, err := s.resolveFile(file.Filename)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	if err := os.MkdirAll(s.uploadsDir, 0o750); err != nil {
		abortWithError(ctx, eris.Wrapf(err, "creating %s", s.uploadsDir))

		return
	}

	if err := ctx.SaveUploadedFile(file, path); err != nil {
		abortWithError(ctx, eris.Wrapf(err, "saving %s", file.Filename))

		return
	}

	zap.L().Info("file uploaded", zap.String("file", file.Filename), zap.Int64("size", file.Size))

	ctx.JSON(http.StatusCreated, FileInfo{Name: file.Filename, Size: file.Size})
}

func (s *Server) listOffices(ctx *gin.Context) {
	records, err := s.loadRecords(ctx.Param("filename"))
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, votes.Offices(records))
}

func (s *Server) candidateMap(ctx *gin.Context) {
	records, err := s.loadRecords(ctx.Param("filename"))
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	rep, err := s.service.CandidateReport(ctx.Request.Context(), records, ctx.Param("candidate"))
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, rep)
}

func (s *Server) compare(ctx *gin.Context) {
	records, err := s.loadRecords(ctx.Param("filename"))
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	cmp, err := s.service.Compare(records, ctx.Param("c1"), ctx.Param("c2"))
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, cmp)
}

// AreaRequest is the body of an area query. Geometry is a GeoJSON Polygon,
// MultiPolygon or a Feature holding one.
type AreaRequest struct {
	Filename string          `json:"filename" binding:"required"`
	Geometry json.RawMessage `json:"geometry" binding:"required"`
}

func (s *Server) analyzeArea(ctx *gin.Context) {
	var req AreaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	polygon, err := spatial.ParsePolygon(req.Geometry)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	records, err := s.loadRecords(req.Filename)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	results, stats, err := s.service.AnalyzeArea(ctx.Request.Context(), records, polygon)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	zap.L().Info("area analyzed",
		zap.String("file", req.Filename),
		zap.Int("addresses", stats.Distinct),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("unresolved", stats.Failed),
	)

	ctx.JSON(http.StatusOK, results)
}
