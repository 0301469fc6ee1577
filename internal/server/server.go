// Package server serves the contents of a VPK over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pg9182/vpk"
)

// Server holds the HTTP handler dependencies.
type Server struct {
	vpk *vpk.Archive
}

// New creates a new Server for a.
func New(a *vpk.Archive) *Server {
	return &Server{vpk: a}
}

// Handler returns the routes:
//
//	GET /files       JSON array of normalized filenames
//	GET /files/*     file contents
//	GET /entries/*   JSON file entry
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/files", s.ListFiles)
	r.Get("/files/*", s.GetFile)
	r.Get("/entries/*", s.GetEntry)
	return r
}

// ListFiles handles GET /files.
func (s *Server) ListFiles(w http.ResponseWriter, r *http.Request) {
	if _, err := s.vpk.Header(); err != nil {
		writeError(w, err)
		return
	}
	names := s.vpk.ListFiles()
	if names == nil {
		names = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(names)
}

// GetFile handles GET /files/*.
func (s *Server) GetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.vpk.GetFile(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(f.Path)+`"`)
	w.Write(f.Data)
}

type entryResponse struct {
	Path         string `json:"path"`
	CRC32        uint32 `json:"crc32"`
	PreloadBytes uint16 `json:"preload_bytes"`
	Archive      string `json:"archive"`
	Offset       uint32 `json:"offset"`
	Length       uint32 `json:"length"`
}

// GetEntry handles GET /entries/*.
func (s *Server) GetEntry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	e, err := s.vpk.Entry(name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entryResponse{
		Path:         vpk.Normalize(name),
		CRC32:        e.CRC32,
		PreloadBytes: e.PreloadBytes,
		Archive:      e.Archive.String(),
		Offset:       e.Offset,
		Length:       e.Length,
	})
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, vpk.FileNotFound):
		code = http.StatusNotFound
	case errors.Is(err, vpk.Uninitialized), errors.Is(err, vpk.InvalidArchive):
		code = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), code)
}
