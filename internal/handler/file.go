package handler

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/vistta-org/fs/internal/fs"
)

// StatResponse represents the response for a stat request
type StatResponse struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Size    int64     `json:"size"`
	Mode    string    `json:"mode"`
	ModTime time.Time `json:"modTime"`
	ID      string    `json:"id,omitempty"`
}

// FileHandler handles file content API requests
type FileHandler struct {
	mounts Mounts
}

// NewFileHandler creates a new file handler
func NewFileHandler(mounts Mounts) *FileHandler {
	return &FileHandler{mounts: mounts}
}

// lookup resolves "{alias}/{relativePath}" and rejects excluded paths.
func (h *FileHandler) lookup(c *gin.Context) (*Mount, string, bool) {
	m, rel, err := h.mounts.resolve(c.Param("path"))
	if err == nil && m.Excluded(m.Path(rel)) {
		err = errNotFound
	}
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, errForbidden) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, "", false
	}
	return m, rel, true
}

// GetRaw returns the raw file content with a detected content type
func (h *FileHandler) GetRaw(c *gin.Context) {
	m, rel, ok := h.lookup(c)
	if !ok {
		return
	}

	info, err := m.Storage.Stat(m.Path(rel))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound.Error()})
		return
	}
	if info.IsDir {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is a directory"})
		return
	}

	content, err := m.Storage.ReadFile(m.Path(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": errNotFound.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file: " + err.Error()})
		return
	}

	c.Data(http.StatusOK, mimetype.Detect(content).String(), content)
}

// GetStat returns file metadata. Files on local roots also carry their
// stable file id.
func (h *FileHandler) GetStat(c *gin.Context) {
	m, rel, ok := h.lookup(c)
	if !ok {
		return
	}

	p := m.Path(rel)
	info, err := m.Storage.Stat(p)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errNotFound.Error()})
		return
	}

	resp := StatResponse{
		Path:    strings.TrimPrefix(c.Param("path"), "/"),
		Name:    info.Name,
		Type:    kind(info),
		Size:    info.Size,
		Mode:    info.Mode.String(),
		ModTime: info.ModTime,
	}
	if m.Root.GitRef == "" {
		if id, err := fs.FileID(p); err == nil {
			resp.ID = id
		}
	}
	c.JSON(http.StatusOK, resp)
}

func kind(info fs.FileInfo) string {
	switch {
	case info.IsDir:
		return "directory"
	case info.IsRegular():
		return "file"
	default:
		return "other"
	}
}
