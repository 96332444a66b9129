package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vistta-org/fs/internal/fs"
)

var (
	errNotFound  = errors.New("file not found")
	errForbidden = errors.New("access denied")
)

// TreeNode represents a file or directory in the tree
type TreeNode struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Path        string      `json:"path,omitempty"`
	Alias       string      `json:"alias,omitempty"`
	Children    []*TreeNode `json:"children,omitempty"`
	ModTime     *time.Time  `json:"modTime,omitempty"`
	Size        int64       `json:"size,omitempty"`
	Symlink     bool        `json:"symlink,omitempty"`
	IsRepoGroup bool        `json:"isRepoGroup,omitempty"`
}

// TreeHandler handles directory tree API requests
type TreeHandler struct {
	mounts Mounts
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(mounts Mounts) *TreeHandler {
	return &TreeHandler{mounts: mounts}
}

// rootResponse describes a configured root for the frontend.
type rootResponse struct {
	Alias   string `json:"alias"`
	Path    string `json:"path"`
	GitRef  string `json:"git_ref,omitempty"`
	Exclude string `json:"exclude,omitempty"`
}

// GetRoots returns the list of configured roots
func (h *TreeHandler) GetRoots(c *gin.Context) {
	resp := make([]rootResponse, len(h.mounts))
	for i, m := range h.mounts {
		resp[i] = rootResponse{
			Alias:  m.Root.Alias,
			Path:   m.Root.Path,
			GitRef: m.Root.GitRef,
		}
		if m.Exclude != nil {
			resp[i].Exclude = m.Exclude.String()
		}
	}
	c.JSON(http.StatusOK, gin.H{"roots": resp})
}

// GetTree returns the directory tree structure for all configured roots.
// A ?root= query limits the response to one root.
func (h *TreeHandler) GetTree(c *gin.Context) {
	only := c.Query("root")

	var rawRoots []*TreeNode
	for _, m := range h.mounts {
		if only != "" && m.Root.Alias != only {
			continue
		}
		tree, err := buildTree(m, "")
		if err != nil {
			continue
		}
		tree.Name = m.Root.Alias
		tree.Alias = m.Root.Alias
		rawRoots = append(rawRoots, tree)
	}

	if only != "" && len(rawRoots) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "root not found"})
		return
	}

	// Group roots that share the same path and have git_ref set
	roots := h.groupByRepo(rawRoots)

	if len(roots) == 1 {
		c.JSON(http.StatusOK, roots[0])
	} else {
		c.JSON(http.StatusOK, gin.H{
			"type":     "root",
			"children": roots,
		})
	}
}

// groupByRepo groups roots that share the same repository path (multiple
// git refs of one repo) under a single parent node named after the
// repository directory. Local roots are kept as-is.
func (h *TreeHandler) groupByRepo(roots []*TreeNode) []*TreeNode {
	repoMap := make(map[string][]*TreeNode)
	var order []string
	var standalone []*TreeNode

	for _, node := range roots {
		m, ok := h.mounts.Find(node.Alias)
		if !ok || m.Root.GitRef == "" {
			standalone = append(standalone, node)
			continue
		}
		if _, seen := repoMap[m.Root.Path]; !seen {
			order = append(order, m.Root.Path)
		}
		repoMap[m.Root.Path] = append(repoMap[m.Root.Path], node)
	}

	var result []*TreeNode
	for _, repoPath := range order {
		nodes := repoMap[repoPath]
		if len(nodes) == 1 {
			result = append(result, nodes[0])
			continue
		}
		result = append(result, &TreeNode{
			Name:        filepath.Base(repoPath),
			Type:        "directory",
			IsRepoGroup: true,
			Children:    nodes,
		})
	}

	return append(result, standalone...)
}

func buildTree(m *Mount, relativePath string) (*TreeNode, error) {
	info, err := m.Storage.Stat(m.Path(relativePath))
	if err != nil {
		return nil, err
	}

	// Build path with root alias prefix for stable, human-readable URLs
	nodePath := relativePath
	if relativePath != "" {
		nodePath = m.Root.Alias + "/" + relativePath
	}

	node := &TreeNode{
		Name: info.Name,
		Path: nodePath,
	}

	if !info.IsDir {
		node.Type = "file"
		modTime := info.ModTime
		node.ModTime = &modTime
		node.Size = info.Size
		return node, nil
	}

	node.Type = "directory"
	entries, err := m.Storage.ReadDir(m.Path(relativePath))
	if err != nil {
		return nil, err
	}
	sortEntries(entries)

	for _, entry := range entries {
		childPath := entry.Name
		if relativePath != "" {
			childPath = relativePath + "/" + entry.Name
		}
		if m.Excluded(m.Path(childPath)) {
			continue
		}

		// Linked directories are listed but not expanded
		if entry.Symlink {
			target, err := m.Storage.Stat(m.Path(childPath))
			if err != nil {
				continue
			}
			if target.IsDir {
				node.Children = append(node.Children, &TreeNode{
					Name:    entry.Name,
					Type:    "directory",
					Path:    m.Root.Alias + "/" + childPath,
					Symlink: true,
				})
				continue
			}
		}

		child, err := buildTree(m, childPath)
		if err != nil {
			continue
		}
		child.Symlink = entry.Symlink
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// sortEntries orders directories first, then files, both alphabetically.
func sortEntries(entries []fs.DirEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}
