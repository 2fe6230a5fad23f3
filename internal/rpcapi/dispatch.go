package rpcapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vfscore/vfskernel/pkg/kernel"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/search"
)

// rpcRequest is the {method, params} envelope SPEC_FULL §4.14 describes.
type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: %v", err)
		return
	}

	h, ok := methods[req.Method]
	if !ok {
		badRequest(w, "unknown method %q", req.Method)
		return
	}
	result, err := h(r.Context(), s.kernel, req.Params)
	if err != nil {
		respondErr(w, "rpcapi", req.Method, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"result": result})
}

type handlerFunc func(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error)

var methods = map[string]handlerFunc{
	"stat":        handleStat,
	"lstat":       handleLstat,
	"mkdir":       handleMkdir,
	"rmdir":       handleRmdir,
	"rm":          handleRm,
	"readdir":     handleReaddir,
	"rename":      handleRename,
	"symlink":     handleSymlink,
	"readlink":    handleReadlink,
	"link":        handleLink,
	"chmod":       handleChmod,
	"chown":       handleChown,
	"writefile":   handleWriteFile,
	"readfile":    handleReadFile,
	"truncate":    handleTruncate,
	"copyfile":    handleCopyFile,
	"getxattr":    handleGetXattr,
	"setxattr":    handleSetXattr,
	"listxattr":   handleListXattr,
	"removexattr": handleRemoveXattr,
	"statfs":      handleStatfs,
	"search":      handleSearch,
}

type pathParams struct {
	Path string `json:"path"`
}

func handleStat(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p pathParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return k.Stat(ctx, p.Path)
}

func handleLstat(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p pathParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return k.Lstat(ctx, p.Path)
}

type mkdirParams struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Mode      uint32 `json:"mode"`
}

func handleMkdir(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p mkdirParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	mode := posixmode.Mode(p.Mode)
	if mode == 0 {
		mode = posixmode.DefaultDirMode
	}
	return nil, k.Mkdir(ctx, p.Path, kernel.MkdirOptions{Recursive: p.Recursive, Mode: mode})
}

type rmdirParams struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

func handleRmdir(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p rmdirParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.Rmdir(ctx, p.Path, p.Recursive)
}

type rmParams struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Force     bool   `json:"force"`
}

func handleRm(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p rmParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.Rm(ctx, p.Path, p.Recursive, p.Force)
}

type readdirParams struct {
	Path          string `json:"path"`
	WithFileTypes bool   `json:"with_file_types"`
	Recursive     bool   `json:"recursive"`
	Limit         int    `json:"limit"`
	Cursor        string `json:"cursor"`
}

func handleReaddir(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p readdirParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return k.Readdir(ctx, p.Path, kernel.ReaddirOptions{
		WithFileTypes: p.WithFileTypes,
		Recursive:     p.Recursive,
		Limit:         p.Limit,
		Cursor:        p.Cursor,
	})
}

type renameParams struct {
	Old       string `json:"old_path"`
	New       string `json:"new_path"`
	Overwrite bool   `json:"overwrite"`
}

func handleRename(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p renameParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.Rename(ctx, p.Old, p.New, p.Overwrite)
}

type symlinkParams struct {
	Target string `json:"target"`
	Path   string `json:"path"`
}

func handleSymlink(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p symlinkParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.Symlink(ctx, p.Target, p.Path)
}

func handleReadlink(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p pathParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return k.Readlink(ctx, p.Path)
}

type linkParams struct {
	Existing string `json:"existing_path"`
	New      string `json:"new_path"`
}

func handleLink(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p linkParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.Link(ctx, p.Existing, p.New)
}

type chmodParams struct {
	Path string `json:"path"`
	Mode uint32 `json:"mode"`
}

func handleChmod(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p chmodParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.Chmod(ctx, p.Path, posixmode.Mode(p.Mode))
}

type chownParams struct {
	Path string `json:"path"`
	UID  int64  `json:"uid"`
	GID  int64  `json:"gid"`
}

func handleChown(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p chownParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.Chown(ctx, p.Path, p.UID, p.GID)
}

type writeFileParams struct {
	Path string `json:"path"`
	Data []byte `json:"data"` // base64-decoded by encoding/json automatically
	Mode *uint32 `json:"mode,omitempty"`
}

func handleWriteFile(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p writeFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	opts := kernel.WriteFileOptions{}
	if p.Mode != nil {
		m := posixmode.Mode(*p.Mode)
		opts.Mode = &m
	}
	return nil, k.WriteFile(ctx, p.Path, p.Data, opts)
}

type readFileParams struct {
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

func handleReadFile(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p readFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return k.ReadFile(ctx, p.Path, kernel.Encoding(p.Encoding))
}

type truncateParams struct {
	Path   string `json:"path"`
	Length int64  `json:"length"`
}

func handleTruncate(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p truncateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.Truncate(ctx, p.Path, p.Length)
}

type copyFileParams struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Mode int    `json:"mode"`
}

func handleCopyFile(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p copyFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.CopyFile(ctx, p.Src, p.Dest, kernel.CopyFileMode(p.Mode))
}

type xattrNameParams struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

func handleGetXattr(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p xattrNameParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	value, err := k.GetXattr(ctx, p.Path, p.Name)
	if err != nil {
		return nil, err
	}
	return map[string]any{"value": value}, nil
}

type setXattrParams struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func handleSetXattr(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p setXattrParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.SetXattr(ctx, p.Path, p.Name, p.Value)
}

func handleListXattr(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p pathParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return k.ListXattr(ctx, p.Path)
}

func handleRemoveXattr(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p xattrNameParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return nil, k.RemoveXattr(ctx, p.Path, p.Name)
}

func handleStatfs(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p pathParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return k.Statfs(ctx, p.Path)
}

type searchParams struct {
	Pattern       string   `json:"pattern"`
	Path          string   `json:"path"`
	Exclude       []string `json:"exclude"`
	MaxDepth      int      `json:"max_depth"`
	ShowHidden    bool     `json:"show_hidden"`
	Limit         int      `json:"limit"`
	ContentSearch string   `json:"content_search"`
	CaseSensitive bool     `json:"case_sensitive"`
}

func handleSearch(ctx context.Context, k *kernel.Kernel, params json.RawMessage) (any, error) {
	var p searchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return k.Search(ctx, p.Pattern, search.Options{
		Path:          p.Path,
		Exclude:       p.Exclude,
		MaxDepth:      p.MaxDepth,
		ShowHidden:    p.ShowHidden,
		Limit:         p.Limit,
		ContentSearch: p.ContentSearch,
		CaseSensitive: p.CaseSensitive,
	})
}
