package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vitaliisemenov/gatehouse/internal/config"
)

// fileRoute classifies the stat result of a resolved path.
type fileRoute int

const (
	routeMissing fileRoute = iota
	routeFile
	routeDirectory
	routeRedirect
)

func classifyPath(p, reqPath string) fileRoute {
	info, err := os.Stat(p)
	if err != nil {
		return routeMissing
	}
	if info.IsDir() {
		if strings.HasSuffix(reqPath, "/") {
			return routeDirectory
		}
		return routeRedirect
	}
	return routeFile
}

// joinRoot resolves a request path under the filesystem base, cleaning
// any traversal out of the request component.
func joinRoot(root, reqPath string) string {
	return filepath.Join(root, filepath.FromSlash(path.Clean("/"+reqPath)))
}

// fsResponse walks the filesystem route of the handler ladder.
func (h *siteHandler) fsResponse(req *http.Request, reqPath string, cfg *config.SiteConfig) *response {
	var target string
	if p, ok := cfg.File.Get(); ok {
		target = p
	} else if cfg.Root != nil {
		target = joinRoot(*cfg.Root, reqPath)
	} else {
		return h.errorPage(cfg, http.StatusForbidden)
	}

	switch classifyPath(target, reqPath) {
	case routeFile:
		return h.serveFile(cfg, http.StatusOK, target)

	case routeRedirect:
		location := reqPath + "/"
		if req.URL.RawQuery != "" {
			location += "?" + req.URL.RawQuery
		}
		resp := emptyResponse(http.StatusMovedPermanently)
		resp.header.Set("Location", location)
		return resp

	case routeDirectory:
		if d, ok := cfg.Directory.Get(); ok {
			page, err := renderDirectory(target, reqPath, d)
			if err != nil {
				return h.errorPage(cfg, http.StatusForbidden)
			}
			resp := textResponse(http.StatusOK, page, mimeTextHTML)
			resp.ext = "html"
			return resp
		}
		if index, ok := cfg.Index.Get(); ok {
			for _, name := range index {
				candidate := filepath.Join(target, name)
				if isRegularFile(candidate) {
					return h.serveFile(cfg, http.StatusOK, candidate)
				}
			}
		}
		return h.errorPage(cfg, http.StatusNotFound)

	default:
		if tries, ok := cfg.Try.Get(); ok {
			if resp := h.tryFiles(req, cfg, tries); resp != nil {
				return resp
			}
		}
		return h.errorPage(cfg, http.StatusNotFound)
	}
}

// tryFiles probes the fallback templates in order and serves the first
// that resolves to a regular file. Each expanded template is a
// request-path-like string resolved under the site root.
func (h *siteHandler) tryFiles(req *http.Request, cfg *config.SiteConfig, tries []config.Var[string]) *response {
	if cfg.Root == nil {
		return nil
	}
	for _, tpl := range tries {
		candidate := expandVar(tpl, req)
		if candidate == "" {
			continue
		}
		target := joinRoot(*cfg.Root, candidate)
		if isRegularFile(target) {
			return h.serveFile(cfg, http.StatusOK, target)
		}
	}
	return nil
}

// serveFile opens path and builds a streaming response with the mime
// type of its extension.
func (h *siteHandler) serveFile(cfg *config.SiteConfig, status int, path string) *response {
	f, err := os.Open(path)
	if err != nil {
		return h.errorPage(cfg, http.StatusInternalServerError)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return h.errorPage(cfg, http.StatusInternalServerError)
	}

	resp := newResponse(status)
	resp.body = f
	resp.length = info.Size()
	resp.ext = extensionOf(path)
	resp.contentType = mimeByExtension(resp.ext)
	return resp
}

// errorPage consults the merged error map for status; a configured
// regular file replaces the synthesized plain-text body.
func (h *siteHandler) errorPage(cfg *config.SiteConfig, status int) *response {
	if pages, ok := cfg.Error.Get(); ok {
		if p, ok := pages[status].Get(); ok && isRegularFile(p) {
			if resp := h.serveErrorFile(status, p); resp != nil {
				return resp
			}
		}
	}
	return statusResponse(status)
}

func (h *siteHandler) serveErrorFile(status int, path string) *response {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil
	}
	resp := newResponse(status)
	resp.body = f
	resp.length = info.Size()
	resp.ext = extensionOf(path)
	resp.contentType = mimeByExtension(resp.ext)
	return resp
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
