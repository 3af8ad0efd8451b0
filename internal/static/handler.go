package static

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/2beens/orderbox/internal/telemetry/tracing"
	"github.com/2beens/orderbox/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	IndexFile          = "index.html"
	DefaultContentType = "application/octet-stream"

	notFoundPage = "<h1>404 - File not found</h1>"
	serverError  = "Server error"
)

// contentTypes are checked before the system mime table.
var contentTypes = map[string]string{
	".html": "text/html",
	".js":   "text/javascript",
	".css":  "text/css",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".woff": "application/font-woff",
	".ttf":  "application/font-ttf",
	".eot":  "application/vnd.ms-fontobject",
	".otf":  "application/font-otf",
	".wasm": "application/wasm",
}

// Handler serves files from a root directory by request path.
type Handler struct {
	root string
}

func NewHandler(root string) *Handler {
	return &Handler{root: root}
}

func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ext != "" && ct != "" {
		return ct
	}
	return DefaultContentType
}

// resolve maps a request path to a file under root. The path is cleaned as
// an absolute path first, so ".." can never climb above root.
func (h *Handler) resolve(urlPath string) string {
	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		clean = "/" + IndexFile
	}
	return filepath.Join(h.root, filepath.FromSlash(clean))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "static.serve")
	defer span.End()

	filePath := h.resolve(r.URL.Path)
	span.SetAttributes(attribute.String("static.file", filePath))

	content, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			span.SetStatus(codes.Error, "not-found")
			pkg.WriteResponse(w, pkg.ContentType.HTML, notFoundPage, http.StatusNotFound)
			return
		}
		log.Errorf("static, read [%s]: %s", filePath, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read-error")
		pkg.WriteResponse(w, "", serverError, http.StatusInternalServerError)
		return
	}

	span.SetStatus(codes.Ok, "ok")
	pkg.WriteResponseBytesOK(w, ContentTypeFor(filePath), content)
}
