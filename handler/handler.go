// Package handler provides the HTTP routes of the backend.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cuberootdigital/sig-backend/certcheck"
	"github.com/cuberootdigital/sig-backend/render"
	"github.com/cuberootdigital/sig-backend/store"
	"github.com/cuberootdigital/sig-backend/upload"
)

var (
	errMissingField  = errors.New("missing field")
	errInvalidRecord = errors.New("invalid record")
)

// Options configures routing and the middleware chain.
type Options struct {
	// BasePath prefixes every route. Empty mounts at "/".
	BasePath string
	// PublicURL is the absolute base used for links in rendered pages.
	PublicURL string
	// AllowedOrigins lists CORS origins; a single "*" allows all.
	AllowedOrigins []string
	// MaxBodyBytes limits request bodies. Zero disables the limit.
	MaxBodyBytes int64
	// PublicDir, when set, is served at the base path as a fallback.
	PublicDir string
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	records *store.Records
	pages   render.Renderer
	certs   certcheck.Checker
	intake  *upload.Intake
	log     *zap.Logger
	opts    Options

	router *mux.Router
	chain  http.Handler
}

// New creates a Handler and wires up all routes and middleware.
func New(records *store.Records, pages render.Renderer, certs certcheck.Checker, intake *upload.Intake, log *zap.Logger, opts Options) *Handler {
	if intake == nil {
		intake = &upload.Intake{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		records: records,
		pages:   pages,
		certs:   certs,
		intake:  intake,
		log:     log,
		opts:    opts,
		router:  mux.NewRouter(),
	}
	h.routes()

	var chain http.Handler = h.router
	chain = bodyLimitMiddleware(chain, opts.MaxBodyBytes)
	chain = corsMiddleware(chain, opts.AllowedOrigins)
	chain = recoverMiddleware(chain, log)
	chain = accessLogMiddleware(chain, log)
	chain = requestIDMiddleware(chain)
	h.chain = chain
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.chain.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	r := h.router
	if h.opts.BasePath != "" {
		r = h.router.PathPrefix(h.opts.BasePath).Subrouter()
	}
	h.router.NotFoundHandler = http.HandlerFunc(h.notFound)
	h.router.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	// Status
	r.HandleFunc("/health", h.hello).Methods(http.MethodGet)
	r.HandleFunc("/hello", h.hello).Methods(http.MethodGet)

	// Binary uploads
	r.HandleFunc("/image-upload", h.binaryUpload(store.CategoryImage, "my-image-file")).Methods(http.MethodPost)
	r.HandleFunc("/image", h.binaryUpload(store.CategoryQRImage, "my-image-file")).Methods(http.MethodPost)
	r.HandleFunc("/pdf-upload", h.binaryUpload(store.CategoryPDF, "my-pdf-file")).Methods(http.MethodPost)
	r.HandleFunc("/mp3-upload", h.binaryUpload(store.CategoryAudio, "my-mp3-file")).Methods(http.MethodPost)

	// Records
	r.HandleFunc("/menu", h.postMenu).Methods(http.MethodPost)
	r.HandleFunc("/app", h.postApp).Methods(http.MethodPost)
	r.HandleFunc("/fb", h.postFacebook).Methods(http.MethodPost)
	r.HandleFunc("/coupon", h.postCoupon).Methods(http.MethodPost)

	// Pages
	r.HandleFunc("/menu/{menuId}", h.menuPage).Methods(http.MethodGet)
	r.HandleFunc("/app/{appId}", h.appPage).Methods(http.MethodGet)
	r.HandleFunc("/fb/{id}", h.facebookPage).Methods(http.MethodGet)
	r.HandleFunc("/coupon/{id}", h.couponPage).Methods(http.MethodGet)

	r.HandleFunc("/ssl-check-url", h.checkCertificate).Methods(http.MethodPost)

	// Stored files, read-only
	r.HandleFunc("/uploads/{path:.+}", h.serveUpload).Methods(http.MethodGet, http.MethodHead)

	if h.opts.PublicDir != "" {
		files := http.FileServer(http.Dir(h.opts.PublicDir))
		if h.opts.BasePath != "" {
			files = http.StripPrefix(h.opts.BasePath, files)
		}
		r.PathPrefix("/").Handler(files).Methods(http.MethodGet, http.MethodHead)
	}
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(s))
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, upload.ErrTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalidRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errMissingField),
		errors.Is(err, store.ErrInvalidKey),
		errors.Is(err, store.ErrUnknownCategory),
		errors.Is(err, store.ErrNotDocument),
		errors.Is(err, store.ErrNotBinary),
		errors.Is(err, upload.ErrMissingFile),
		errors.Is(err, upload.ErrMalformed),
		errors.Is(err, certcheck.ErrInvalidHost):
		return http.StatusBadRequest
	case errors.Is(err, certcheck.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail logs err and writes it as a JSON error. Internal errors are not
// echoed to the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	fields := []zap.Field{
		zap.String("request_id", RequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", fields...)
		if status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		}
	} else {
		h.log.Warn("request rejected", fields...)
	}
	writeError(w, status, msg)
}

// ---------- status endpoints ----------

func (h *Handler) hello(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "Hello world")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
