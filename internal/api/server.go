// Package api exposes the HTTP surface: blob intake, per-ingest status,
// blob deletion and the processed-artifact URL.
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papyrushq/papyrus/internal/config"
	"github.com/papyrushq/papyrus/internal/eventlog"
	"github.com/papyrushq/papyrus/internal/model"
	"github.com/papyrushq/papyrus/internal/queue"
	"github.com/papyrushq/papyrus/internal/s3storage"
	"github.com/papyrushq/papyrus/internal/status"
)

// Server exposes HTTP endpoints for ingestion and status visibility.
type Server struct {
	cfg    *config.Config
	log    eventlog.Store
	store  *s3storage.Storage
	queue  *asynq.Client
	query  *status.Query
	logger *slog.Logger
	server *http.Server
}

// New constructs a Server.
func New(cfg *config.Config, log eventlog.Store, store *s3storage.Storage, queueClient *asynq.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		log:    log,
		store:  store,
		queue:  queueClient,
		query:  status.NewQuery(log),
		logger: logger,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Logger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/blobs", s.handleUpload)
	r.Delete("/blobs/{blobID}", s.handleDelete)
	r.Get("/blobs/{blobID}/processed-url", s.handleProcessedURL)
	r.Get("/ingests/{ingestID}/status", s.handleStatus)
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.Routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("api listening", "address", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts one multipart file, derives its content id, stores
// the bytes, appends the metadata row and enqueues extraction.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024)

	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "expecting multipart form", http.StatusBadRequest)
		return
	}

	ingestID := r.URL.Query().Get("ingest")
	if ingestID == "" {
		ingestID = uuid.NewString()
	}

	var fileName string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			http.Error(w, "no file part in form", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if part.FormName() != "file" {
			continue
		}
		fileName = filepath.Base(part.FileName())
		tmp, err := s.persistTemp(part)
		part.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer os.Remove(tmp.path)
		s.finishUpload(ctx, w, ingestID, fileName, tmp)
		return
	}
}

type tempUpload struct {
	path        string
	size        int64
	contentType string
	blobID      string
}

// persistTemp spools the part to disk while hashing it, so the blob id is
// derived from content and the media type from the first bytes.
func (s *Server) persistTemp(part io.Reader) (*tempUpload, error) {
	tmpFile, err := os.CreateTemp(s.cfg.ScratchDir, "papyrus-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer tmpFile.Close()

	hasher := sha256.New()
	var sniff []byte
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > s.cfg.MaxFileSize {
				os.Remove(tmpFile.Name())
				return nil, fmt.Errorf("file exceeds limit (%d bytes)", s.cfg.MaxFileSize)
			}
			if len(sniff) < 512 {
				chunk := n
				if remain := 512 - len(sniff); chunk > remain {
					chunk = remain
				}
				sniff = append(sniff, buf[:chunk]...)
			}
			hasher.Write(buf[:n])
			if _, err := tmpFile.Write(buf[:n]); err != nil {
				os.Remove(tmpFile.Name())
				return nil, fmt.Errorf("write temp file: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			os.Remove(tmpFile.Name())
			return nil, fmt.Errorf("read upload: %w", readErr)
		}
	}
	return &tempUpload{
		path:        tmpFile.Name(),
		size:        written,
		contentType: sniffMediaType(sniff),
		blobID:      hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (s *Server) finishUpload(ctx context.Context, w http.ResponseWriter, ingestID, fileName string, tmp *tempUpload) {
	objectKey := s3storage.RawObjectKey(tmp.blobID, fileName)

	f, err := os.Open(tmp.path)
	if err != nil {
		http.Error(w, "failed to reopen upload", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	if err := s.store.UploadRaw(ctx, objectKey, f, tmp.size, tmp.contentType); err != nil {
		s.logger.Error("upload to storage failed", "error", err)
		http.Error(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	md := model.BlobMetadata{
		IngestID:   ingestID,
		BlobID:     tmp.blobID,
		FileSize:   tmp.size,
		Path:       objectKey,
		InsertTime: time.Now().UTC(),
	}
	if err := s.log.AppendMetadata(ctx, md); err != nil {
		s.logger.Error("append metadata failed", "error", err)
		http.Error(w, "failed to store metadata", http.StatusInternalServerError)
		return
	}

	payload := queue.ExtractPayload{
		BlobID:    tmp.blobID,
		IngestID:  ingestID,
		ObjectKey: objectKey,
		MediaType: tmp.contentType,
		Size:      tmp.size,
		Workspace: s.cfg.Workspace,
	}
	if err := queue.EnqueueExtract(ctx, s.queue, payload); err != nil {
		s.logger.Error("enqueue failed", "error", err)
		http.Error(w, "failed to queue job", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"blobId":    tmp.blobID,
		"ingestId":  ingestID,
		"mediaType": tmp.contentType,
		"size":      tmp.size,
	})
}

// handleStatus reconstructs status for one batch, or for all batches
// sharing a prefix when ?prefix=1.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ingestID := chi.URLParam(r, "ingestID")
	prefix := r.URL.Query().Get("prefix") == "1"
	statuses, err := s.query.ForIngest(r.Context(), ingestID, prefix)
	if err != nil {
		s.logger.Error("status query failed", "ingest", ingestID, "error", err)
		http.Error(w, "status query failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, statuses)
}

// handleDelete removes a blob's objects and purges all its events and
// metadata as one unit, reporting the removed row count.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	blobID := chi.URLParam(r, "blobID")

	metadata, err := s.log.MetadataForBlob(ctx, blobID)
	if err != nil {
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	for _, md := range metadata {
		if err := s.store.DeleteRaw(ctx, md.Path); err != nil {
			s.logger.Warn("delete raw object failed", "path", md.Path, "error", err)
		}
	}
	if err := s.store.DeleteProcessed(ctx, blobID); err != nil {
		s.logger.Warn("delete processed object failed", "blob", blobID, "error", err)
	}

	removed, err := s.log.DeleteBlob(ctx, blobID)
	if err != nil {
		s.logger.Error("purge failed", "blob", blobID, "error", err)
		http.Error(w, "purge failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"blobId": blobID, "removed": removed})
}

func (s *Server) handleProcessedURL(w http.ResponseWriter, r *http.Request) {
	blobID := chi.URLParam(r, "blobID")
	url, err := s.store.PresignProcessedURL(r.Context(), blobID, 5*time.Minute)
	if err != nil {
		http.Error(w, "failed to generate url", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// sniffMediaType detects the media type from the first bytes and strips any
// charset parameter so media-type keys stay stable.
func sniffMediaType(sniff []byte) string {
	ct := http.DetectContentType(sniff)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
