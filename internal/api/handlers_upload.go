package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ameistad/carenote/internal/apitypes"
	"github.com/ameistad/carenote/internal/helpers"
	"github.com/ameistad/carenote/internal/parser"
)

const maxUploadMemory = 32 << 20

var uploadExtensions = map[string]bool{".pdf": true, ".json": true, ".yaml": true, ".yml": true, ".toml": true}

// handleUpload stores an uploaded care record document and parses it into the database in the background.
func (s *APIServer) handleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusBadRequest, "Failed to parse multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing 'file' in form data")
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !uploadExtensions[ext] {
			writeError(w, http.StatusBadRequest, "File must be a PDF or a JSON, YAML or TOML layout")
			return
		}

		dir := s.uploadsDir
		if dir == "" {
			dir = os.TempDir()
		}
		base := helpers.SafeFilenamePart(strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename)))
		dst, err := os.CreateTemp(dir, "upload-"+base+"-*"+ext)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("failed to create upload file: %w", err))
			return
		}
		if _, err := io.Copy(dst, file); err != nil {
			dst.Close()
			os.Remove(dst.Name())
			s.respondError(w, r, fmt.Errorf("failed to save uploaded file: %w", err))
			return
		}
		if err := dst.Close(); err != nil {
			os.Remove(dst.Name())
			s.respondError(w, r, fmt.Errorf("failed to save uploaded file: %w", err))
			return
		}

		path, name := dst.Name(), header.Filename
		jobID := s.startJob("Record upload", func(ctx context.Context, logger *slog.Logger) (string, []any, error) {
			return s.importRecords(ctx, logger, path, name)
		})

		writeJSON(w, http.StatusAccepted, apitypes.JobResponse{JobID: jobID})
	}
}

func (s *APIServer) importRecords(ctx context.Context, logger *slog.Logger, path, name string) (string, []any, error) {
	logger.Info("Parsing document", "file", name)
	doc, err := parser.Load(path)
	if err != nil {
		return "", nil, err
	}
	recs, err := s.parser.Parse(doc)
	if err != nil {
		return "", nil, err
	}
	logger.Info("Parsed document", "file", name, "pages", len(doc.Pages), "records", len(recs))
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	result, err := s.db.ImportRecords(recs)
	if err != nil {
		return "", nil, err
	}
	if result.Replaced > 0 {
		logger.Info("Replaced existing records", "replaced", result.Replaced, "keptEvaluations", result.KeptEvaluations)
	}
	if result.DroppedAIEvaluations > 0 {
		logger.Warn("Dropped AI evaluations of notes that changed, evaluate them again",
			"dropped", result.DroppedAIEvaluations)
	}
	return fmt.Sprintf("Saved %d records from %s", result.Saved, name),
		[]any{"records", result.Saved, "replaced", result.Replaced, "droppedAIEvaluations", result.DroppedAIEvaluations}, nil
}
