package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/gabriel-vasile/mimetype"
)

var (
	errNoRecords = fmt.Errorf("%w: records must not be empty", errInvalidRequest)
	errNoFile    = fmt.Errorf("%w: no file provided", errInvalidRequest)
	errContent   = fmt.Errorf("%w: unsupported file content", errInvalidRequest)
)

// multipartSlack is the allowance for multipart framing around the file
// part. The file itself is held to Import.MaxFileSize.
const multipartSlack = 1 << 20

// uploadTypes are the detected content types accepted by handleUploadFile.
// CSV and JSON sniff as text, XLSX as a zip archive.
var uploadTypes = []string{"text/plain", "application/zip"}

// checkContent rejects binary uploads that no decoder can read, whatever
// their file name says.
func checkContent(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for _, t := range uploadTypes {
			if m.Is(t) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w %s", errContent, detected.String())
}

type importRecordPayload struct {
	Code        string  `json:"code" validate:"required,max=255"`
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitnil,max=1024"`
	RowNumber   *int    `json:"rowNumber" validate:"omitnil,min=1"`
}

type importRequest struct {
	SourceFilename *string               `json:"sourceFilename" validate:"omitnil,max=255"`
	Records        []importRecordPayload `json:"records" validate:"dive"`
}

func (req importRequest) records() []core.ImportRecord {
	records := make([]core.ImportRecord, len(req.Records))
	for i, p := range req.Records {
		records[i] = core.ImportRecord{
			Code:        p.Code,
			Name:        p.Name,
			Description: p.Description,
			RowNumber:   p.RowNumber,
		}
	}
	return records
}

type regionPage struct {
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
	Items    []core.Region `json:"items"`
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmitImport imports a JSON batch of region records.
func (s *Server) handleSubmitImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if len(req.Records) == 0 {
		respondError(w, r, errNoRecords)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	summary, err := s.service.ImportRegions(ctx, req.SourceFilename, req.records())
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, summary)
}

// handleListImports returns one page of import history, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	history, err := s.service.ListJobs(r.Context(), page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, history)
}

// handleUploadFile imports an uploaded CSV, JSON or XLSX file.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartSlack)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, r, fmt.Errorf("%w: %w", errFileTooLarge, err))
		} else {
			respondError(w, r, fmt.Errorf("%w: multipart form: %v", errInvalidRequest, err))
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > maxSize {
		respondError(w, r, fmt.Errorf("%w: %s exceeds %d bytes", errFileTooLarge, header.Filename, maxSize))
		return
	}
	if err := checkContent(data); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.ImportFile(ctx, header.Filename, string(data))
	if errors.Is(err, core.ErrEmptyBatch) {
		respondRejected(w, r, err, result)
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, result)
}

// handleListRegions returns stored regions ordered by code.
func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	regions, err := s.service.ListRegions(r.Context(), page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, regionPage{Page: page, PageSize: pageSize, Items: regions})
}
