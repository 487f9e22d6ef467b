package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"it-inventory-api/internal/auth"
	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/models"
	"it-inventory-api/pkg/importer"
)

// ImportService is the part of the inventory service the import and
// export endpoints use
type ImportService interface {
	ImportAssets(ctx context.Context, actor inventory.Actor, r io.Reader, f importer.Format, opts importer.ImportOptions) (importer.ImportSummary, error)
	ImportEmployees(ctx context.Context, actor inventory.Actor, r io.Reader, f importer.Format, opts importer.ImportOptions) (importer.ImportSummary, error)
	ExportAssets(ctx context.Context, w io.Writer, f importer.Format) error
	ExportEmployees(ctx context.Context, w io.Writer, f importer.Format) error
	Today() models.Date
}

// ImportsHandler handles CSV and XLSX import and export
type ImportsHandler struct {
	Service   ImportService
	MaxBytes  int64
	MaxErrors int
	Log       logrus.FieldLogger
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(svc ImportService, maxBytes int64, maxErrors int, log logrus.FieldLogger) *ImportsHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20 // 10 MB
	}
	return &ImportsHandler{
		Service:   svc,
		MaxBytes:  maxBytes,
		MaxErrors: maxErrors,
		Log:       log,
	}
}

type importFunc func(ctx context.Context, actor inventory.Actor, r io.Reader, f importer.Format, opts importer.ImportOptions) (importer.ImportSummary, error)

// ImportAssets handles POST /import/assets
func (h *ImportsHandler) ImportAssets(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.Service.ImportAssets)
}

// ImportEmployees handles POST /import/employees
func (h *ImportsHandler) ImportEmployees(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.Service.ImportEmployees)
}

func (h *ImportsHandler) upload(w http.ResponseWriter, r *http.Request, run importFunc) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		BadRequest(w, "content-type must be multipart/form-data")
		return
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			auth.SendErrorResponse(w, fmt.Sprintf("file exceeds %d bytes", h.MaxBytes), "FILE_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}
		BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	format, err := importer.FormatFromFilename(header.Filename)
	if err != nil {
		BadRequest(w, "File must be a CSV or XLSX spreadsheet")
		return
	}

	opts := importer.ImportOptions{
		DryRun:    formBool(r, "dry_run"),
		MaxErrors: h.MaxErrors,
	}
	if v := formValue(r, "max_errors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxErrors = n
		}
	}

	actor := inventory.Actor{UserID: auth.UserIDFromContext(r.Context())}
	sum, err := run(r.Context(), actor, file, format, opts)
	if err != nil {
		WriteError(w, r, h.Log, err)
		return
	}
	WriteJSON(w, http.StatusOK, sum)
}

// ExportAssets handles GET /export/assets?format=csv|xlsx
func (h *ImportsHandler) ExportAssets(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "assets_export_"+h.Service.Today().String(), h.Service.ExportAssets)
}

// ExportEmployees handles GET /export/employees?format=csv|xlsx
func (h *ImportsHandler) ExportEmployees(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "employees_export_"+h.Service.Today().String(), h.Service.ExportEmployees)
}

// AssetTemplate handles GET /export/asset-template
func (h *ImportsHandler) AssetTemplate(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "asset_import_template", func(_ context.Context, w io.Writer, f importer.Format) error {
		return importer.WriteAssetTemplate(w, f)
	})
}

// download renders into a buffer first so a failure can still be reported
// as a JSON error instead of a truncated file.
func (h *ImportsHandler) download(w http.ResponseWriter, r *http.Request, name string, render func(ctx context.Context, w io.Writer, f importer.Format) error) {
	format, err := importer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := render(r.Context(), &buf, format); err != nil {
		WriteError(w, r, h.Log, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", name, format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// formValue reads a multipart field or query parameter
func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

func formBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(formValue(r, key))
	return err == nil && v
}
