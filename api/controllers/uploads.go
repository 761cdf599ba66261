package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/uploads"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	multipartMemory    = 32 << 20
	maxFilesPerRequest = 10
	uploadFilesField   = "files"
	uploadFileField    = "file"
)

// AdminUploadPolicy exposes the limits the dashboard checks before uploading.
func AdminUploadPolicy(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.Policy())
	}
}

// AdminUpload stores the multipart `files` after moderation.
func AdminUpload(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		files, err := readMultipartFiles(w, r, svc.Policy().MaxSizeBytes, uploadFilesField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stored, err := svc.UploadFiles(r.Context(), files)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"files": stored})
	}
}

// StoreFieldUpload accepts one customer file for an images form field.
func StoreFieldUpload(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		fieldID, err := validators.ParseURLUUID(chi.URLParam(r, "fieldId"), "field_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		files, err := readMultipartFiles(w, r, svc.Policy().MaxSizeBytes, uploadFileField, uploadFilesField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(files) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no files uploaded"))
			return
		}
		if len(files) > 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "exactly one file expected"))
			return
		}

		stored, err := svc.UploadFieldFile(r.Context(), fieldID, files[0])
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, stored)
	}
}

// MaxUploadRequestBytes bounds a whole multipart upload request given the
// per-file limit. Zero means unbounded.
func MaxUploadRequestBytes(maxFileBytes int64) int64 {
	if maxFileBytes <= 0 {
		return 0
	}
	return maxFileBytes*maxFilesPerRequest + multipartMemory
}

func readMultipartFiles(w http.ResponseWriter, r *http.Request, maxFileBytes int64, fields ...string) ([]uploads.File, error) {
	if limit := MaxUploadRequestBytes(maxFileBytes); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "no files uploaded")
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	var files []uploads.File
	for _, field := range fields {
		for _, header := range r.MultipartForm.File[field] {
			if len(files) == maxFilesPerRequest {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d files per request", maxFilesPerRequest))
			}
			f, err := header.Open()
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
			}
			files = append(files, uploads.File{Filename: header.Filename, Size: header.Size, Data: data})
		}
	}
	return files, nil
}
