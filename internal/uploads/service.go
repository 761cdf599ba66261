package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/internal/moderation"
	"github.com/angelmondragon/storefront-backend/internal/productforms"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/storage/gcs"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type objectStore interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (*gcs.Object, error)
	Delete(ctx context.Context, objectName string) error
}

type imageModerator interface {
	Check(ctx context.Context, data []byte, mimeType string) (moderation.Result, error)
	Enabled() bool
}

type fieldValidator interface {
	ValidateUpload(ctx context.Context, fieldID uuid.UUID, upload productforms.Upload) (*models.ProductFormField, error)
}

// Service validates, moderates and stores uploaded files.
type Service interface {
	Policy() Policy
	UploadFiles(ctx context.Context, files []File) ([]StoredFile, error)
	UploadFieldFile(ctx context.Context, fieldID uuid.UUID, file File) (*StoredFile, error)
}

// File is one multipart part read into memory.
type File struct {
	Filename string
	Size     int64
	Data     []byte
}

type StoredFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type Policy struct {
	MaxSizeBytes      int64    `json:"max_size_bytes"`
	AllowedMimeTypes  []string `json:"allowed_mime_types"`
	ModerationEnabled bool     `json:"moderation_enabled"`
}

type service struct {
	store     objectStore
	moderator imageModerator
	forms     fieldValidator
	publisher events.Publisher
	logg      *logger.Logger
	prefix    string
	maxBytes  int64
	allowed   []string
}

func NewService(store objectStore, moderator imageModerator, forms fieldValidator, publisher events.Publisher, cfg config.UploadConfig, prefix string, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if moderator == nil {
		return nil, fmt.Errorf("moderator required")
	}
	if forms == nil {
		return nil, fmt.Errorf("form validator required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	allowed := make([]string, 0, len(cfg.AllowedMimeTypes))
	for _, m := range cfg.AllowedMimeTypes {
		if trimmed := strings.ToLower(strings.TrimSpace(m)); trimmed != "" {
			allowed = append(allowed, trimmed)
		}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("at least one allowed mime type required")
	}
	return &service{
		store:     store,
		moderator: moderator,
		forms:     forms,
		publisher: publisher,
		logg:      logg,
		prefix:    strings.Trim(strings.TrimSpace(prefix), "/"),
		maxBytes:  cfg.MaxBytes(),
		allowed:   allowed,
	}, nil
}

func (s *service) Policy() Policy {
	return Policy{
		MaxSizeBytes:      s.maxBytes,
		AllowedMimeTypes:  append([]string(nil), s.allowed...),
		ModerationEnabled: s.moderator.Enabled(),
	}
}

type checkedFile struct {
	File
	id       string
	mimeType string
}

func (s *service) UploadFiles(ctx context.Context, files []File) ([]StoredFile, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files uploaded")
	}

	checked := make([]checkedFile, 0, len(files))
	for _, f := range files {
		c, err := s.check(ctx, f)
		if err != nil {
			return nil, err
		}
		checked = append(checked, c)
	}

	stored := make([]StoredFile, 0, len(checked))
	for _, c := range checked {
		out, err := s.put(ctx, c)
		if err != nil {
			s.cleanup(ctx, stored)
			return nil, err
		}
		stored = append(stored, *out)
	}

	evts := make([]events.Event, 0, len(stored))
	for _, f := range stored {
		evts = append(evts, uploadEvent(f, ""))
	}
	events.PublishAll(ctx, s.publisher, s.logg, evts...)
	return stored, nil
}

func (s *service) UploadFieldFile(ctx context.Context, fieldID uuid.UUID, file File) (*StoredFile, error) {
	if len(file.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files uploaded")
	}
	c, err := s.check(ctx, file)
	if err != nil {
		return nil, err
	}
	if _, err := s.forms.ValidateUpload(ctx, fieldID, productforms.Upload{
		Filename:    file.Filename,
		ContentType: c.mimeType,
		Size:        c.Size,
		Data:        c.Data,
	}); err != nil {
		return nil, err
	}

	out, err := s.put(ctx, c)
	if err != nil {
		return nil, err
	}
	events.PublishAll(ctx, s.publisher, s.logg, uploadEvent(*out, fieldID.String()))
	return out, nil
}

// check enforces size and sniffed mime type, then moderates images.
func (s *service) check(ctx context.Context, f File) (checkedFile, error) {
	size := int64(len(f.Data))
	if size == 0 {
		return checkedFile{}, pkgerrors.New(pkgerrors.CodeValidation, "file is empty").
			WithDetails(map[string]any{"filename": f.Filename})
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return checkedFile{}, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds maximum upload size").
			WithDetails(map[string]any{"filename": f.Filename, "max_size_bytes": s.maxBytes})
	}

	detected := mimetype.Detect(f.Data)
	if !mimetype.EqualsAny(detected.String(), s.allowed...) {
		return checkedFile{}, pkgerrors.New(pkgerrors.CodeValidation, "file type not allowed").
			WithDetails(map[string]any{"filename": f.Filename, "mime_type": detected.String()})
	}
	mimeType := strings.SplitN(detected.String(), ";", 2)[0]

	result, err := s.moderator.Check(ctx, f.Data, mimeType)
	if err != nil {
		return checkedFile{}, err
	}
	if !result.Decision.Allows() {
		return checkedFile{}, pkgerrors.New(pkgerrors.CodeValidation, "image rejected by moderation").
			WithDetails(map[string]any{"filename": f.Filename, "categories": result.Categories})
	}

	f.Size = size
	return checkedFile{File: f, id: uuid.NewString(), mimeType: mimeType}, nil
}

func (s *service) put(ctx context.Context, c checkedFile) (*StoredFile, error) {
	name := sanitizeFilename(c.Filename, c.mimeType)
	object := path.Join(s.prefix, c.id, name)
	obj, err := s.store.Upload(ctx, object, c.mimeType, bytes.NewReader(c.Data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store uploaded file")
	}
	return &StoredFile{
		ID:       c.id,
		Name:     name,
		URL:      obj.URL,
		MimeType: c.mimeType,
		Size:     c.Size,
	}, nil
}

func (s *service) cleanup(ctx context.Context, stored []StoredFile) {
	var errs error
	for _, f := range stored {
		errs = multierr.Append(errs, s.store.Delete(ctx, path.Join(s.prefix, f.ID, f.Name)))
	}
	if errs != nil && s.logg != nil {
		s.logg.Error(ctx, "cleanup of partially stored upload failed", errs)
	}
}

func uploadEvent(f StoredFile, fieldID string) events.Event {
	data := map[string]any{
		"file_id":   f.ID,
		"url":       f.URL,
		"mime_type": f.MimeType,
		"size":      f.Size,
	}
	if fieldID != "" {
		data["field_id"] = fieldID
	}
	return events.Event{Type: events.TypeUploadCreated, AggregateID: f.ID, Data: data}
}

// sanitizeFilename keeps a lowercase ASCII base name safe for object paths.
func sanitizeFilename(name, mimeType string) string {
	base := strings.ToLower(path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")))
	var b strings.Builder
	lastDash := false
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	cleaned := strings.Trim(strings.ReplaceAll(b.String(), "-.", "."), "-.")
	if cleaned == "" {
		cleaned = "file"
		if ext := mimetype.Lookup(mimeType); ext != nil {
			cleaned += ext.Extension()
		}
	}
	return cleaned
}
