package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wedding-rsvp/backend/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	// DefaultMaxBytes caps a single upload.
	DefaultMaxBytes int64 = 15 << 20
	defaultPerPage        = 20
	maxPerPage            = 100

	// rateLimitLogInterval bounds how often throttled uploads are logged.
	rateLimitLogInterval = time.Minute
)

var (
	ErrRateLimited     = errors.New("photos: upload rate limit exceeded")
	ErrUnsupportedType = errors.New("photos: file type not allowed")
	ErrTooLarge        = errors.New("photos: file too large")
	ErrEmptyUpload     = errors.New("photos: empty upload")
	ErrNotFound        = errors.New("photos: photo not found")
	ErrStorage         = errors.New("photos: storage failure")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingDirectory  = errors.New("photo directory is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries an "operation.reason" code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "photos.service.new"
	opUpload     = "photos.upload"
	opList       = "photos.list"
	opDelete     = "photos.delete"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// Limiter throttles uploads per client address.
type Limiter interface {
	Allow(key string) bool
}

// ServiceConfig wires the gallery dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	Directory  string
	MaxBytes   int64
	Limiter    Limiter
	IDProvider IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
	Metrics    *metrics.Collectors
}

// Service stores gallery uploads on disk and their metadata in the database.
type Service struct {
	db         *gorm.DB
	originals  string
	maxBytes   int64
	limiter    Limiter
	idProvider IDProvider
	clock      func() time.Time
	logger     *zap.Logger
	metrics    *metrics.Collectors
	throttled  *rate.Sometimes
}

// NewService validates the configuration and prepares the originals directory.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if strings.TrimSpace(cfg.Directory) == "" {
		return nil, newServiceError(opServiceNew, "missing_directory", errMissingDirectory)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	originals := filepath.Join(cfg.Directory, "originals")
	if err := os.MkdirAll(originals, 0o755); err != nil {
		return nil, newServiceError(opServiceNew, "directory_create_failed", err)
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		originals:  originals,
		maxBytes:   maxBytes,
		limiter:    cfg.Limiter,
		idProvider: cfg.IDProvider,
		clock:      clock,
		logger:     logger,
		metrics:    cfg.Metrics,
		throttled:  &rate.Sometimes{First: 1, Interval: rateLimitLogInterval},
	}, nil
}

// OriginalsDir is the directory served under OriginalsRoute.
func (s *Service) OriginalsDir() string {
	return s.originals
}

// MaxBytes is the upload size cap.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// UploadInput describes one multipart upload.
type UploadInput struct {
	ClientIP     string
	Filename     string
	ContentType  string
	UploaderName string
	Caption      string
	Body         io.Reader
}

// Upload validates and stores one photo. The rate limit is consumed before
// any other check so rejected uploads still count.
func (s *Service) Upload(ctx context.Context, input UploadInput) (Photo, error) {
	if s.limiter != nil && !s.limiter.Allow(input.ClientIP) {
		s.metrics.PhotoUpload("rate_limited")
		s.throttled.Do(func() {
			s.loggerOrDefault().Warn("photo upload rate limited", zap.String("client_ip", input.ClientIP))
		})
		return Photo{}, newServiceError(opUpload, "rate_limited", ErrRateLimited)
	}

	payload, err := s.readUpload(input)
	if err != nil {
		s.metrics.PhotoUpload("rejected")
		return Photo{}, err
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opUpload, "id_generation_failed", err)
		return Photo{}, newServiceError(opUpload, "id_generation_failed", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	photo := Photo{
		ID:               id,
		OriginalFilename: originalFilename(input.Filename),
		UploaderName:     optionalText(input.UploaderName),
		Caption:          optionalText(input.Caption),
		MimeType:         input.ContentType,
		FileSize:         int64(len(payload)),
		CreatedAt:        s.clock().UTC(),
	}
	if config, _, err := image.DecodeConfig(bytes.NewReader(payload)); err == nil {
		width, height := config.Width, config.Height
		photo.Width = &width
		photo.Height = &height
	}

	path := filepath.Join(s.originals, photo.FileName())
	if err := writeFileAtomic(path, payload); err != nil {
		s.logError(opUpload, "file_write_failed", err, zap.String("photo_id", id))
		return Photo{}, newServiceError(opUpload, "file_write_failed", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	if err := s.db.WithContext(ctx).Create(&photo).Error; err != nil {
		_ = os.Remove(path)
		s.logError(opUpload, "photo_insert_failed", err, zap.String("photo_id", id))
		return Photo{}, newServiceError(opUpload, "photo_insert_failed", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	s.metrics.PhotoUpload("accepted")
	return photo, nil
}

// ListQuery selects one page of the gallery.
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
}

// List returns photos newest first. Search matches uploader name or caption
// case-insensitively.
func (s *Service) List(ctx context.Context, query ListQuery) (Page, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	base := s.db.WithContext(ctx).Model(&Photo{})
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		base = base.Where("LOWER(uploader_name) LIKE ? OR LOWER(caption) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		s.logError(opList, "count_failed", err)
		return Page{}, newServiceError(opList, "count_failed", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	photos := make([]Photo, 0, perPage)
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&photos).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return Page{}, newServiceError(opList, "query_failed", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	totalPages := 1
	if total > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Page{Photos: photos, Total: total, Page: page, PerPage: perPage, TotalPages: totalPages}, nil
}

// Delete removes the metadata row and the stored original.
func (s *Service) Delete(ctx context.Context, id string) error {
	var photo Photo
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(opDelete, "photo_not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opDelete, "photo_select_failed", err, zap.String("photo_id", id))
		return newServiceError(opDelete, "photo_select_failed", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	if err := s.db.WithContext(ctx).Delete(&photo).Error; err != nil {
		s.logError(opDelete, "photo_delete_failed", err, zap.String("photo_id", id))
		return newServiceError(opDelete, "photo_delete_failed", fmt.Errorf("%w: %w", ErrStorage, err))
	}
	if err := os.Remove(filepath.Join(s.originals, photo.FileName())); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.loggerOrDefault().Warn("photo file removal failed",
			zap.String("photo_id", id),
			zap.Error(err))
	}
	return nil
}

func (s *Service) readUpload(input UploadInput) ([]byte, error) {
	if !AllowedMimeType(input.ContentType) {
		return nil, newServiceError(opUpload, "unsupported_type", fmt.Errorf("%w: %q", ErrUnsupportedType, input.ContentType))
	}
	if input.Body == nil {
		return nil, newServiceError(opUpload, "empty_upload", ErrEmptyUpload)
	}
	payload, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, newServiceError(opUpload, "read_failed", err)
	}
	if int64(len(payload)) > s.maxBytes {
		return nil, newServiceError(opUpload, "too_large", ErrTooLarge)
	}
	if len(payload) == 0 {
		return nil, newServiceError(opUpload, "empty_upload", ErrEmptyUpload)
	}
	return payload, nil
}

func writeFileAtomic(path string, payload []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func originalFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "unknown"
	}
	return name
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("photos service error", attrs...)
}
