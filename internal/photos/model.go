package photos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Photo is the metadata row of one gallery upload.
type Photo struct {
	ID               string    `gorm:"column:id;primaryKey;size:36"`
	OriginalFilename string    `gorm:"column:original_filename;size:255;not null"`
	UploaderName     *string   `gorm:"column:uploader_name;size:190"`
	Caption          *string   `gorm:"column:caption;type:text"`
	MimeType         string    `gorm:"column:mime_type;size:32;not null"`
	FileSize         int64     `gorm:"column:file_size;not null"`
	Width            *int      `gorm:"column:width"`
	Height           *int      `gorm:"column:height"`
	CreatedAt        time.Time `gorm:"column:created_at;not null;index:ix_photos_created_at;autoCreateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Photo) TableName() string {
	return "photos"
}

// FileName is the name of the stored original.
func (p Photo) FileName() string {
	return fmt.Sprintf("%s.%s", p.ID, extensions[p.MimeType])
}

// FullURL is the public path of the stored original.
func (p Photo) FullURL() string {
	return OriginalsRoute + "/" + p.FileName()
}

// ThumbURL points at the original; no downscaled copy is produced.
func (p Photo) ThumbURL() string {
	return p.FullURL()
}

// OriginalsRoute is the URL prefix under which originals are served.
const OriginalsRoute = "/photos/originals"

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
	"image/heif": "heif",
}

// AllowedMimeType reports whether uploads of the given type are accepted.
func AllowedMimeType(mimeType string) bool {
	_, ok := extensions[mimeType]
	return ok
}

// IDProvider issues photo identifiers.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// Page is one page of the gallery listing.
type Page struct {
	Photos     []Photo
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}
