// Package media stores uploaded images and videos.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/deemkeen/reblog/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const UploadsPath = "/uploads"

var ErrUnsupportedMedia = domain.NewValidationError(domain.ReasonInvalidInput, "Only image and video files are allowed")

type Storage interface {
	Upload(ctx context.Context, name string, data []byte) (url string, err error)
}

// Detect sniffs data and returns its mime type and media kind.
func Detect(data []byte) (string, domain.PostKind, error) {
	mtype := mimetype.Detect(data)
	mime := mtype.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	switch {
	case strings.HasPrefix(mime, "image/"):
		return mime, domain.KindImage, nil
	case strings.HasPrefix(mime, "video/"):
		return mime, domain.KindVideo, nil
	}
	return mime, "", ErrUnsupportedMedia
}

// DiskStorage writes uploads into a directory served under /uploads.
type DiskStorage struct {
	dir        string
	publicBase string
}

func NewDiskStorage(dir, publicBase string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &DiskStorage{dir: dir, publicBase: strings.TrimSuffix(publicBase, "/")}, nil
}

func (s *DiskStorage) Dir() string {
	return s.dir
}

func (s *DiskStorage) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, _, err := Detect(data); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = mimetype.Detect(data).Extension()
	}
	fileName := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0644); err != nil {
		return "", fmt.Errorf("saving upload: %w", err)
	}

	return s.publicBase + UploadsPath + "/" + fileName, nil
}

// Upload is the result of UploadWithFallback.
type Upload struct {
	File     domain.MediaFile
	Fallback bool
}

// UploadWithFallback stores data and, when storage is missing or fails,
// inlines it as a data: URL instead. Only unsupported content is an error.
func UploadWithFallback(ctx context.Context, storage Storage, name string, data []byte) (Upload, error) {
	mime, kind, err := Detect(data)
	if err != nil {
		return Upload{}, err
	}
	file := domain.MediaFile{Kind: string(kind), OriginalName: name}

	if storage != nil {
		url, err := storage.Upload(ctx, name, data)
		if err == nil {
			file.Url = url
			return Upload{File: file}, nil
		}
		if errors.Is(err, ErrUnsupportedMedia) {
			return Upload{}, err
		}
		slog.Warn("upload storage failed, inlining media", slog.String("name", name), slog.Any("error", err))
	}

	file.Url = DataURL(mime, data)
	return Upload{File: file, Fallback: true}, nil
}

func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
