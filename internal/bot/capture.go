package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DownloadTimeout bounds a single Telegram file download.
	DownloadTimeout = 30 * time.Second
	// MaxImageSize is the largest image accepted for analysis (10MB).
	MaxImageSize = 10 * 1024 * 1024
)

// CapturedImage is the single image owned by a workflow until it is submitted
// for analysis. The preview path is a locally dereferenceable handle that
// stays valid until Release is called (on reset or replacement).
type CapturedImage struct {
	Data        []byte
	MimeType    string
	FileName    string
	previewPath string
}

// PreviewPath returns the local preview handle, or "" after release.
func (c *CapturedImage) PreviewPath() string {
	return c.previewPath
}

// Release frees the local preview handle. Safe to call more than once.
func (c *CapturedImage) Release() {
	if c.previewPath == "" {
		return
	}
	if err := os.Remove(c.previewPath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", c.previewPath).Msg("failed to remove preview file")
	}
	c.previewPath = ""
}

// imageInput is a candidate image attachment extracted from a message, before
// its bytes have been downloaded.
type imageInput struct {
	fileID   string
	mimeType string
	fileName string
}

// imageFromMessage returns the image attachment of a message, or nil when the
// message carries none. Two acquisition paths are supported and treated
// identically afterwards: photo messages (camera captures, always JPEG) and
// document attachments (file picker). Documents whose declared MIME type is
// not image/* yield nil: silently ignored, never an error.
func imageFromMessage(message *tgbotapi.Message) *imageInput {
	if len(message.Photo) > 0 {
		// message.Photo lists sizes in ascending order; take the largest
		largest := message.Photo[len(message.Photo)-1]
		return &imageInput{
			fileID:   largest.FileID,
			mimeType: "image/jpeg",
			fileName: "photo.jpg",
		}
	}

	if doc := message.Document; doc != nil {
		if !strings.HasPrefix(doc.MimeType, "image/") {
			log.Debug().Str("mimeType", doc.MimeType).Str("fileName", doc.FileName).
				Msg("ignoring non-image document")
			return nil
		}
		name := doc.FileName
		if name == "" {
			name = "image"
		}
		return &imageInput{
			fileID:   doc.FileID,
			mimeType: doc.MimeType,
			fileName: name,
		}
	}

	return nil
}

// captureImage downloads the attachment's bytes and materializes a
// CapturedImage with a local preview handle. A download whose sniffed content
// turns out not to be an image is rejected the same way as a non-image
// document: nil result, no error surfaced to the user.
func captureImage(ctx context.Context, getFileDirectURL func(fileID string) (string, error), input *imageInput) (*CapturedImage, error) {
	url, err := getFileDirectURL(input.fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file URL: %w", err)
	}

	data, err := downloadFile(ctx, url)
	if err != nil {
		return nil, err
	}

	mimeType := input.mimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		log.Debug().Str("mimeType", mimeType).Msg("downloaded file is not an image, ignoring")
		return nil, nil
	}

	previewPath, err := writePreviewFile(data, input.fileName)
	if err != nil {
		return nil, err
	}

	return &CapturedImage{
		Data:        data,
		MimeType:    mimeType,
		FileName:    input.fileName,
		previewPath: previewPath,
	}, nil
}

func downloadFile(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	if int64(len(data)) > MaxImageSize {
		return nil, fmt.Errorf("image too large: exceeds limit of %d bytes", MaxImageSize)
	}

	return data, nil
}

// writePreviewFile writes the image bytes to a uniquely named temp file.
// Unique names mean re-selecting the same underlying file after a reset never
// collides with a stale handle.
func writePreviewFile(data []byte, fileName string) (string, error) {
	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = ".img"
	}
	path := filepath.Join(os.TempDir(), "haggle-preview-"+uuid.New().String()+ext)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write preview file: %w", err)
	}
	return path, nil
}
