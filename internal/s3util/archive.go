// Package s3util archives generated images to S3 when an archive bucket is
// configured. Archiving is best-effort: a failed upload never fails the
// generation flow that produced the image.
package s3util

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// GetPresigner is the subset of *s3.PresignClient used to issue pre-signed
// GET URLs, so handlers can be tested without signing credentials.
type GetPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// contentTypeForExt maps saved file extensions to MIME types for upload.
func contentTypeForExt(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// UploadGeneratedImage uploads one decoded image under
// <sessionID>/generated/<filename> and returns the object key.
func UploadGeneratedImage(ctx context.Context, client *s3.Client, bucket, sessionID, filename string, data []byte) (string, error) {
	key := fmt.Sprintf("%s/generated/%s", sessionID, filename)
	contentType := contentTypeForExt(filepath.Ext(filename))

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}

	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Archived generated image")

	return key, nil
}

// ArchiveImages uploads a batch of decoded images, preserving the 1-based
// numbering used on disk. Individual failures are logged and skipped; the
// keys of successful uploads are returned in order.
func ArchiveImages(ctx context.Context, client *s3.Client, bucket, sessionID, prefix string, images [][]byte, exts []string) []string {
	keys := make([]string, 0, len(images))
	for i, data := range images {
		ext := ".png"
		if i < len(exts) {
			ext = exts[i]
		}
		filename := fmt.Sprintf("%s_%d%s", prefix, i+1, ext)
		key, err := UploadGeneratedImage(ctx, client, bucket, sessionID, filename, data)
		if err != nil {
			log.Warn().Err(err).Str("filename", filename).Msg("Archive upload failed, continuing")
			continue
		}
		keys = append(keys, key)
	}

	if len(keys) > 0 {
		log.Info().
			Str("bucket", bucket).
			Str("session_id", sessionID).
			Int("archived", len(keys)).
			Msg("Session images archived to S3")
	}

	return keys
}

// PresignImage creates a pre-signed GET URL for an archived image.
func PresignImage(ctx context.Context, presignClient GetPresigner, bucket, key string, expiry time.Duration) (string, error) {
	result, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}
