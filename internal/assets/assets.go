// Package assets issues presigned S3 upload URLs for store item images.
package assets

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	appErrors "awsugmdu-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Presigner is the part of *s3.PresignClient used here.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Upload is a presigned PUT the browser uses to upload an image directly.
type Upload struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectURL string    `json:"objectUrl"`
	Key       string    `json:"key"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ImageUploads presigns uploads into the store assets bucket.
type ImageUploads struct {
	presigner Presigner
	bucket    string
	region    string
	ttl       time.Duration
	now       func() time.Time
}

// NewImageUploads returns an uploader; an empty bucket disables uploads.
func NewImageUploads(presigner Presigner, bucket, region string, ttl time.Duration) *ImageUploads {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ImageUploads{presigner: presigner, bucket: bucket, region: region, ttl: ttl, now: time.Now}
}

// Enabled reports whether a bucket is configured.
func (u *ImageUploads) Enabled() bool { return u != nil && u.bucket != "" && u.presigner != nil }

// PresignItemImage returns an upload for store-items/{itemID}/{uuid}.{ext}.
func (u *ImageUploads) PresignItemImage(ctx context.Context, itemID, contentType string) (*Upload, error) {
	if !u.Enabled() {
		return nil, appErrors.NewInternal("image uploads are not configured", nil)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, appErrors.NewValidation("contentType must be one of image/png, image/jpeg, image/gif, image/webp")
	}

	key := fmt.Sprintf("store-items/%s/%s.%s", itemID, uuid.NewString(), ext)
	req, err := u.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(u.ttl))
	if err != nil {
		return nil, appErrors.NewInternal("failed to presign upload", err)
	}

	return &Upload{
		UploadURL: req.URL,
		ObjectURL: u.objectURL(key),
		Key:       key,
		Method:    req.Method,
		ExpiresAt: u.now().Add(u.ttl).UTC(),
	}, nil
}

func (u *ImageUploads) objectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, escaped)
}
