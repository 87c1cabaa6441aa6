package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"bloodlink/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var ErrUnsupportedImage = errors.New("unsupported image type")

// ProfileImages stores donor profile photos in an S3 bucket.
type ProfileImages struct {
	client        objectAPI
	bucket        string
	publicBaseURL string
}

func NewProfileImages(client objectAPI, bucket, publicBaseURL string) *ProfileImages {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}

	return &ProfileImages{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (p *ProfileImages) Configured() bool {
	return p != nil && p.client != nil && p.bucket != ""
}

// Upload writes the image under a fresh key for the donor and returns the
// key and its public URL.
func (p *ProfileImages) Upload(ctx context.Context, donorID, contentType string, body io.Reader) (key, url string, err error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	key = path.Join("donors", donorID, utils.NanoIDSize(16)+ext)

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload profile image: %w", err)
	}

	return key, p.PublicURL(key), nil
}

// Delete removes an image previously returned by Upload. URLs outside this
// bucket are ignored.
func (p *ProfileImages) Delete(ctx context.Context, imageURL string) error {
	key, ok := strings.CutPrefix(imageURL, p.publicBaseURL+"/")
	if !ok || key == "" {
		return nil
	}

	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete profile image: %w", err)
	}

	return nil
}

func (p *ProfileImages) PublicURL(key string) string {
	return p.publicBaseURL + "/" + key
}
