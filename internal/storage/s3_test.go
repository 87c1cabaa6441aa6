package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, f.err
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, f.err
}

func TestUploadProfileImage(t *testing.T) {
	client := &fakeS3{}
	images := NewProfileImages(client, "bloodlink-images", "https://cdn.example.com/")

	key, url, err := images.Upload(context.Background(), "donor-1", "image/png", strings.NewReader("png"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "donors/donor-1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+key, url)

	require.Len(t, client.puts, 1)
	assert.Equal(t, "bloodlink-images", aws.ToString(client.puts[0].Bucket))
	assert.Equal(t, "image/png", aws.ToString(client.puts[0].ContentType))
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	client := &fakeS3{}
	images := NewProfileImages(client, "b", "")

	_, _, err := images.Upload(context.Background(), "donor-1", "application/pdf", strings.NewReader("%PDF"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Empty(t, client.puts)
}

func TestUploadFailure(t *testing.T) {
	images := NewProfileImages(&fakeS3{err: errors.New("access denied")}, "b", "")

	_, _, err := images.Upload(context.Background(), "donor-1", "image/jpeg", strings.NewReader("jpg"))
	assert.Error(t, err)
}

func TestDeleteOnlyOwnImages(t *testing.T) {
	client := &fakeS3{}
	images := NewProfileImages(client, "b", "")

	require.NoError(t, images.Delete(context.Background(), "https://elsewhere.example.com/a.png"))
	require.NoError(t, images.Delete(context.Background(), "https://b.s3.amazonaws.com/donors/d/x.png"))

	assert.Equal(t, []string{"donors/d/x.png"}, client.deletes)
}
