package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tendant/photodrop/pkg/photodrop"
)

type mockUploader struct {
	mock.Mock
	body string
}

func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if input.Body != nil {
		data, _ := io.ReadAll(input.Body)
		m.body = string(data)
	}
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*manager.UploadOutput)
	return out, args.Error(1)
}

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(context.Background(), Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		backend, err := New(context.Background(), Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, "test-bucket", backend.bucket)
	})
}

func TestS3Backend_UploadWithParams(t *testing.T) {
	up := &mockUploader{}
	backend := &Backend{uploader: up, bucket: "photos"}

	up.On("Upload", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "photos" &&
			aws.ToString(in.Key) == "events/evt/1_a_photo.jpg" &&
			aws.ToString(in.ContentType) == "image/jpeg" &&
			in.Metadata["event-id"] == "evt"
	})).Return(&manager.UploadOutput{}, nil).Once()

	err := backend.UploadWithParams(context.Background(), strings.NewReader("jpeg bytes"), photodrop.UploadParams{
		ObjectKey: "events/evt/1_a_photo.jpg",
		MimeType:  "image/jpeg",
		Metadata:  map[string]string{"event-id": "evt"},
	})
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", up.body)
	up.AssertExpectations(t)
}

func TestS3Backend_UploadError(t *testing.T) {
	up := &mockUploader{}
	backend := &Backend{uploader: up, bucket: "photos"}
	up.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	err := backend.UploadWithParams(context.Background(), strings.NewReader("x"), photodrop.UploadParams{ObjectKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload to S3")
}

func TestS3Backend_ServerSideEncryption(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		algorithm types.ServerSideEncryption
		kmsKeyID  string
	}{
		{"disabled", Config{}, "", ""},
		{"AES256", Config{EnableSSE: true, SSEAlgorithm: "AES256"}, types.ServerSideEncryptionAes256, ""},
		{"KMS", Config{EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "key-1"}, types.ServerSideEncryptionAwsKms, "key-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &Backend{bucket: "photos", config: tt.config}
			input := backend.putObjectInput(strings.NewReader(""), photodrop.UploadParams{ObjectKey: "k"})
			assert.Equal(t, tt.algorithm, input.ServerSideEncryption)
			assert.Equal(t, tt.kmsKeyID, aws.ToString(input.SSEKMSKeyId))
			assert.Nil(t, input.ContentType)
		})
	}
}
