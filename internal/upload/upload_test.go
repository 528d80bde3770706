package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89\x00\x00\x00\rIDATx\x9cc\x00\x01\x00\x00\x05\x00\x01\r\n-\xb4\x00\x00\x00\x00IEND\xaeB`\x82")

// MockPutObjectAPI is a mock implementation of PutObjectAPI.
type MockPutObjectAPI struct {
	mock.Mock
}

func (m *MockPutObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

// mockUploader is a function-backed Uploader for testing.
type mockUploader struct {
	uploadFunc func(ctx context.Context, img Image) (Result, error)
	calls      int
}

func (m *mockUploader) Upload(ctx context.Context, img Image) (Result, error) {
	m.calls++
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, img)
	}
	return Result{}, errors.New("not implemented")
}

func TestImage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		img     Image
		wantErr error
		wantCT  string
	}{
		{name: "png sniffed", img: Image{Name: "a.png", Data: pngBytes}, wantCT: "image/png"},
		{name: "declared with params", img: Image{Name: "a.png", ContentType: "image/png; charset=binary", Data: pngBytes}, wantCT: "image/png"},
		{name: "empty", img: Image{Name: "a.png"}, wantErr: ErrEmptyImage},
		{name: "text", img: Image{Name: "a.txt", Data: []byte("hello world")}, wantErr: ErrUnsupportedImage},
		{name: "too large", img: Image{Name: "big.png", ContentType: "image/png", Data: make([]byte, MaxImageSize+1)}, wantErr: ErrImageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := tt.img
			err := img.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCT, img.ContentType)
		})
	}
}

func TestS3Uploader_Upload(t *testing.T) {
	client := new(MockPutObjectAPI)
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "kart-images" &&
			strings.HasPrefix(aws.ToString(in.Key), "products/") &&
			strings.HasSuffix(aws.ToString(in.Key), ".png") &&
			aws.ToString(in.ContentType) == "image/png"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	u := NewS3UploaderWithClient(client, S3Options{Bucket: "kart-images", Region: "ap-southeast-1", Prefix: "products/"}, zerolog.Nop())

	res, err := u.Upload(context.Background(), Image{Name: "cover.PNG", Data: pngBytes})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.URL, "https://kart-images.s3.ap-southeast-1.amazonaws.com/products/"))
	assert.Equal(t, res.Key, strings.TrimPrefix(res.URL, "https://kart-images.s3.ap-southeast-1.amazonaws.com/"))
	client.AssertExpectations(t)
}

func TestS3Uploader_PublicBaseURL(t *testing.T) {
	client := new(MockPutObjectAPI)
	client.On("PutObject", mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)

	u := NewS3UploaderWithClient(client, S3Options{Bucket: "b", Region: "r", PublicBaseURL: "https://cdn.example.com/"}, zerolog.Nop())

	res, err := u.Upload(context.Background(), Image{Name: "x.png", Data: pngBytes})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.URL, "https://cdn.example.com/"))
	assert.False(t, strings.Contains(strings.TrimPrefix(res.URL, "https://"), "//"))
}

func TestS3Uploader_PutObjectFails(t *testing.T) {
	client := new(MockPutObjectAPI)
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	u := NewS3UploaderWithClient(client, S3Options{Bucket: "b", Region: "r"}, zerolog.Nop())

	_, err := u.Upload(context.Background(), Image{Name: "x.png", Data: pngBytes})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Uploader_RejectsInvalidImageWithoutCallingS3(t *testing.T) {
	client := new(MockPutObjectAPI)
	u := NewS3UploaderWithClient(client, S3Options{Bucket: "b", Region: "r"}, zerolog.Nop())

	_, err := u.Upload(context.Background(), Image{Name: "x.txt", Data: []byte("plain text")})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestLocalUploader_Upload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u, err := NewLocalUploader(dir, "http://localhost:8080/uploads", zerolog.Nop())
	require.NoError(t, err)

	res, err := u.Upload(context.Background(), Image{Name: "avatar.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/"+res.Key, res.URL)

	f, err := os.Open(filepath.Join(dir, res.Key))
	require.NoError(t, err)
	defer f.Close()
	stored, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)
}

func TestFallbackUploader_PrimarySuccess(t *testing.T) {
	primary := &mockUploader{uploadFunc: func(ctx context.Context, img Image) (Result, error) {
		return Result{URL: "https://s3/x.png"}, nil
	}}
	secondary := &mockUploader{uploadFunc: func(ctx context.Context, img Image) (Result, error) {
		t.Error("secondary should not be called when primary succeeds")
		return Result{}, errors.New("should not be called")
	}}

	res, err := NewFallbackUploader(primary, secondary, zerolog.Nop()).Upload(context.Background(), Image{Name: "x.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "https://s3/x.png", res.URL)
}

func TestFallbackUploader_PrimaryFailsFallsBack(t *testing.T) {
	primary := &mockUploader{uploadFunc: func(ctx context.Context, img Image) (Result, error) {
		return Result{}, errors.New("S3 connection failed")
	}}
	secondary := &mockUploader{uploadFunc: func(ctx context.Context, img Image) (Result, error) {
		assert.Equal(t, pngBytes, img.Data, "fallback receives the full body")
		return Result{URL: "http://localhost/uploads/x.png"}, nil
	}}

	res, err := NewFallbackUploader(primary, secondary, zerolog.Nop()).Upload(context.Background(), Image{Name: "x.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/uploads/x.png", res.URL)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackUploader_InvalidImageIsNotRetried(t *testing.T) {
	primary := &mockUploader{uploadFunc: func(ctx context.Context, img Image) (Result, error) {
		return Result{}, ErrUnsupportedImage
	}}
	secondary := &mockUploader{}

	_, err := NewFallbackUploader(primary, secondary, zerolog.Nop()).Upload(context.Background(), Image{Name: "x.txt", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Equal(t, 0, secondary.calls)
}

func TestFallbackUploader_NilPrimary(t *testing.T) {
	secondary := &mockUploader{uploadFunc: func(ctx context.Context, img Image) (Result, error) {
		return Result{URL: "local"}, nil
	}}

	res, err := NewFallbackUploader(nil, secondary, zerolog.Nop()).Upload(context.Background(), Image{Name: "x.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "local", res.URL)
}
