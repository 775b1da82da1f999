package recordings

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDAndValidate(t *testing.T) {
	id := NewID("Visit Memo.M4A")
	assert.True(t, strings.HasSuffix(id, ".m4a"), id)
	assert.NoError(t, ValidateID(id))

	assert.True(t, strings.HasSuffix(NewID("voice.amr"), ".mp3"))

	for _, bad := range []string{"", "../etc/passwd", "abc.mp3", "0b9c3e8a-6a4c-4d7c-9a55-1f0b6f0d9d11", "0b9c3e8a-6a4c-4d7c-9a55-1f0b6f0d9d11.txt", "0b9c3e8a-6a4c-4d7c-9a55-1f0b6f0d9d11.MP3"} {
		assert.ErrorIs(t, ValidateID(bad), ErrInvalidID, bad)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store, err := NewFileStore(fsys, "saved_audio")
	require.NoError(t, err)

	id, err := store.Save(context.Background(), "memo.wav", []byte("RIFF"))
	require.NoError(t, err)

	exists, err := afero.Exists(fsys, "saved_audio/"+id)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Open(context.Background(), id)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))
}

func TestFileStore_OpenErrors(t *testing.T) {
	store, err := NewFileStore(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "../secret.mp3")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = store.Open(context.Background(), "0b9c3e8a-6a4c-4d7c-9a55-1f0b6f0d9d11.mp3")
	assert.ErrorIs(t, err, ErrNotFound)
}

type mockS3Client struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	body, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = body
	m.types[*input.Key] = *input.ContentType
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	mock := newMockS3()
	store, err := NewS3Store(mock, "recordings-bucket")
	require.NoError(t, err)

	id, err := store.Save(context.Background(), "memo.m4a", []byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "audio/mp4", mock.types["recordings/"+id])

	rc, err := store.Open(context.Background(), id)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, []byte{1, 2}, data)

	_, err = store.Open(context.Background(), "0b9c3e8a-6a4c-4d7c-9a55-1f0b6f0d9d11.mp3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3Store_Errors(t *testing.T) {
	_, err := NewS3Store(nil, "b")
	assert.Error(t, err)
	_, err = NewS3Store(newMockS3(), " ")
	assert.Error(t, err)

	mock := newMockS3()
	mock.putErr = errors.New("access denied")
	store, err := NewS3Store(mock, "b")
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "a.mp3", nil)
	assert.ErrorContains(t, err, "access denied")
}
