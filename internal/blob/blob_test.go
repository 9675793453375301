package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every driver shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	info, err := s.Put(ctx, "u1/b1_1_a.jpg", bytes.NewReader([]byte("hello")), PutOptions{ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "u1/b1_1_a.jpg", info.Key)
	assert.EqualValues(t, 5, info.Size)

	_, err = s.Put(ctx, "u1/b2_2_b.jpg", bytes.NewReader([]byte("world!")), PutOptions{})
	require.NoError(t, err)
	_, err = s.Put(ctx, "u2/b3_3_c.jpg", bytes.NewReader([]byte("x")), PutOptions{})
	require.NoError(t, err)

	got, rc, err := s.Get(ctx, "u1/b1_1_a.jpg")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "image/jpeg", got.ContentType)

	head, err := s.Head(ctx, "u1/b2_2_b.jpg")
	require.NoError(t, err)
	assert.EqualValues(t, 6, head.Size)

	list, err := s.List(ctx, "u1/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u1/b1_1_a.jpg", list[0].Key)
	assert.Equal(t, "u1/b2_2_b.jpg", list[1].Key)

	ok, err := s.Delete(ctx, "u1/b1_1_a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Head(ctx, "u1/b1_1_a.jpg")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	_, _, err = s.Get(ctx, "u1/b1_1_a.jpg")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	list, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	assert.Equal(t, DriverMemory, s.Driver())
	exerciseStore(t, s)

	_, err := s.Put(context.Background(), "u2/b3_3_c.jpg", bytes.NewReader(nil), PutOptions{})
	assert.ErrorIs(t, err, ErrExists)

	ok, err := s.Delete(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreClock(t *testing.T) {
	s := NewMemory()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.SetClock(func() time.Time { return at })

	info, err := s.Put(context.Background(), "k", bytes.NewReader([]byte("v")), PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, at, info.LastModified)
}

func TestFilesystemStore(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())
	exerciseStore(t, s)

	_, err = s.Put(context.Background(), "../escape", bytes.NewReader(nil), PutOptions{})
	assert.Error(t, err)
	_, err = s.Put(context.Background(), "/abs", bytes.NewReader(nil), PutOptions{})
	assert.Error(t, err)
}

func TestFilesystemStoreKeysWithDots(t *testing.T) {
	ctx := context.Background()
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "user-1/IMG..1.jpg", bytes.NewReader([]byte("jpeg")), PutOptions{ContentType: "image/jpeg"})
	require.NoError(t, err)
	_, rc, err := s.Get(ctx, "user-1/IMG..1.jpg")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(body))

	for _, key := range []string{"..", "../escape.jpg", "a/../../x", "./", "a/.."} {
		_, err := s.Put(ctx, key, bytes.NewReader(nil), PutOptions{})
		assert.Error(t, err, key)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Driver: DriverMemory, Bucket: "grow_images"})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	s, err = Open(ctx, Config{Driver: DriverFilesystem, Bucket: "grow_images", FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.Error(t, err)
}

func TestURLBuilder(t *testing.T) {
	u := URLBuilder{Base: "https://cdn.example.com/storage/v1/object/public/", Bucket: "grow_images"}

	url := u.URL("u1/b1_1700000000000_photo.jpg")
	assert.Equal(t, "https://cdn.example.com/storage/v1/object/public/grow_images/u1/b1_1700000000000_photo.jpg", url)

	key, ok := u.Key(url)
	require.True(t, ok)
	assert.Equal(t, "u1/b1_1700000000000_photo.jpg", key)

	key, ok = u.Key(url + "?t=123")
	require.True(t, ok)
	assert.Equal(t, "u1/b1_1700000000000_photo.jpg", key)

	_, ok = u.Key("https://elsewhere.example.com/picture.jpg")
	assert.False(t, ok)
	_, ok = u.Key("https://cdn.example.com/grow_images/")
	assert.False(t, ok)
}
