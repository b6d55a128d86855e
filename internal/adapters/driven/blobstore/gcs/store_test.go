package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

type fakeWriter struct {
	buf      bytes.Buffer
	closeErr error
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *fakeWriter) Close() error { return w.closeErr }

func newFakeStore(objects map[string][]byte, openErr error, writer *fakeWriter) (*Store, *[]string) {
	var opened []string
	open := func(_ context.Context, name string) (io.ReadCloser, error) {
		opened = append(opened, name)
		if openErr != nil {
			return nil, openErr
		}
		data, ok := objects[name]
		if !ok {
			return nil, storage.ErrObjectNotExist
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	create := func(_ context.Context, _ string) io.WriteCloser { return writer }
	return newStore(Config{Bucket: "b", Prefix: "blobs"}, open, create), &opened
}

func TestNewStore_RequiresBucket(t *testing.T) {
	_, err := NewStore(context.Background(), Config{})
	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "gcs.bucket", cfgErr.Field)
}

func TestFetch_ReadsPrefixedObject(t *testing.T) {
	store, opened := newFakeStore(map[string][]byte{"blobs/abc": []byte("cipher")}, nil, nil)

	blob, err := store.Fetch(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("cipher"), blob.Data)
	assert.Equal(t, []string{"blobs/abc"}, *opened)
	assert.Equal(t, "gcs", store.Name())
}

func TestFetch_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind domain.FetchErrorKind
	}{
		{"missing object", storage.ErrObjectNotExist, domain.FetchNotFound},
		{"missing bucket", storage.ErrBucketNotExist, domain.FetchNotFound},
		{"api 404", &googleapi.Error{Code: http.StatusNotFound}, domain.FetchNotFound},
		{"deadline", context.DeadlineExceeded, domain.FetchTimeout},
		{"api 503", &googleapi.Error{Code: http.StatusServiceUnavailable}, domain.FetchTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newFakeStore(nil, tt.err, nil)
			_, err := store.Fetch(context.Background(), "x")

			var fetchErr *domain.FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.kind, fetchErr.Kind)
		})
	}
}

func TestPut(t *testing.T) {
	t.Run("writes data", func(t *testing.T) {
		w := &fakeWriter{}
		store, _ := newFakeStore(nil, nil, w)
		require.NoError(t, store.Put(context.Background(), "abc", []byte("cipher")))
		assert.Equal(t, "cipher", w.buf.String())
	})

	t.Run("existing object is not an error", func(t *testing.T) {
		w := &fakeWriter{closeErr: &googleapi.Error{Code: http.StatusPreconditionFailed}}
		store, _ := newFakeStore(nil, nil, w)
		assert.NoError(t, store.Put(context.Background(), "abc", []byte("cipher")))
	})

	t.Run("other failures are returned", func(t *testing.T) {
		w := &fakeWriter{closeErr: errors.New("quota")}
		store, _ := newFakeStore(nil, nil, w)
		assert.Error(t, store.Put(context.Background(), "abc", []byte("cipher")))
	})
}

func TestClose_WithoutClient(t *testing.T) {
	store, _ := newFakeStore(nil, nil, nil)
	assert.NoError(t, store.Close())
}
