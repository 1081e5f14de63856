package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	k, err := CleanKey(`imports\abc//run/file.docx`)
	require.NoError(t, err)
	require.Equal(t, "imports/abc/run/file.docx", k)

	for _, bad := range []string{"", "  ", "/etc/passwd", "a/../../b"} {
		_, err := CleanKey(bad)
		require.ErrorIs(t, err, ErrBadKey, bad)
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	info, err := s.Put(ctx, "imports/x/run/doc.docx", []byte("payload"), PutOptions{
		ContentType: "application/octet-stream",
		Metadata:    map[string]string{"import_id": "x"},
	})
	require.NoError(t, err)
	require.Equal(t, "imports/x/run/doc.docx", info.Key)
	require.EqualValues(t, 7, info.Size)
	require.NotEmpty(t, info.ETag)

	_, err = s.Put(ctx, "imports/x/run/doc.docx", []byte("again"), PutOptions{})
	require.ErrorIs(t, err, ErrExists)

	got, data, err := s.Get(ctx, "imports/x/run/doc.docx")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
	require.Equal(t, "x", got.Metadata["import_id"])

	_, _, err = s.Get(ctx, "imports/missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	require.Equal(t, DriverMemory, s.Driver())
	testStore(t, s)
}

func TestFSStore(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, DriverFilesystem, s.Driver())
	testStore(t, s)
}
