package filestorage

import (
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/speechdraft/speechdraft/internal/speechdraft/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name := "project-1/export-1-toast.md"
	meta := &Metadata{ProjectId: "project-1", ExportId: "export-1", Format: "md"}
	require.NoError(t, s.Save([]byte("# Toast"), name, "text/markdown", meta))

	exist, err := s.Exist(name)
	require.NoError(t, err)
	assert.True(t, exist)

	data, err := s.Load(name)
	require.NoError(t, err)
	assert.Equal(t, "# Toast", string(data))

	r, err := s.LoadReader(name)
	require.NoError(t, err)
	data, err = io.ReadAll(r)
	r.Close()
	require.NoError(t, err)
	assert.Equal(t, "# Toast", string(data))

	info, err := s.GetFileInfo(name)
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)
	assert.Equal(t, name, info.Name)

	require.NoError(t, s.Delete(name))
	exist, err = s.Exist(name)
	require.NoError(t, err)
	assert.False(t, exist)

	// Повторное удаление не ошибка
	assert.NoError(t, s.Delete(name))

	_, err = s.Load(name)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetFileInfo(name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageSaveReader(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SaveReader(strings.NewReader("%PDF-1.3"), 8, "p/e.pdf", "application/pdf", nil))
	data, err := s.Load("p/e.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
}

func TestLocalStorageListRoot(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"a/1.md", "a/2.pdf", "b/3.md"} {
		require.NoError(t, s.Save([]byte(name), name, "", nil))
	}

	var names []string
	require.NoError(t, s.ListRoot(func(fi FileInfo) error {
		names = append(names, fi.Name)
		return nil
	}))
	sort.Strings(names)
	assert.Equal(t, []string{"a/1.md", "a/2.pdf", "b/3.md"}, names)

	stop := io.EOF
	count := 0
	err = s.ListRoot(func(fi FileInfo) error {
		count++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, count)
}

func TestLocalStorageInvalidNames(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "/etc/passwd", "../secret", "a/../../secret", "."} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Save([]byte("x"), name, "", nil), ErrInvalidName)
			_, err := s.Load(name)
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestMetadataMap(t *testing.T) {
	assert.Equal(t, map[string]string{"projectId": "p", "format": "pdf"}, Metadata{ProjectId: "p", Format: "pdf"}.GetMap())
	assert.Empty(t, Metadata{}.GetMap())
}

func TestNewLocalFromConfig(t *testing.T) {
	dir := t.TempDir()
	s, err := New(&config.Config{ExportsPath: dir})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)
}
