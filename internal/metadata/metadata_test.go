package metadata_test

import (
	"testing"
	"time"

	"github.com/prevo-go/recto/internal/fsutil"
	"github.com/prevo-go/recto/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_FreshFilenameHasNoSuffix(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	rec := metadata.NewRecord(time.Unix(0, 0), []string{"tempA"}, map[string]string{"tempA": "11111111-1111-1111-1111-111111111111"}, nil)

	path, err := metadata.Write(fs, "session", "metadata.json", rec)
	require.NoError(t, err)
	assert.Equal(t, "session/metadata.json", path)
}

func TestWrite_CollisionAppendsIncrementingSuffix(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	rec := metadata.NewRecord(time.Unix(0, 0), []string{"tempA"}, map[string]string{"tempA": "11111111-1111-1111-1111-111111111111"}, nil)

	first, err := metadata.Write(fs, "session", "metadata.json", rec)
	require.NoError(t, err)
	second, err := metadata.Write(fs, "session", "metadata.json", rec)
	require.NoError(t, err)
	third, err := metadata.Write(fs, "session", "metadata.json", rec)
	require.NoError(t, err)

	assert.Equal(t, "session/metadata.json", first)
	assert.Equal(t, "session/metadata-1.json", second)
	assert.Equal(t, "session/metadata-2.json", third)
}

func TestWrite_SerializesAsIndentedJSONWithVersionFields(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	rec := metadata.NewRecord(time.Unix(100, 0), []string{"a", "b"}, map[string]string{"a": "session-a", "b": "session-b"}, map[string]string{"dt": "1.0"})

	path, err := metadata.Write(fs, "session", "metadata.json", rec)
	require.NoError(t, err)

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recordings"`)
	assert.Contains(t, string(data), `"a"`)
	assert.Contains(t, string(data), `"dt": "1.0"`)
}
