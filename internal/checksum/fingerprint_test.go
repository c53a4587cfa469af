package checksum

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes_Format(t *testing.T) {
	sum := Bytes([]byte(`{"a":1}`))
	assert.Len(t, sum, 16)
	assert.Equal(t, strings.ToLower(sum), sum)
	assert.Equal(t, sum, Bytes([]byte(`{"a":1}`)), "deterministic")
	assert.NotEqual(t, sum, Bytes([]byte(`{"a":2}`)))
}

func TestBytes_Empty(t *testing.T) {
	assert.Equal(t, Bytes(nil), New().Sum())
}

func TestTeeReader_MatchesBytes(t *testing.T) {
	content := "{\"a\":1}\n{\"b\":2}\n\n{\"c\":3}\n"

	tee, fp := TeeReader(strings.NewReader(content))
	got, err := io.ReadAll(tee)
	require.NoError(t, err)

	assert.Equal(t, content, string(got))
	assert.Equal(t, Bytes([]byte(content)), fp.Sum())
	assert.Equal(t, int64(len(content)), fp.Size())
}

func TestFingerprint_IncrementalWrites(t *testing.T) {
	fp := New()
	_, _ = fp.Write([]byte("hello "))
	_, _ = fp.Write([]byte("world"))
	assert.Equal(t, Bytes([]byte("hello world")), fp.Sum())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(`{"x":true}`), 0644))

	sum, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes([]byte(`{"x":true}`)), sum)

	_, err = File(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err))
}
