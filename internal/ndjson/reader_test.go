package ndjson

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	line int
	text string
}

func readAll(t *testing.T, input string) ([]record, *Reader) {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var got []record
	for r.Next() {
		got = append(got, record{line: r.Line(), text: string(r.Bytes())})
	}
	require.NoError(t, r.Err())
	return got, r
}

func TestReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []record
		blank int
	}{
		{"empty", "", nil, 0},
		{"single without newline", `{"a":1}`, []record{{1, `{"a":1}`}}, 0},
		{"trailing newline", "{\"a\":1}\n{\"b\":2}\n", []record{{1, `{"a":1}`}, {2, `{"b":2}`}}, 0},
		{"crlf", "{\"a\":1}\r\n{\"b\":2}\r\n", []record{{1, `{"a":1}`}, {2, `{"b":2}`}}, 0},
		{"blank lines", "\n{\"a\":1}\n   \n\t\n{\"b\":2}\n\n", []record{{2, `{"a":1}`}, {5, `{"b":2}`}}, 4},
		{"bom", "\xEF\xBB\xBF{\"a\":1}\n", []record{{1, `{"a":1}`}}, 0},
		{"bom only stripped at start", "{\"a\":1}\n\xEF\xBB\xBF{\"b\":2}", []record{{1, `{"a":1}`}, {2, "\xEF\xBB\xBF{\"b\":2}"}}, 0},
		{"only blanks", "\n\n\n", nil, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, r := readAll(t, tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), r.Records())
			assert.Equal(t, tt.blank, r.BlankLines())
		})
	}
}

func TestReader_LongLine(t *testing.T) {
	long := `{"k":"` + strings.Repeat("x", 1<<20) + `"}`
	got, _ := readAll(t, long+"\n"+`{"k":"y"}`)
	require.Len(t, got, 2)
	assert.Equal(t, long, got[0].text)
}

func TestReader_BytesAreNotReused(t *testing.T) {
	r := NewReader(strings.NewReader("{\"a\":1}\n{\"b\":2}\n"))
	require.True(t, r.Next())
	first := r.Bytes()
	require.True(t, r.Next())
	assert.Equal(t, `{"a":1}`, string(first))
}

func TestReader_ReadError(t *testing.T) {
	boom := errors.New("disk on fire")
	r := NewReader(io.MultiReader(strings.NewReader("{\"a\":1}\n"), iotest.ErrReader(boom)))

	require.True(t, r.Next())
	assert.False(t, r.Next())
	assert.ErrorIs(t, r.Err(), boom)
	assert.Nil(t, r.Bytes())
}
