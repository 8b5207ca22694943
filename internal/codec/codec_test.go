package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain reads every decode event until the stream ends
func drain(t *testing.T, d *Decoder) []string {
	t.Helper()
	var out []string
	for {
		msg, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg)
	}
}

func TestLookupCharset(t *testing.T) {
	t.Run("EmptyIsUTF8", func(t *testing.T) {
		enc, err := LookupCharset("")
		require.NoError(t, err)
		assert.NotNil(t, enc)
	})

	t.Run("KnownLabels", func(t *testing.T) {
		for _, name := range []string{"utf-8", "UTF8", "windows-1252", "gbk", " shift_jis "} {
			_, err := LookupCharset(name)
			assert.NoError(t, err, name)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := LookupCharset("klingon-8")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownCharset)
		assert.Contains(t, err.Error(), "klingon-8")
	})
}

func TestDecoder_OneEventPerChunk(t *testing.T) {
	d := NewDecoder(strings.NewReader("hello world."), nil, 0)

	msg, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello world.", msg)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_BufferSizeSplitsLargeChunks(t *testing.T) {
	d := NewDecoder(strings.NewReader("abcdefgh"), nil, 3)

	assert.Equal(t, []string{"abc", "def", "gh"}, drain(t, d))
}

func TestDecoder_FragmentedMultibyte(t *testing.T) {
	input := "héllo wörld 日本語 🙂"
	d := NewDecoder(iotest.OneByteReader(strings.NewReader(input)), nil, 0)

	msgs := drain(t, d)
	for _, m := range msgs {
		assert.True(t, utf8.ValidString(m), "event %q split a character", m)
	}
	assert.Equal(t, input, strings.Join(msgs, ""))
}

func TestDecoder_InvalidBytesReplaced(t *testing.T) {
	d := NewDecoder(bytes.NewReader([]byte{'a', 0xff, 'b'}), nil, 0)

	assert.Equal(t, "a�b", strings.Join(drain(t, d), ""))
}

func TestDecoder_DataThenError(t *testing.T) {
	boom := errors.New("boom")
	r := iotest.DataErrReader(io.MultiReader(strings.NewReader("tail"), iotest.ErrReader(boom)))
	d := NewDecoder(r, nil, 0)

	msg, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "tail", msg)

	_, err = d.Next()
	assert.ErrorIs(t, err, boom)
}

func TestDecoder_EmptyStream(t *testing.T) {
	d := NewDecoder(strings.NewReader(""), nil, 0)

	assert.Empty(t, drain(t, d))
}

func TestDecoder_Charset(t *testing.T) {
	enc, err := LookupCharset("windows-1252")
	require.NoError(t, err)

	d := NewDecoder(bytes.NewReader([]byte{'c', 'a', 'f', 0xe9}), enc, 0)
	assert.Equal(t, "café", strings.Join(drain(t, d), ""))
}

func TestEncoder(t *testing.T) {
	t.Run("WriteAndFlush", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewEncoder(&buf, nil)

		require.NoError(t, e.WriteAndFlush("hello world."))
		assert.Equal(t, "hello world.", buf.String())
	})

	t.Run("BufferedUntilFlush", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewEncoder(&buf, nil)

		require.NoError(t, e.Encode("foo"))
		assert.Equal(t, 0, buf.Len())
		require.NoError(t, e.Flush())
		assert.Equal(t, "foo", buf.String())
	})

	t.Run("EmptyWritesNothing", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewEncoder(&buf, nil)

		require.NoError(t, e.WriteAndFlush(""))
		assert.Equal(t, 0, buf.Len())
	})

	t.Run("Charset", func(t *testing.T) {
		enc, err := LookupCharset("windows-1252")
		require.NoError(t, err)
		var buf bytes.Buffer

		require.NoError(t, NewEncoder(&buf, enc).WriteAndFlush("café"))
		assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, buf.Bytes())
	})

	t.Run("UnrepresentableReplaced", func(t *testing.T) {
		enc, err := LookupCharset("windows-1252")
		require.NoError(t, err)
		var buf bytes.Buffer

		require.NoError(t, NewEncoder(&buf, enc).WriteAndFlush("a日b"))
		assert.Equal(t, 3, buf.Len())
		assert.Equal(t, byte('a'), buf.Bytes()[0])
		assert.Equal(t, byte('b'), buf.Bytes()[2])
	})

	t.Run("WriteError", func(t *testing.T) {
		e := NewEncoder(errWriter{}, nil)

		require.NoError(t, e.Encode("x"))
		assert.Error(t, e.Flush())
	})
}

func TestRoundTrip(t *testing.T) {
	cases := []string{"hello world.", "foo", "日本語のテキスト", "emoji 🙂🙃", strings.Repeat("x", 5000)}
	for _, s := range cases {
		var buf bytes.Buffer
		require.NoError(t, NewEncoder(&buf, nil).WriteAndFlush(s))

		d := NewDecoder(&buf, nil, 0)
		assert.Equal(t, s, strings.Join(drain(t, d), ""))
	}
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }
