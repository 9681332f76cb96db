package capture

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cantester/pkg/can"
)

func captured() []can.Frame {
	data := can.Frame{Time: 12, Direction: can.Input, ID: 0x123}
	data.SetPayload([]byte{1, 2, 3})
	return []can.Frame{
		data,
		{Time: 15, Direction: can.Input, IDType: can.Extended, Kind: can.Remote, ID: 0x1abcdef},
		{Time: 20, Direction: can.Output, ID: 0x7ff},
	}
}

func TestWriteReadAll(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, f := range captured() {
		require.NoError(t, w.CaptureFrame(f))
	}
	require.Equal(t, 3, w.Count())
	require.NoError(t, w.Close())

	frames, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Equal(t, captured(), frames)
}

func TestReadAllTruncated(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, f := range captured() {
		require.NoError(t, w.CaptureFrame(f))
	}
	require.NoError(t, w.Flush())
	raw := buf.Bytes()

	frames, err := ReadAll(bytes.NewReader(raw[:len(raw)-1]))
	require.Error(t, err)
	require.Len(t, frames, 2)
}

func TestCreateLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "capture")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "bus.cbor")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.CaptureFrame(captured()[0]))
	require.NoError(t, w.Close())

	frames, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, captured()[:1], frames)
}
