package schedule

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cantester/pkg/can"
)

func dataFrame(time uint32, idType can.IDType, id uint32, data ...byte) can.Frame {
	f := can.Frame{Time: time, Direction: can.Output, IDType: idType, Kind: can.Data, ID: id}
	f.SetPayload(data)
	return f
}

func remoteFrame(time uint32, idType can.IDType, id uint32) can.Frame {
	return can.Frame{Time: time, Direction: can.Output, IDType: idType, Kind: can.Remote, ID: id}
}

func TestParseLine(t *testing.T) {
	testCases := []struct {
		name  string
		line  string
		kind  LineKind
		frame can.Frame
		field string
	}{
		{"data", "@1000:0:0x7FF:4:1A2B3C4D", LineFrame, dataFrame(1000, can.Standard, 0x7ff, 0x1a, 0x2b, 0x3c, 0x4d), ""},
		{"data no prefix", "@5:1:1abcdef:2:00ff\n", LineFrame, dataFrame(5, can.Extended, 0x1abcdef, 0x00, 0xff), ""},
		{"data lower prefix", "@7:0:0x10:1:ab", LineFrame, dataFrame(7, can.Standard, 0x10, 0xab), ""},
		{"data crlf", "@7:0:10:1:AB\r\n", LineFrame, dataFrame(7, can.Standard, 0x10, 0xab), ""},
		{"data empty", "@0:0:1:0:", LineFrame, dataFrame(0, can.Standard, 1), ""},
		{"data empty no field", "@0:0:1:0", LineFrame, dataFrame(0, can.Standard, 1), ""},
		{"data extra digits", "@1:0:1:1:ABCD", LineFrame, dataFrame(1, can.Standard, 1, 0xab), ""},
		{"remote", "$1005:1:0x4567", LineFrame, remoteFrame(1005, can.Extended, 0x4567), ""},
		{"max time", "$4294967295:0:0", LineFrame, remoteFrame(0xffffffff, can.Standard, 0), ""},
		{"id not range checked", "$1:0:0xFFFF", LineFrame, remoteFrame(1, can.Standard, 0xffff), ""},
		{"terminator", "!", LineEnd, can.Frame{}, ""},
		{"terminator trailing", "!\n", LineEnd, can.Frame{}, ""},
		{"blank", "", LineIgnored, can.Frame{}, ""},
		{"indented terminator", " !", LineIgnored, can.Frame{}, ""},
		{"indented data", "  @1:0:1:1:AB", LineIgnored, can.Frame{}, ""},
		{"tab remote", "\t$1:0:1", LineIgnored, can.Frame{}, ""},
		{"trailing blanks", "$1:0:1  \r\n", LineFrame, remoteFrame(1, can.Standard, 1), ""},
		{"comment", "# a comment", LineIgnored, can.Frame{}, ""},
		{"bad time", "@x:0:1:0:", LineIgnored, can.Frame{}, "time"},
		{"time overflow", "$4294967296:0:1", LineIgnored, can.Frame{}, "time"},
		{"bad eid", "$1:2:1", LineIgnored, can.Frame{}, "eid"},
		{"bad id", "$1:0:xyz", LineIgnored, can.Frame{}, "id"},
		{"missing id", "$1:0", LineIgnored, can.Frame{}, "id"},
		{"missing dlc", "@1:0:1", LineIgnored, can.Frame{}, "dlc"},
		{"dlc too large", "@1:0:1:9:000000000000000000", LineIgnored, can.Frame{}, "dlc"},
		{"short payload", "@1:0:1:4:1A2B", LineIgnored, can.Frame{}, "data"},
		{"bad payload", "@1:0:1:1:zz", LineIgnored, can.Frame{}, "data"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := ParseLine(tc.line)
			if tc.field != "" {
				require.Error(t, err)
				var ferr *fieldError
				require.True(t, errors.As(err, &ferr))
				require.Equal(t, tc.field, ferr.field)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.kind, r.Kind)
			if tc.kind == LineFrame {
				require.Equal(t, tc.frame, r.Frame)
			}
		})
	}
}

func TestRead(t *testing.T) {
	t.Run("data frame", func(t *testing.T) {
		res, err := Read(strings.NewReader("@1000:0:0x7FF:4:1A2B3C4D\n!\n"), DefaultCapacity)
		require.NoError(t, err)
		require.Len(t, res.Schedule, 1)
		f := res.Schedule[0]
		require.Equal(t, uint32(1000), f.Time)
		require.Equal(t, can.Standard, f.IDType)
		require.Equal(t, can.Data, f.Kind)
		require.Equal(t, uint32(0x7ff), f.ID)
		require.Equal(t, uint8(4), f.Len)
		require.Equal(t, []byte{0x1a, 0x2b, 0x3c, 0x4d}, f.Payload())
	})

	t.Run("remote frame", func(t *testing.T) {
		res, err := Read(strings.NewReader("$1005:1:0x4567\n!\n"), DefaultCapacity)
		require.NoError(t, err)
		require.Equal(t, Schedule{remoteFrame(1005, can.Extended, 0x4567)}, res.Schedule)
	})

	t.Run("capacity", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 10; i++ {
			fmt.Fprintf(&sb, "$%d:0:%x\n", i, i)
		}
		sb.WriteString("!\n")
		res, err := Read(strings.NewReader(sb.String()), 4)
		require.NoError(t, err)
		require.True(t, res.Full)
		require.Len(t, res.Schedule, 4)
		for i, f := range res.Schedule {
			require.Equal(t, uint32(i), f.ID)
		}
	})

	t.Run("skip malformed and unknown", func(t *testing.T) {
		input := "hello\n\n@1:0:1:1:AA\n@bad\n$2:1:2\n!\n@3:0:3:0:\n"
		res, err := Read(strings.NewReader(input), DefaultCapacity)
		require.NoError(t, err)
		require.Equal(t, Schedule{
			dataFrame(1, can.Standard, 1, 0xaa),
			remoteFrame(2, can.Extended, 2),
		}, res.Schedule)
		require.Len(t, res.Malformed, 1)
		require.Equal(t, 4, res.Malformed[0].Line)
		require.Equal(t, "@bad", res.Malformed[0].Text)
		require.Equal(t, "time", res.Malformed[0].Field)
	})

	t.Run("keeps order of equal times", func(t *testing.T) {
		res, err := Read(strings.NewReader("$5:0:3\n$5:0:1\n$5:0:2\n!\n"), DefaultCapacity)
		require.NoError(t, err)
		require.Equal(t, Schedule{
			remoteFrame(5, can.Standard, 3),
			remoteFrame(5, can.Standard, 1),
			remoteFrame(5, can.Standard, 2),
		}, res.Schedule)
	})

	t.Run("truncated", func(t *testing.T) {
		res, err := Read(strings.NewReader("$1:0:1\n$2:0:2\n"), DefaultCapacity)
		require.Equal(t, ErrTruncatedInput, err)
		require.Len(t, res.Schedule, 2)
		require.False(t, res.Full)
	})
}

func TestParserStopsWhenDone(t *testing.T) {
	p := NewParser(2)
	require.NoError(t, p.Parse("$1:0:1"))
	require.False(t, p.Done())
	require.NoError(t, p.Parse("$2:0:2"))
	require.True(t, p.Done())
	require.True(t, p.Full())
	require.False(t, p.Terminated())
	require.NoError(t, p.Parse("$3:0:3"))
	require.Len(t, p.Schedule(), 2)

	p = NewParser(0)
	require.Equal(t, DefaultCapacity, p.Capacity)
	require.NoError(t, p.Parse("!"))
	require.True(t, p.Terminated())
	require.NoError(t, p.Parse("$3:0:3"))
	require.Empty(t, p.Schedule())
}

func TestMalformedLineError(t *testing.T) {
	p := NewParser(1)
	err := p.Parse("$1:5:1")
	require.Error(t, err)
	var merr *MalformedLineError
	require.True(t, errors.As(err, &merr))
	require.Equal(t, "eid", merr.Field)
	require.Equal(t, errOutOfRange, errors.Unwrap(merr))
	require.Contains(t, err.Error(), "line 1")
	require.Contains(t, err.Error(), "eid")
}
