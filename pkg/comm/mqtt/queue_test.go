package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		topic, pattern string
		match          bool
	}{
		{"bench/tx", "bench/tx", true},
		{"bench/tx", "bench/rx", false},
		{"bench/tx", "+/tx", true},
		{"bench/tx", "#", true},
		{"bench/a/tx", "bench/#", true},
		{"bench", "bench/+", false},
		{"bench/tx/more", "bench/+", false},
	}
	for _, c := range cases {
		t.Run(c.topic+"~"+c.pattern, func(t *testing.T) {
			require.Equal(t, c.match, MatchTopic(c.topic, c.pattern))
		})
	}
}

func TestClientOptionsFromURL(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://u:p@broker:1883/lab/?client-id=ct1")
	require.NoError(t, err)
	require.Equal(t, "lab/", prefix)
	require.Len(t, opts.Servers, 1)
	require.Equal(t, "tcp://broker:1883", opts.Servers[0].String())
	require.Equal(t, "u", opts.Username)
	require.Equal(t, "p", opts.Password)
	require.Equal(t, "ct1", opts.ClientID)
}

func TestReadWriterTopics(t *testing.T) {
	rw := NewPacketReadWriter(nil).ForTester("bench")
	require.Equal(t, "bench/rx", rw.SubTopic)
	require.Equal(t, "bench/tx", rw.PubTopic)
	rw.ForAdapter("bench")
	require.Equal(t, "bench/tx", rw.SubTopic)
	require.Equal(t, "bench/rx", rw.PubTopic)
}
