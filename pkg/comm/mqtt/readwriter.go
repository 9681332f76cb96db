package mqtt

import (
	"io"
	"sync"
)

// ReadWriter implements PacketReadWriter on a pair of topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh  chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 16),
		closeCh:  make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForTester sets topics used by the tester side:
// SubTopic = name/rx
// PubTopic = name/tx
func (p *ReadWriter) ForTester(name string) *ReadWriter {
	return p.WithTopics(name+"/rx", name+"/tx")
}

// ForAdapter sets topics used by the adapter side, the mirror of ForTester.
func (p *ReadWriter) ForAdapter(name string) *ReadWriter {
	return p.WithTopics(name+"/tx", name+"/rx")
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.closeCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Open subscribes SubTopic and connects the queue.
func (p *ReadWriter) Open() error {
	// the subscription is (re)issued by the connect handler.
	p.Queue.Sub(p.SubTopic, p.handleMsg)
	if token := p.Queue.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() {
		close(p.closeCh)
		p.Queue.Unsub(p.SubTopic)
		p.Queue.Close()
	})
	return nil
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.closeCh:
	}
}
