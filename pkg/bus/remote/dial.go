package remote

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"

	"github.com/golang/glog"
	xws "golang.org/x/net/websocket"

	"github.com/robotalks/cantester/pkg/can"
	"github.com/robotalks/cantester/pkg/comm"
	"github.com/robotalks/cantester/pkg/comm/mqtt"
	"github.com/robotalks/cantester/pkg/comm/stream"
	"github.com/robotalks/cantester/pkg/comm/websocket"
	"github.com/robotalks/cantester/pkg/env"
)

// Dial connects the tester side of a transport. Supported URLs:
//
//	tcp://host:port
//	ws://host:port/path
//	mqtt://host:port/prefix/   topics <prefix><name>/tx and <prefix><name>/rx
//	serial:///dev/ttyUSB0      a device already configured for raw mode
func Dial(rawURL, name string) (comm.PacketReadWriter, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL: %w", err)
	}
	switch u.Scheme {
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return stream.New(conn), nil
	case "ws", "wss":
		return websocket.Dial(rawURL)
	case "mqtt":
		q, err := newQueue(rawURL, "cantester")
		if err != nil {
			return nil, err
		}
		rw := mqtt.NewPacketReadWriter(q).ForTester(name)
		if err := rw.Open(); err != nil {
			return nil, err
		}
		return rw, nil
	case "serial":
		f, err := os.OpenFile(u.Path, os.O_RDWR, 0)
		if err != nil {
			return nil, err
		}
		return stream.New(f), nil
	default:
		return nil, fmt.Errorf("unknown remote URL scheme: %q", u.Scheme)
	}
}

func newQueue(rawURL, role string) (*mqtt.Queue, error) {
	opts, prefix, err := mqtt.ClientOptionsFromURL(rawURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID(env.ClientID(role))
	}
	return mqtt.NewQueue(opts, prefix), nil
}

// Serve exposes drv to testers until ctx is done. Stream transports
// accept one tester at a time.
func Serve(ctx context.Context, rawURL, name string, drv can.Driver) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid listen URL: %w", err)
	}
	switch u.Scheme {
	case "tcp":
		ln, err := net.Listen("tcp", u.Host)
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			ln.Close()
		}()
		glog.Infof("adapter listening on %s", ln.Addr())
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			glog.Infof("tester connected from %s", conn.RemoteAddr())
			err = NewAdapter(stream.New(conn), drv).Run(ctx)
			glog.Infof("tester disconnected: %v", err)
		}
	case "ws":
		path := u.Path
		if path == "" {
			path = "/"
		}
		mux := http.NewServeMux()
		busy := make(chan struct{}, 1)
		mux.Handle(path, xws.Handler(func(conn *xws.Conn) {
			select {
			case busy <- struct{}{}:
				defer func() { <-busy }()
			default:
				glog.Warningf("reject tester %s: adapter busy", conn.Request().RemoteAddr)
				return
			}
			err := NewAdapter(websocket.New(conn), drv).Run(ctx)
			glog.Infof("tester disconnected: %v", err)
		}))
		server := &http.Server{Addr: u.Host, Handler: mux}
		go func() {
			<-ctx.Done()
			server.Close()
		}()
		glog.Infof("adapter serving websocket on %s%s", u.Host, path)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return ctx.Err()
	case "mqtt":
		q, err := newQueue(rawURL, "canadapter")
		if err != nil {
			return err
		}
		rw := mqtt.NewPacketReadWriter(q).ForAdapter(name)
		if err := rw.Open(); err != nil {
			return err
		}
		return NewAdapter(rw, drv).Run(ctx)
	default:
		return fmt.Errorf("unknown listen URL scheme: %q", u.Scheme)
	}
}
