package bridge

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/framelink/internal/config"
	"github.com/muurk/framelink/internal/layout"
	"github.com/muurk/framelink/internal/messenger"
	"github.com/muurk/framelink/internal/transport"
)

// fakeDevice is an in-memory serial device. Bytes pushed with emit are
// returned by Read; everything written is recorded and may be echoed back.
type fakeDevice struct {
	in chan []byte

	mu      sync.Mutex
	written bytes.Buffer
	echo    bool
	pending []byte

	flushStarted chan struct{} // receives once per FlushInput when set
	flushRelease chan struct{} // FlushInput waits for it when set
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{in: make(chan []byte, 64)}
}

func (d *fakeDevice) emit(p []byte) { d.in <- append([]byte(nil), p...) }

func (d *fakeDevice) Read(p []byte) (int, error) {
	if len(d.pending) == 0 {
		select {
		case data := <-d.in:
			d.pending = data
		case <-time.After(10 * time.Millisecond):
			return 0, nil
		}
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	d.written.Write(p)
	echo := d.echo
	d.mu.Unlock()
	if echo {
		d.emit(p)
	}
	return len(p), nil
}

func (d *fakeDevice) FlushInput() error {
	if d.flushStarted != nil {
		d.flushStarted <- struct{}{}
	}
	if d.flushRelease != nil {
		<-d.flushRelease
	}
	d.pending = nil
	for {
		select {
		case <-d.in:
		default:
			return nil
		}
	}
}

func (d *fakeDevice) FlushOutput() error { return nil }
func (d *fakeDevice) Close() error       { return nil }

func (d *fakeDevice) writtenString() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written.String()
}

var _ transport.Conn = (*fakeDevice)(nil)

func startBridge(t *testing.T, dev transport.Conn, cfg *Config) (*Server, net.Addr) {
	t.Helper()
	cfg.Host = "127.0.0.1"
	srv, err := New(dev, cfg)
	require.NoError(t, err)

	addr, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("bridge did not stop")
		}
	})
	return srv, addr
}

// slowFlushDevice returns a device whose FlushInput blocks until release
// is closed.
func slowFlushDevice() (dev *fakeDevice, started <-chan struct{}, release chan struct{}) {
	dev = newFakeDevice()
	dev.flushStarted = make(chan struct{}, 4)
	dev.flushRelease = make(chan struct{})
	return dev, dev.flushStarted, dev.flushRelease
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, &Config{})
	assert.Error(t, err)

	_, err = New(newFakeDevice(), &Config{Transport: "serial"})
	assert.ErrorContains(t, err, "unsupported transport")

	srv, err := New(newFakeDevice(), &Config{Transport: config.TransportWebSocket})
	require.NoError(t, err)
	assert.Equal(t, DefaultPath, srv.config.Path)
	assert.Equal(t, transport.DefaultReadTimeout, srv.config.ReadTimeout)
}

func TestBridge_TCPRelaysBothWays(t *testing.T) {
	dev := newFakeDevice()
	srv, addr := startBridge(t, dev, &Config{})

	client, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer client.Close()
	waitFor(t, srv.Attached)

	_, err = client.Write([]byte("HEADcFOOT"))
	require.NoError(t, err)
	waitFor(t, func() bool { return dev.writtenString() == "HEADcFOOT" })

	dev.emit([]byte("HEAD\x00\x01"))
	dev.emit([]byte("zFOOT"))

	got := make([]byte, 11)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = io.ReadFull(client, got)
	require.NoError(t, err)
	assert.Equal(t, "HEAD\x00\x01zFOOT", string(got))
}

func TestBridge_SecondClientRejected(t *testing.T) {
	srv, addr := startBridge(t, newFakeDevice(), &Config{})

	first, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer first.Close()
	waitFor(t, srv.Attached)

	second, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = second.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, srv.Sessions())
}

func TestBridge_ClientCanReconnect(t *testing.T) {
	srv, addr := startBridge(t, newFakeDevice(), &Config{})

	first, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	waitFor(t, srv.Attached)
	require.NoError(t, first.Close())
	waitFor(t, func() bool { return !srv.Attached() })

	second, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer second.Close()
	waitFor(t, func() bool { return srv.Sessions() == 2 })
}

// A messenger on the far side of a WebSocket bridge completes the handshake
// against a device that echoes it and then receives the device's frames.
func TestBridge_WebSocketMessenger(t *testing.T) {
	dev := newFakeDevice()
	dev.echo = true
	_, addr := startBridge(t, dev, &Config{Transport: config.TransportWebSocket})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := transport.DialWebSocket(ctx, "ws://"+addr.String()+DefaultPath, 20*time.Millisecond)
	require.NoError(t, err)
	defer conn.Close()

	cfg := messenger.DefaultConfig()
	m, err := messenger.New(conn, cfg)
	require.NoError(t, err)

	got := make(chan []any, 1)
	require.NoError(t, m.Register(7, func(id int, fields []any) error {
		got <- fields
		return nil
	}, "hH"))
	require.NoError(t, m.Start(ctx))
	defer m.Close()

	payload, err := layout.MustCompile("hH").Encode(-2, 513)
	require.NoError(t, err)
	frame, err := cfg.Markers().EncodeFrame(7, payload)
	require.NoError(t, err)
	dev.emit(frame)

	select {
	case fields := <-got:
		assert.Equal(t, []any{int16(-2), uint16(513)}, fields)
	case <-ctx.Done():
		t.Fatal("frame not delivered through the bridge")
	}
}

func TestBridge_FlushDoesNotBlockQueries(t *testing.T) {
	dev, started, release := slowFlushDevice()
	srv, addr := startBridge(t, dev, &Config{})
	released := false
	defer func() {
		if !released {
			close(release)
		}
	}()

	first, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer first.Close()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("device flush did not start")
	}

	sessions := make(chan int, 1)
	go func() { sessions <- srv.Sessions() }()
	select {
	case n := <-sessions:
		assert.Equal(t, 0, n)
	case <-time.After(time.Second):
		t.Fatal("Sessions blocked while the device was flushed")
	}
	assert.False(t, srv.Attached())

	// A client arriving while the first one claims the device is turned away.
	second, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = second.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)

	close(release)
	released = true
	waitFor(t, srv.Attached)
	assert.Equal(t, 1, srv.Sessions())
}

func TestBridge_ShutdownDuringFlushClosesClient(t *testing.T) {
	dev, started, release := slowFlushDevice()
	srv, addr := startBridge(t, dev, &Config{})

	client, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer client.Close()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("device flush did not start")
	}

	stopped := make(chan struct{})
	go func() {
		_ = srv.Shutdown(context.Background())
		close(stopped)
	}()
	waitFor(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.closing
	})
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown waited on a client that attached late")
	}
	assert.False(t, srv.Attached())
	assert.Equal(t, 0, srv.Sessions())

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}
