package messenger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/framelink/internal/logging"
	"github.com/muurk/framelink/internal/protocol"
)

// Messenger reads framed messages from a Connection and dispatches them to
// registered handlers on a single background worker.
type Messenger struct {
	conn     Connection
	cfg      Config
	markers  protocol.Markers
	registry *Registry

	mu      sync.Mutex
	state   State
	err     error
	started bool
	closed  bool

	stop      atomic.Bool
	ready     chan struct{} // closed once the handshake settles
	readyOnce sync.Once
	startErr  error
	done      chan struct{} // closed when the worker has exited

	stats stats
}

// Stats counts worker activity.
type Stats struct {
	BytesRead  uint64
	Frames     uint64 // frames extracted
	Dispatched uint64 // frames delivered to a handler
	Dropped    uint64 // frames with no registered handler
}

type stats struct {
	bytesRead  atomic.Uint64
	frames     atomic.Uint64
	dispatched atomic.Uint64
	dropped    atomic.Uint64
}

// New creates a Messenger that owns conn once started.
func New(conn Connection, cfg Config) (*Messenger, error) {
	if conn == nil {
		return nil, fmt.Errorf("messenger: nil connection")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Messenger{
		conn:     conn,
		cfg:      cfg,
		markers:  cfg.Markers(),
		registry: NewRegistry(),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Register routes message id to handler, decoding its fields with the
// layout spec. Registering an id again replaces the earlier entry.
func (m *Messenger) Register(id int, handler HandlerFunc, spec string) error {
	return m.registry.Register(id, handler, spec)
}

// Registry returns the messenger's registry.
func (m *Messenger) Registry() *Registry {
	return m.registry
}

// Config returns the wire settings.
func (m *Messenger) Config() Config {
	return m.cfg
}

// Start launches the worker and blocks until the handshake completes.
// It returns the handshake failure (ErrHandshakeTimeout) or any fault hit
// before the worker reached the running state. If ctx ends first the worker
// is stopped and ctx.Err() is returned.
func (m *Messenger) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return ErrClosed
		}
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	m.setState(StateHandshaking)
	go m.run()

	select {
	case <-m.ready:
		return m.startErr
	case <-ctx.Done():
		m.stop.Store(true)
		<-m.done
		return ctx.Err()
	}
}

// Close stops the worker and waits for it to exit. Shutdown takes at most
// one connection read timeout plus the duration of a running handler.
// Close always returns nil; faults are reported by Err.
func (m *Messenger) Close() error {
	m.stop.Store(true)

	m.mu.Lock()
	m.closed = true
	if !m.started {
		m.started = true
		m.mu.Unlock()
		m.setState(StateStopped)
		m.signalReady(ErrClosed)
		close(m.done)
		return nil
	}
	m.mu.Unlock()

	<-m.done
	return nil
}

// Done is closed when the worker has exited.
func (m *Messenger) Done() <-chan struct{} {
	return m.done
}

// State returns the current lifecycle state.
func (m *Messenger) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the reason the worker failed, or nil.
func (m *Messenger) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Stats returns a snapshot of the worker counters.
func (m *Messenger) Stats() Stats {
	return Stats{
		BytesRead:  m.stats.bytesRead.Load(),
		Frames:     m.stats.frames.Load(),
		Dispatched: m.stats.dispatched.Load(),
		Dropped:    m.stats.dropped.Load(),
	}
}

func (m *Messenger) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		logging.LogStateChange(prev.String(), s.String())
	}
}

func (m *Messenger) signalReady(err error) {
	m.readyOnce.Do(func() {
		m.startErr = err
		close(m.ready)
	})
}

// run is the worker body.
func (m *Messenger) run() {
	defer close(m.done)

	if err := m.conn.FlushInput(); err != nil {
		m.finish(fault("flush input", err))
		return
	}
	if err := m.conn.FlushOutput(); err != nil {
		m.finish(fault("flush output", err))
		return
	}

	if err := m.handshake(); err != nil {
		m.finish(err)
		return
	}

	m.setState(StateRunning)
	m.signalReady(nil)
	m.finish(m.loop())
}

// finish records how the worker ended.
func (m *Messenger) finish(err error) {
	m.stop.Store(true)

	if err == nil || isKind(err, KindClosed) {
		m.setState(StateStopped)
		m.signalReady(ErrClosed)
		return
	}

	m.mu.Lock()
	m.err = err
	m.mu.Unlock()

	logging.Error("Messenger stopped", zap.Error(err))
	m.setState(StateFailed)
	m.signalReady(err)
}

// loop reads chunks and dispatches every complete frame until stopped.
func (m *Messenger) loop() error {
	ex, err := m.markers.NewExtractor()
	if err != nil {
		return fault("extractor", err)
	}
	ex.SetMaxBuffer(m.cfg.MaxBuffer)

	buf := make([]byte, m.cfg.ChunkSize)
	for !m.stop.Load() {
		n, readErr := m.read(buf)
		if n > 0 {
			_, _ = ex.Write(buf[:n])
			for !m.stop.Load() {
				payload, ok := ex.Next()
				if !ok {
					break
				}
				m.stats.frames.Add(1)
				if err := m.dispatch(payload); err != nil {
					return err
				}
			}
			if err := ex.CheckLimit(); err != nil {
				return fault("receive buffer", err)
			}
		}
		if readErr != nil {
			return fault("read", readErr)
		}
	}
	return nil
}

// read performs one bounded read. Timeouts count as empty reads.
func (m *Messenger) read(buf []byte) (int, error) {
	n, err := m.conn.Read(buf)
	if n > 0 {
		m.stats.bytesRead.Add(uint64(n))
		logging.LogRawBytes("Received chunk", buf[:n])
	}
	if IsTimeout(err) {
		err = nil
	}
	return n, err
}

// dispatch decodes one payload and calls its handler synchronously.
func (m *Messenger) dispatch(payload []byte) error {
	id, body, err := protocol.SplitMessageID(payload)
	if err != nil {
		return fault("malformed payload", err)
	}

	entry, ok := m.registry.Lookup(id)
	if !ok {
		m.stats.dropped.Add(1)
		logging.Debug("Dropping unregistered message", zap.Int("message_id", id))
		return nil
	}

	fields, err := entry.Layout.Decode(body)
	if err != nil {
		return fault(fmt.Sprintf("decode message %d", id), err)
	}
	logging.LogFrame("received", id, body)

	if err := invoke(entry.Handler, id, fields); err != nil {
		return fault(fmt.Sprintf("handler for message %d", id), err)
	}
	m.stats.dispatched.Add(1)
	return nil
}

func invoke(h HandlerFunc, id int, fields []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(id, fields)
}

func isKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
