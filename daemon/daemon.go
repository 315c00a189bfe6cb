/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package daemon

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"github.com/nabbar/go-httpd/conn"
	liberr "github.com/nabbar/go-httpd/errors"
	"github.com/nabbar/go-httpd/internal/timerheap"
	"github.com/nabbar/go-httpd/logger"
	loglvl "github.com/nabbar/go-httpd/logger/level"
	"github.com/nabbar/go-httpd/metrics"
	"github.com/nabbar/go-httpd/pool"
)

// Daemon owns one listener and every connection it has accepted, the same
// role httpserver.server played for the teacher's caller: Listen, WaitNotify
// and Shutdown become Start, Run (for ModeExternalEvents) and Stop here.
type Daemon struct {
	opt Options
	hdl conn.Handler
	log logger.Logger
	met *metrics.Metrics

	ln  net.Listener
	ips *ipTable
	heap *timerheap.Heap

	running atomic.Value // bool
	nextID  uint64

	regMu sync.Mutex
	reg   map[uint64]net.Conn // live connections, by id, for ModeInternalSelect's reaper

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

func (d *Daemon) register(id uint64, nc net.Conn) {
	if d.heap == nil {
		return
	}
	d.regMu.Lock()
	defer d.regMu.Unlock()
	if d.reg == nil {
		d.reg = make(map[uint64]net.Conn)
	}
	d.reg[id] = nc
}

func (d *Daemon) unregister(id uint64) {
	d.regMu.Lock()
	defer d.regMu.Unlock()
	delete(d.reg, id)
}

func (d *Daemon) forceClose(id uint64) {
	d.regMu.Lock()
	nc := d.reg[id]
	d.regMu.Unlock()
	if nc != nil {
		_ = nc.Close()
	}
}

// New builds a Daemon from already-validated Options. handler drives every
// accepted connection's Headers/Upload/Completed callbacks; lg may be nil,
// in which case logger.New() is used (InfoLevel, writing to stderr).
func New(opt Options, handler conn.Handler, lg logger.Logger) (*Daemon, liberr.Error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	if lg == nil {
		lg = logger.New()
	}

	var met *metrics.Metrics
	if opt.Registerer != nil {
		ns := opt.MetricsNamespace
		if ns == "" {
			ns = "httpd"
		}
		met = metrics.New(opt.Registerer, ns)
	}

	d := &Daemon{
		opt: opt,
		hdl: handler,
		log: lg,
		met: met,
		ips: newIPTable(opt.PerIPLimit),
	}
	d.running.Store(false)
	return d, nil
}

func (d *Daemon) IsRunning() bool {
	v, _ := d.running.Load().(bool)
	return v
}

func (d *Daemon) setRunning(b bool) {
	d.running.Store(b)
}

// Start binds the listener, applies the hard ConnectionLimit via
// golang.org/x/net/netutil.LimitListener, and launches the run-loop
// selected by Options.Mode. It returns once the listener is bound; the
// accept loop itself runs in a background goroutine (every mode except
// ModeExternalEvents, which the caller drives by hand via AcceptOne).
func (d *Daemon) Start() liberr.Error {
	if d.IsRunning() {
		return ErrorAlreadyRunning.Error(nil)
	}

	lc := net.ListenConfig{Control: d.listenControl}
	ln, err := lc.Listen(context.Background(), "tcp", d.opt.Listen)
	if err != nil {
		return ErrorListen.Error(err)
	}
	if d.opt.TLS != nil {
		cfg, terr := d.opt.TLS.TLS(d.opt.Listen)
		if terr != nil {
			_ = ln.Close()
			return terr
		}
		ln = tls.NewListener(ln, cfg)
	}
	if d.opt.ConnectionLimit > 0 {
		ln = netutil.LimitListener(ln, d.opt.ConnectionLimit)
	}

	d.ln = ln
	d.closeCh = make(chan struct{})
	d.setRunning(true)

	if d.opt.Mode == ModeInternalSelect || d.opt.Mode == ModeExternalEvents {
		d.heap = timerheap.New()
	}
	if d.opt.Mode == ModeInternalSelect {
		d.wg.Add(1)
		go d.reap()
	}

	switch d.opt.Mode {
	case ModeExternalEvents:
		// the caller drives admission and serving by hand via AcceptOne;
		// no internal accept loop is launched for this mode.
	case ModeThreadPool:
		size := d.opt.ThreadPoolSize
		if size <= 0 {
			size = 16
		}
		work := make(chan net.Conn)
		for i := 0; i < size; i++ {
			d.wg.Add(1)
			go d.poolWorker(work)
		}
		d.wg.Add(1)
		go d.acceptLoop(func(nc net.Conn) {
			select {
			case work <- nc:
			case <-d.closeCh:
				_ = nc.Close()
			}
		})
	default: // ModeThreadPerConnection, ModeInternalSelect
		d.wg.Add(1)
		go d.acceptLoop(func(nc net.Conn) {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.serve(nc)
			}()
		})
	}

	if d.opt.NotifyStarted != nil {
		d.opt.NotifyStarted()
	}
	return nil
}

func (d *Daemon) poolWorker(work <-chan net.Conn) {
	defer d.wg.Done()
	for {
		select {
		case nc := <-work:
			d.serve(nc)
		case <-d.closeCh:
			return
		}
	}
}

// acceptLoop runs Accept in a tight loop, applying PerIPLimit and
// PolicyCallback (the second and third admission stages; the hard
// ConnectionLimit is already enforced by the LimitListener wrapper) before
// dispatching each admitted connection to dispatch.
func (d *Daemon) acceptLoop(dispatch func(net.Conn)) {
	defer d.wg.Done()
	var backoff time.Duration
	for {
		nc, err := d.ln.Accept()
		if err != nil {
			select {
			case <-d.closeCh:
				return
			default:
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff *= 2
			}
			if backoff > time.Second {
				backoff = time.Second
			}
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		ip := hostOnly(nc.RemoteAddr().String())
		if !d.ips.admit(ip) {
			d.met.ConnectionRejected()
			_ = nc.Close()
			continue
		}
		if d.opt.PolicyCallback != nil && !d.opt.PolicyCallback(nc.RemoteAddr().String()) {
			d.ips.release(ip)
			d.met.ConnectionRejected()
			_ = nc.Close()
			continue
		}

		dispatch(nc)
	}
}

// AcceptOne performs one admission cycle and returns the accepted net.Conn
// for a ModeExternalEvents caller to drive by hand; NextTimeout and
// ExpireConnections give it the rest of the information a select(2) loop
// would otherwise have gathered itself.
func (d *Daemon) AcceptOne(ctx context.Context) (net.Conn, liberr.Error) {
	if d.opt.Mode != ModeExternalEvents {
		return nil, ErrorAccept.Error(fmt.Errorf("AcceptOne requires ModeExternalEvents"))
	}
	for {
		nc, err := d.ln.Accept()
		if err != nil {
			return nil, ErrorAccept.Error(err)
		}
		ip := hostOnly(nc.RemoteAddr().String())
		if !d.ips.admit(ip) {
			d.met.ConnectionRejected()
			_ = nc.Close()
			continue
		}
		if d.opt.PolicyCallback != nil && !d.opt.PolicyCallback(nc.RemoteAddr().String()) {
			d.ips.release(ip)
			d.met.ConnectionRejected()
			_ = nc.Close()
			continue
		}
		return nc, nil
	}
}

// Wrap builds the conn.Connection for a net.Conn obtained via AcceptOne
// and registers its deadline in the timer heap, so a ModeExternalEvents
// caller gets the same arena/state-machine wiring every other mode builds
// internally. The caller owns reading nc and calling Feed/WriteResponse
// from its own event loop from this point on.
func (d *Daemon) Wrap(nc net.Conn) *conn.Connection {
	id := d.nextConnID()
	arena := pool.NewArena(d.opt.ConnMemoryLimit)
	c := conn.New(id, nc.RemoteAddr().String(), arena, d.hdl, d.opt.IdleTimeout, d.opt.TotalLifetimeTimeout, d.opt.RFCStrictLineEndings)
	if d.heap != nil {
		d.heap.Set(id, c.EarliestDeadline())
		d.register(id, nc)
	}
	return c
}

// Run performs one pass of the library's deadline work for a caller-driven
// loop (ModeExternalEvents): every tracked connection whose deadline has
// elapsed is force-closed and its id reported. The caller's own loop sees
// the close as a read error on that connection and releases its state.
func (d *Daemon) Run(now time.Time) []uint64 {
	ids := d.ExpireConnections(now)
	for _, id := range ids {
		d.forceClose(id)
		d.unregister(id)
	}
	return ids
}

// NextTimeout reports the duration until the earliest tracked connection
// deadline, for a ModeInternalSelect/ModeExternalEvents caller's own loop.
func (d *Daemon) NextTimeout(now time.Time) (time.Duration, bool) {
	if d.heap == nil {
		return 0, false
	}
	return d.heap.NextTimeout(now)
}

// ExpireConnections returns the ids of every tracked connection whose
// deadline has already elapsed, removing them from the heap.
func (d *Daemon) ExpireConnections(now time.Time) []uint64 {
	if d.heap == nil {
		return nil
	}
	return d.heap.Expired(now)
}

// reap is ModeInternalSelect's backstop goroutine: it force-closes
// connections whose deadline elapsed independent of their own blocking
// Read, the same "wake up, scan, act" shape as httpserver's WaitNotify
// select loop, expressed over a timer instead of an OS signal channel.
func (d *Daemon) reap() {
	defer d.wg.Done()
	t := time.NewTimer(time.Second)
	defer t.Stop()
	for {
		select {
		case <-d.closeCh:
			return
		case now := <-t.C:
			if d.heap != nil {
				for _, id := range d.heap.Expired(now) {
					d.forceClose(id)
				}
			}
			delay, ok := d.NextTimeout(now)
			if !ok || delay > time.Second {
				delay = time.Second
			}
			if delay <= 0 {
				delay = time.Millisecond
			}
			t.Reset(delay)
		}
	}
}

func (d *Daemon) nextConnID() uint64 {
	return atomic.AddUint64(&d.nextID, 1)
}

// serve drives one accepted connection end to end: Feed every inbound
// chunk into its Connection, write a Response as soon as the handler has
// queued one and the request is fully received, and loop for the next
// pipelined request until the peer closes or a protocol error forces the
// connection shut per spec.md §7's per-connection error handling.
func (d *Daemon) serve(nc net.Conn) {
	ip := hostOnly(nc.RemoteAddr().String())
	id := d.nextConnID()

	defer func() {
		_ = nc.Close()
		d.ips.release(ip)
		d.met.ConnectionClosed()
		if d.heap != nil {
			d.heap.Remove(id)
			d.unregister(id)
		}
	}()
	defer d.recoverPanic(nc.RemoteAddr().String())

	cc := &countingConn{Conn: nc, m: d.met}
	d.met.ConnectionOpened()
	d.register(id, nc)

	arena := pool.NewArena(d.opt.ConnMemoryLimit)
	c := conn.New(id, nc.RemoteAddr().String(), arena, d.hdl, d.opt.IdleTimeout, d.opt.TotalLifetimeTimeout, d.opt.RFCStrictLineEndings)

	if d.heap != nil {
		d.heap.Set(id, c.EarliestDeadline())
	}

	buf := make([]byte, 16*1024)
	for {
		select {
		case <-d.closeCh:
			return
		default:
		}

		// A pipelined request may already sit fully buffered from the
		// previous Feed (the keep-alive reset in WriteResponse preserves
		// any bytes past the prior request's end), so try to advance the
		// state machine before blocking on a fresh Read — otherwise a
		// second pipelined request already in memory would wait for more
		// socket data that may never arrive.
		if ferr := c.Feed(nil); ferr != nil {
			d.writeCannedError(cc, ferr)
			return
		}
		if c.NeedsContinue() {
			if cerr := c.WriteContinue(cc); cerr != nil {
				return
			}
		}

		if st := c.State(); c.HasResponse() && (st == conn.StateFootersReceived || st == conn.StateHeadersSending) {
			closed, werr := d.writeQueued(c, cc)
			if werr != nil || closed {
				return
			}
			if d.heap != nil {
				d.heap.Set(id, c.EarliestDeadline())
			}
			continue
		}

		deadline := c.EarliestDeadline()
		if c.Suspended() {
			// a suspended connection has no socket event to wake this loop
			// the moment its handler calls Resume, so poll on a short
			// deadline instead of sleeping until the lifetime cap
			if p := time.Now().Add(50 * time.Millisecond); p.Before(deadline) {
				deadline = p
			}
		}
		_ = nc.SetReadDeadline(deadline)
		n, rerr := cc.Read(buf)

		if n > 0 {
			if ferr := c.Feed(buf[:n]); ferr != nil {
				d.writeCannedError(cc, ferr)
				return
			}
			if c.NeedsContinue() {
				if cerr := c.WriteContinue(cc); cerr != nil {
					return
				}
			}
		}

		if d.heap != nil {
			d.heap.Set(id, c.EarliestDeadline())
		}

		if st := c.State(); c.HasResponse() && (st == conn.StateFootersReceived || st == conn.StateHeadersSending) {
			closed, werr := d.writeQueued(c, cc)
			if werr != nil || closed {
				return
			}
			continue
		}

		if rerr != nil {
			if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				now := time.Now()
				if now.After(c.TotalLifetimeDeadline()) {
					return
				}
				if !c.Suspended() && now.After(c.IdleDeadline()) {
					return
				}
				continue
			}
			return
		}
	}
}

// writeQueued serializes the queued response, then emits the access-log
// line and request metric. The per-request values are captured before
// WriteResponse runs because its keep-alive path resets them.
func (d *Daemon) writeQueued(c *conn.Connection, w net.Conn) (closed bool, err liberr.Error) {
	method, url, proto := c.RequestMethod(), c.RequestURL(), c.RequestProto()
	status, _ := c.ResponseStatus()
	start := time.Now()

	if werr := c.WriteResponse(w); werr != nil {
		return true, werr
	}

	d.met.RequestCompleted(method, status)
	d.log.Access(w.RemoteAddr().String(), method, url, proto, status, 0, start).Log()
	return c.State() == conn.StateClosed, nil
}

func (d *Daemon) recoverPanic(remoteAddr string) {
	if r := recover(); r != nil {
		if d.opt.PanicHook != nil {
			d.opt.PanicHook(remoteAddr, r)
			return
		}
		d.log.Entry(loglvl.PanicLevel, "recovered panic serving connection").
			WithField("remoteAddr", remoteAddr).
			WithField("recover", fmt.Sprintf("%v", r)).
			Log()
	}
}

func (d *Daemon) writeCannedError(w net.Conn, ferr liberr.Error) {
	status := 400
	if ferr.IsCode(conn.ErrorHeaderTooLarge) || ferr.IsCode(conn.ErrorTooManyHeaders) {
		status = 431
	}
	_, _ = fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nConnection: close\r\nContent-Length: 0\r\n\r\n", status, http.StatusText(status))
}

// listenControl applies best-effort SO_REUSEADDR when Options.ReusePort is
// set. True multi-process SO_REUSEPORT is platform-specific and outside
// what the standard syscall package exposes portably, so ReusePort is
// documented here as "best effort, single listener, fast restart" rather
// than the load-balancing SO_REUSEPORT semantics its name might suggest.
func (d *Daemon) listenControl(_, _ string, c syscall.RawConn) error {
	if !d.opt.ReusePort {
		return nil
	}
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = setReuseAddr(fd)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// Stop closes the listener and signals every connection goroutine via
// closeCh, then blocks until they exit or ctx is done. If ctx ends first,
// Stop returns ErrorShutdownTimeout; connections still being served at
// that point are not closed by Stop.
func (d *Daemon) Stop(ctx context.Context) liberr.Error {
	if !d.IsRunning() {
		return ErrorNotRunning.Error(nil)
	}
	d.setRunning(false)

	d.closeOnce.Do(func() {
		close(d.closeCh)
	})
	if d.ln != nil {
		_ = d.ln.Close()
	}
	if d.heap != nil {
		d.heap.Close()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrorShutdownTimeout.Error(ctx.Err())
	}
}
