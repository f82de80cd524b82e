// Package gwserver accepts thing connections on a Unix stream socket and
// drives each one through pkg/dispatch, one goroutine per connection. It
// is the Go-native replacement for the original gateway's single-threaded
// epoll loop (see SPEC_FULL.md §4.2): the per-connection goroutine model
// is why pkg/session.Registry carries its own mutex.
package gwserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/prga/knotgw/pkg/dispatch"
	"github.com/prga/knotgw/pkg/gwaudit"
	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/handler"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

// Server listens on a Unix stream socket and dispatches each accepted
// connection's frames through deps.
type Server struct {
	Deps handler.Deps

	mu         sync.Mutex
	listener   net.Listener
	nextHandle int
	conns      map[net.Conn]struct{}
	wg         sync.WaitGroup
}

// New creates a Server backed by deps. deps.Registry must be non-nil.
func New(deps handler.Deps) *Server {
	return &Server{Deps: deps, conns: make(map[net.Conn]struct{})}
}

// ListenAndServe binds socketPath and accepts connections until ctx is
// canceled or a permanent accept error occurs. Any stale socket file left
// behind by a prior crashed run is removed first, matching the original
// gateway's unlink-before-bind startup.
func (s *Server) ListenAndServe(ctx context.Context, socketPath string) error {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("gwserver: removing stale socket: %w", err)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("gwserver: listen %s: %w", socketPath, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeActiveConns()
	}()

	gwlog.WithField("socket", socketPath).Info("gwserver: listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("gwserver: accept: %w", err)
		}

		handle := s.allocHandle()
		s.trackConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(conn)
			s.serveConn(ctx, handle, conn)
		}()
	}
}

// Wait blocks until every accepted connection's serveConn goroutine has
// returned. The caller must call it after ListenAndServe returns and
// before disposing of any remaining Registry entries (e.g. via
// DestroyAll), so a connection's own on-disconnect finalizeSession call
// cannot race a shutdown-time finalizer over the same handle.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// closeActiveConns force-closes every connection still being served, so
// shutdown doesn't wait on a thing that never disconnects on its own.
// Each serveConn loop observes the resulting read error and runs its own
// finalizeSession before returning.
func (s *Server) closeActiveConns() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (s *Server) allocHandle() session.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandle++
	return session.Handle(s.nextHandle)
}

// Close stops accepting new connections; connections already accepted run
// to completion.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) serveConn(ctx context.Context, handle session.Handle, conn net.Conn) {
	log := gwlog.WithHandle(int(handle))
	log.Info("gwserver: connection accepted")

	peerCreds := peerCredentialsOf(conn)

	defer func() {
		conn.Close()
		s.finalizeSession(ctx, handle)
		log.Info("gwserver: connection closed")
	}()

	reader := bufio.NewReader(conn)
	output := make([]byte, knot.MaxPDU)

	for {
		input, err := readFrame(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Debug("gwserver: read failed, dropping connection")
			}
			return
		}

		n, err := dispatch.Dispatch(ctx, s.Deps, handle, peerCreds, input, output)
		if err != nil {
			log.WithError(err).Debug("gwserver: dispatch rejected frame")
			continue
		}
		if n == 0 {
			continue
		}
		if _, err := conn.Write(output[:n]); err != nil {
			log.WithError(err).Debug("gwserver: write failed, dropping connection")
			return
		}
	}
}

// finalizeSession removes handle's Trust (if still present when the peer
// disconnected without an explicit UNREGISTER_REQ), honoring the rollback
// policy from spec §4.6: a device that registered but never committed a
// schema is best-effort removed from the cloud too.
func (s *Server) finalizeSession(ctx context.Context, handle session.Handle) {
	s.Deps.Registry.Remove(handle, func(h session.Handle, trust *session.Trust) {
		defer trust.Unref()
		log := gwlog.WithHandle(int(h)).WithUUID(trust.UUID)
		if err := s.Deps.Cloud.Rmnode(ctx, trust.UUID, trust.Token); err != nil {
			log.WithError(err).Warn("gwserver: rollback rmnode failed on disconnect")
		} else {
			log.Info("gwserver: rolled back unfinished registration on disconnect")
		}
		gwaudit.Log(gwaudit.NewEvent(int(h), gwaudit.OpRollback).WithUUID(trust.UUID).WithDeviceID(trust.DeviceID))
	})
}

// readFrame reads one {type, payload_len} header followed by payload_len
// bytes of body and returns the whole buffer unsliced, ready for
// wire.Decode.
func readFrame(r *bufio.Reader) ([]byte, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	body := make([]byte, header[1])
	if len(body) > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
	}
	return append(header, body...), nil
}
