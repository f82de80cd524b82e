package gwserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"

	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/session"
)

// ServeControl listens on a second Unix socket dedicated to diagnostic
// queries from knotgwctl: each accepted connection receives one JSON-
// encoded snapshot of every live session and the connection is then
// closed. It is intentionally much simpler than the thing-facing
// listener since only a trusted local admin tool ever dials it.
func (s *Server) ServeControl(ctx context.Context, ctlSocketPath string) error {
	if err := os.Remove(ctlSocketPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	ln, err := net.Listen("unix", ctlSocketPath)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}
		go s.serveControlConn(conn)
	}
}

func (s *Server) serveControlConn(conn net.Conn) {
	defer conn.Close()
	snap := s.Deps.Registry.Snapshot()
	if err := json.NewEncoder(conn).Encode(snap); err != nil {
		gwlog.Logger.WithError(err).Debug("gwserver: control connection encode failed")
	}
}

// QuerySessions dials a running daemon's control socket and returns its
// current session snapshot. Used by knotgwctl.
func QuerySessions(ctlSocketPath string) ([]session.Session, error) {
	conn, err := net.Dial("unix", ctlSocketPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var snap []session.Session
	if err := json.NewDecoder(conn).Decode(&snap); err != nil {
		return nil, err
	}
	return snap, nil
}
