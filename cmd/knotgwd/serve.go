package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/cloud/simcloud"
	"github.com/prga/knotgw/pkg/gwaudit"
	"github.com/prga/knotgw/pkg/gwconfig"
	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/gwserver"
	"github.com/prga/knotgw/pkg/handler"
	"github.com/prga/knotgw/pkg/session"
)

var (
	listenOverride string
	auditLogPath   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept thing connections and bridge them to the cloud",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenOverride, "listen", "", "Override the configured listen socket path")
	serveCmd.Flags().StringVar(&auditLogPath, "audit-log", "", "Path to a JSON-lines audit log (disabled if empty)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.cfg
	listen := cfg.Listen
	if listenOverride != "" {
		listen = listenOverride
	}

	if auditLogPath != "" {
		al, err := gwaudit.NewFileLogger(auditLogPath, gwaudit.RotationConfig{MaxSize: 10 << 20, MaxBackups: 10})
		if err != nil {
			gwlog.Logger.WithError(err).Warn("serve: could not open audit log, continuing without one")
		} else {
			gwaudit.SetDefaultLogger(al)
			defer al.Close()
		}
	}

	client, err := newCloudClient(cfg)
	if err != nil {
		return fmt.Errorf("building cloud client: %w", err)
	}
	if closer, ok := client.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	deps := handler.Deps{
		Registry: session.NewRegistry(),
		Cloud:    client,
	}

	srv := gwserver.New(deps)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := srv.ServeControl(ctx, listen+".ctl"); err != nil {
			gwlog.Logger.WithError(err).Warn("serve: control socket stopped")
		}
	}()

	gwlog.WithField("cloud", cfg.Cloud).Info("serve: starting")
	err = srv.ListenAndServe(ctx, listen)

	// Every connection's own finalizeSession call races a naive DestroyAll
	// over the same handle, so wait for all serveConn goroutines (each
	// force-closed by ListenAndServe's shutdown path) to finish first; any
	// Trust still in the registry at that point has no connection left to
	// remove it, and still needs the rollback-on-shutdown finalizer spec
	// §6's stop() describes.
	srv.Wait()
	deps.Registry.DestroyAll(func(h session.Handle, trust *session.Trust) {
		defer trust.Unref()
		log := gwlog.WithHandle(int(h)).WithUUID(trust.UUID)
		if rmErr := client.Rmnode(context.Background(), trust.UUID, trust.Token); rmErr != nil {
			log.WithError(rmErr).Warn("serve: rollback rmnode failed on shutdown")
		} else {
			log.Info("serve: rolled back unfinished registration on shutdown")
		}
		gwaudit.Log(gwaudit.NewEvent(int(h), gwaudit.OpRollback).WithUUID(trust.UUID).WithDeviceID(trust.DeviceID))
	})
	return err
}

// newCloudClient builds the cloud.Client backend named by cfg.Cloud.
// gwconfig.Validate already rejected any value other than "simulate" for
// this build, so the switch's default case is unreachable in practice but
// kept explicit rather than panicking.
func newCloudClient(cfg *gwconfig.Config) (cloud.Client, error) {
	switch cfg.Cloud {
	case "simulate":
		return simcloud.NewFromAddr(cfg.Redis.Addr, cfg.Redis.DB), nil
	default:
		return nil, fmt.Errorf("unsupported cloud backend %q", cfg.Cloud)
	}
}
