package handler

import (
	"context"

	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/config"
	"github.com/prga/knotgw/pkg/gwaudit"
	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

// Authenticate implements spec §4.5.3.
func Authenticate(ctx context.Context, deps Deps, handle session.Handle, uuid, token string) knot.Result {
	if _, ok := deps.Registry.Lookup(handle); ok {
		// Idempotent: already authenticated on this handle.
		return knot.Success
	}

	schema, cfg, err := deps.Cloud.Signin(ctx, uuid, token)
	if err != nil {
		gwlog.WithHandle(int(handle)).WithError(err).Warn("auth: signin failed")
		result := cloud.ResultOf(err)
		gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpAuthenticate).WithUUID(uuid).WithResult(result).WithError(err))
		return result
	}

	if len(schema) == 0 {
		gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpAuthenticate).WithUUID(uuid).WithResult(knot.SchemaEmpty))
		return knot.SchemaEmpty
	}

	// Config-validation failure is recovered locally: authentication still
	// succeeds, but the device starts with an empty config (spec §4.5.3
	// step 4, §7 "Local recovery").
	if err := config.Validate(cfg); err != nil {
		gwlog.WithHandle(int(handle)).WithUUID(uuid).WithError(err).Warn("auth: cloud sent invalid config, discarding")
		cfg = nil
	}

	trust := session.New(uuid, token, 0, 0, false)
	trust.SetAcceptedSchema(schema)
	trust.SetConfig(cfg)
	deps.Registry.Insert(handle, trust)
	trust.Unref()

	gwlog.WithHandle(int(handle)).WithUUID(uuid).Info("auth: session established")
	gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpAuthenticate).WithUUID(uuid).WithResult(knot.Success))
	return knot.Success
}
