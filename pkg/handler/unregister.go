package handler

import (
	"context"

	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/gwaudit"
	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

// Unregister implements spec §4.5.2. The Trust is removed from the
// registry before the cloud call; per the open question in spec §9, a
// failed cloud.Rmnode does not restore the local session.
func Unregister(ctx context.Context, deps Deps, handle session.Handle) knot.Result {
	trust, ok := deps.Registry.Remove(handle, nil)
	if !ok {
		return knot.CredentialUnauthorized
	}
	defer trust.Unref()

	if err := deps.Cloud.Rmnode(ctx, trust.UUID, trust.Token); err != nil {
		gwlog.WithHandle(int(handle)).WithError(err).Warn("unregister: rmnode failed, session already dropped locally")
		result := cloud.ResultOf(err)
		gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpUnregister).WithDeviceID(trust.DeviceID).WithUUID(trust.UUID).WithResult(result).WithError(err))
		return result
	}

	gwlog.WithHandle(int(handle)).Info("unregister: device removed")
	gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpUnregister).WithDeviceID(trust.DeviceID).WithUUID(trust.UUID).WithResult(knot.Success))
	return knot.Success
}
