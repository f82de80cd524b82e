package handler

import (
	"context"

	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

// Data implements spec §4.5.5: a sensor reading flowing thing → cloud.
func Data(ctx context.Context, deps Deps, handle session.Handle, sensorID uint8, payload [8]byte) knot.Result {
	trust, ok := deps.Registry.Lookup(handle)
	if !ok {
		return knot.CredentialUnauthorized
	}

	schema, ok := trust.FindAccepted(sensorID)
	if !ok {
		return knot.InvalidData
	}
	if !deps.schemaValid(schema.TypeID, schema.ValueType, schema.Unit) {
		return knot.InvalidData
	}

	err := deps.Cloud.Data(ctx, trust.UUID, trust.Token, sensorID, schema.ValueType, payload)
	result := cloud.ResultOf(err)

	// Fire-and-forget: pull any pending set-data for this sensor so it
	// round-trips to the device on a future frame. Its own result is
	// never surfaced (spec §4.5.5 step 5).
	if gderr := deps.Cloud.Getdata(ctx, trust.UUID, trust.Token, sensorID); gderr != nil {
		gwlog.WithHandle(int(handle)).WithField("sensor_id", sensorID).WithError(gderr).Debug("data: getdata pull failed, ignored")
	}

	return result
}
