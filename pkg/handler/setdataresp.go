package handler

import (
	"context"

	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

// SetDataResp implements spec §4.5.7: the thing acknowledges/commits a
// set-data. Steps 1-3 mirror Data; then the pending set-data record is
// consumed and the resulting state republished. No response frame is
// emitted for this request kind.
func SetDataResp(ctx context.Context, deps Deps, handle session.Handle, sensorID uint8, payload [8]byte) knot.Result {
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

	if err := deps.Cloud.Setdata(ctx, trust.UUID, trust.Token, sensorID); err != nil {
		gwlog.WithHandle(int(handle)).WithField("sensor_id", sensorID).WithError(err).Warn("setdata-resp: setdata failed")
	}

	if err := deps.Cloud.Data(ctx, trust.UUID, trust.Token, sensorID, schema.ValueType, payload); err != nil {
		gwlog.WithHandle(int(handle)).WithField("sensor_id", sensorID).WithError(err).Warn("setdata-resp: data publish failed")
	}

	return knot.Success
}
