package handler

import (
	"context"

	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/gwaudit"
	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

// Schema implements spec §4.5.4. It is called once per sensor fragment;
// eof is true for the fragment carried in a SCHEMA_END frame.
func Schema(ctx context.Context, deps Deps, handle session.Handle, sensor knot.SensorSchema, eof bool) knot.Result {
	trust, ok := deps.Registry.Lookup(handle)
	if !ok {
		return knot.CredentialUnauthorized
	}

	// The peer has begun schema publication, which only happens after it
	// received valid credentials: safe to stop treating it as rollback-
	// pending (spec §4.5.4 step 2; avoids a cloning attack where a cloned
	// device never completes schema to keep its cloud node alive).
	trust.ClearRollback()

	if !trust.StagingContains(sensor.SensorID) {
		trust.StagingAppend(sensor)
	}

	if !eof {
		return knot.Success
	}

	staged := trust.StagingSnapshot()
	if err := deps.Cloud.Schema(ctx, trust.UUID, trust.Token, staged); err != nil {
		gwlog.WithHandle(int(handle)).WithUUID(trust.UUID).WithError(err).Warn("schema: cloud commit failed, discarding staging")
		trust.StagingDiscard()
		result := cloud.ResultOf(err)
		gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpSchemaCommit).WithUUID(trust.UUID).WithResult(result).WithError(err))
		return result
	}

	trust.StagingCommit()
	gwlog.WithHandle(int(handle)).WithUUID(trust.UUID).WithField("sensors", len(staged)).Info("schema: committed")
	gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpSchemaCommit).WithUUID(trust.UUID).WithResult(knot.Success))
	return knot.Success
}
