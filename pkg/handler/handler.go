// Package handler implements the per-request-kind session handlers from
// spec §4.5: register, unregister, authenticate, schema, data,
// config-response, and setdata-response.
package handler

import (
	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

// Deps bundles the collaborators every handler needs: the trust registry
// and the cloud client. SchemaIsValid is injectable so tests can exercise
// the Data/SetDataResp handlers against a hostile predicate without
// depending on the production rule.
type Deps struct {
	Registry      *session.Registry
	Cloud         cloud.Client
	SchemaIsValid knot.SchemaIsValid
}

func (d Deps) schemaValid(typeID uint16, valueType, unit uint8) bool {
	if d.SchemaIsValid != nil {
		return d.SchemaIsValid(typeID, valueType, unit)
	}
	return knot.DefaultSchemaIsValid(typeID, valueType, unit)
}
