package handler

import (
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

// ConfigResp implements spec §4.5.6: the thing acknowledges receipt of a
// config, so it is not re-sent. No response frame is emitted for this
// request kind; the dispatcher handles that, not this function.
func ConfigResp(deps Deps, handle session.Handle, sensorID uint8) knot.Result {
	trust, ok := deps.Registry.Lookup(handle)
	if !ok {
		return knot.CredentialUnauthorized
	}

	trust.RemoveConfig(sensorID)
	return knot.Success
}
