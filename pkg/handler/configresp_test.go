package handler

import (
	"testing"

	"github.com/prga/knotgw/pkg/knot"
)

func TestConfigRespUnauthorizedWithoutSession(t *testing.T) {
	deps, _ := newTestDeps()
	if res := ConfigResp(deps, 1, 1); res != knot.CredentialUnauthorized {
		t.Fatalf("got %v, want CredentialUnauthorized", res)
	}
}

func TestConfigRespRemovesAcknowledgedEntry(t *testing.T) {
	deps, _ := newTestDeps()
	trust := newAuthenticatedTrust(deps, 1, "uuid")
	trust.SetConfig([]knot.SensorConfig{{SensorID: 1}, {SensorID: 2}})

	if res := ConfigResp(deps, 1, 1); res != knot.Success {
		t.Fatalf("got %v, want Success", res)
	}

	cfg := trust.Config()
	if len(cfg) != 1 || cfg[0].SensorID != 2 {
		t.Fatalf("got %+v, want only sensor 2 remaining", cfg)
	}
}
