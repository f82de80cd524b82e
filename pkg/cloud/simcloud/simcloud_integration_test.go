//go:build integration

package simcloud

import (
	"testing"

	"github.com/prga/knotgw/internal/testutil"
	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/knot"
)

const testDB = 9

func newTestClient(t *testing.T) *Client {
	t.Helper()
	testutil.RequireRedis(t)
	addr := testutil.RedisAddr()
	testutil.FlushDB(t, addr, testDB)
	c := NewFromAddr(addr, testDB)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRegisterAuthenticateSchemaDataRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := testutil.Context(t)

	uuid, token, err := c.Mknode(ctx, "thing-a", 7)
	if err != nil {
		t.Fatalf("Mknode: %v", err)
	}
	if len(uuid) != knot.UUIDLen || len(token) != knot.TokenLen {
		t.Fatalf("got uuid/token lengths %d/%d, want %d/%d", len(uuid), len(token), knot.UUIDLen, knot.TokenLen)
	}

	schema, cfg, err := c.Signin(ctx, uuid, token)
	if err != nil {
		t.Fatalf("Signin: %v", err)
	}
	if schema != nil || cfg != nil {
		t.Fatalf("expected no schema/config on a freshly registered node, got %+v / %+v", schema, cfg)
	}

	want := []knot.SensorSchema{{SensorID: 1, TypeID: 1, ValueType: 1, Unit: 1, Name: "temp"}}
	if err := c.Schema(ctx, uuid, token, want); err != nil {
		t.Fatalf("Schema: %v", err)
	}

	gotSchema, _, err := c.Signin(ctx, uuid, token)
	if err != nil {
		t.Fatalf("Signin after schema commit: %v", err)
	}
	if len(gotSchema) != 1 || gotSchema[0].SensorID != 1 || gotSchema[0].Name != "temp" {
		t.Fatalf("got %+v, want the committed schema to round-trip", gotSchema)
	}

	if err := c.Data(ctx, uuid, token, 1, 1, [8]byte{1, 2, 3}); err != nil {
		t.Fatalf("Data: %v", err)
	}
}

func TestMknodeIsDeterministicPerDeviceIdentity(t *testing.T) {
	c := newTestClient(t)
	ctx := testutil.Context(t)

	uuid1, token1, err := c.Mknode(ctx, "thing-a", 7)
	if err != nil {
		t.Fatalf("Mknode: %v", err)
	}
	uuid2, token2, err := c.Mknode(ctx, "thing-a", 7)
	if err != nil {
		t.Fatalf("Mknode (second): %v", err)
	}
	if uuid1 != uuid2 || token1 != token2 {
		t.Fatal("expected the same device name/id to derive the same credential")
	}
}

func TestSigninRejectsWrongToken(t *testing.T) {
	c := newTestClient(t)
	ctx := testutil.Context(t)

	uuid, _, err := c.Mknode(ctx, "thing-b", 9)
	if err != nil {
		t.Fatalf("Mknode: %v", err)
	}

	_, _, err = c.Signin(ctx, uuid, "wrong-token")
	if res := cloud.ResultOf(err); res != knot.CredentialUnauthorized {
		t.Fatalf("got %v, want CredentialUnauthorized", res)
	}
}

func TestSeedPendingSetDataRoundTripsThroughSetdata(t *testing.T) {
	c := newTestClient(t)
	ctx := testutil.Context(t)

	uuid, token, err := c.Mknode(ctx, "thing-c", 11)
	if err != nil {
		t.Fatalf("Mknode: %v", err)
	}

	if err := c.SeedPendingSetData(ctx, uuid, 3, [8]byte{9}); err != nil {
		t.Fatalf("SeedPendingSetData: %v", err)
	}
	if err := c.Setdata(ctx, uuid, token, 3); err != nil {
		t.Fatalf("Setdata: %v", err)
	}
	// Consuming it again is a defined no-op, not an error.
	if err := c.Setdata(ctx, uuid, token, 3); err != nil {
		t.Fatalf("Setdata (second, already consumed): %v", err)
	}
}

func TestRmnodeRemovesAllAssociatedRecords(t *testing.T) {
	c := newTestClient(t)
	ctx := testutil.Context(t)

	uuid, token, err := c.Mknode(ctx, "thing-d", 13)
	if err != nil {
		t.Fatalf("Mknode: %v", err)
	}
	if err := c.Rmnode(ctx, uuid, token); err != nil {
		t.Fatalf("Rmnode: %v", err)
	}

	_, _, err = c.Signin(ctx, uuid, token)
	if res := cloud.ResultOf(err); res != knot.CredentialUnauthorized {
		t.Fatalf("got %v, want CredentialUnauthorized after the node was removed", res)
	}
}
