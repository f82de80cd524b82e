// Package cloudtest provides an in-memory cloud.Client test double for
// exercising the session handlers and dispatcher without a network
// dependency.
package cloudtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/knot"
)

// Client is a scriptable cloud.Client: each method's behavior can be
// overridden by setting the matching func field before use; unset fields
// fall back to a minimal in-memory default that is enough for most
// handler tests.
type Client struct {
	mu sync.Mutex

	MknodeFunc func(ctx context.Context, name string, id uint64) (string, string, error)
	RmnodeFunc func(ctx context.Context, uuid, token string) error
	SigninFunc func(ctx context.Context, uuid, token string) ([]knot.SensorSchema, []knot.SensorConfig, error)
	SchemaFunc func(ctx context.Context, uuid, token string, schema []knot.SensorSchema) error
	DataFunc   func(ctx context.Context, uuid, token string, sensorID uint8, valueType uint8, payload [8]byte) error
	GetdataFunc func(ctx context.Context, uuid, token string, sensorID uint8) error
	SetdataFunc func(ctx context.Context, uuid, token string, sensorID uint8) error

	// Call counters, for assertions like "mknode invoked exactly once".
	MknodeCalls  int
	RmnodeCalls  int
	SigninCalls  int
	SchemaCalls  int
	DataCalls    int
	GetdataCalls int
	SetdataCalls int

	nextID int
	nodes  map[string]bool // uuid -> exists
}

// New returns a Client with sequential deterministic uuid/token
// generation, suitable as a default when a test doesn't care about their
// exact values.
func New() *Client {
	return &Client{nodes: make(map[string]bool)}
}

func (c *Client) Mknode(ctx context.Context, name string, id uint64) (string, string, error) {
	c.mu.Lock()
	c.MknodeCalls++
	c.nextID++
	n := c.nextID
	c.mu.Unlock()

	if c.MknodeFunc != nil {
		return c.MknodeFunc(ctx, name, id)
	}
	uuid := fmt.Sprintf("%036d", n)
	token := fmt.Sprintf("%040d", n)
	c.mu.Lock()
	c.nodes[uuid] = true
	c.mu.Unlock()
	return uuid, token, nil
}

func (c *Client) Rmnode(ctx context.Context, uuid, token string) error {
	c.mu.Lock()
	c.RmnodeCalls++
	delete(c.nodes, uuid)
	c.mu.Unlock()
	if c.RmnodeFunc != nil {
		return c.RmnodeFunc(ctx, uuid, token)
	}
	return nil
}

func (c *Client) Signin(ctx context.Context, uuid, token string) ([]knot.SensorSchema, []knot.SensorConfig, error) {
	c.mu.Lock()
	c.SigninCalls++
	c.mu.Unlock()
	if c.SigninFunc != nil {
		return c.SigninFunc(ctx, uuid, token)
	}
	return nil, nil, nil
}

func (c *Client) Schema(ctx context.Context, uuid, token string, schema []knot.SensorSchema) error {
	c.mu.Lock()
	c.SchemaCalls++
	c.mu.Unlock()
	if c.SchemaFunc != nil {
		return c.SchemaFunc(ctx, uuid, token, schema)
	}
	return nil
}

func (c *Client) Data(ctx context.Context, uuid, token string, sensorID uint8, valueType uint8, payload [8]byte) error {
	c.mu.Lock()
	c.DataCalls++
	c.mu.Unlock()
	if c.DataFunc != nil {
		return c.DataFunc(ctx, uuid, token, sensorID, valueType, payload)
	}
	return nil
}

func (c *Client) Getdata(ctx context.Context, uuid, token string, sensorID uint8) error {
	c.mu.Lock()
	c.GetdataCalls++
	c.mu.Unlock()
	if c.GetdataFunc != nil {
		return c.GetdataFunc(ctx, uuid, token, sensorID)
	}
	return nil
}

func (c *Client) Setdata(ctx context.Context, uuid, token string, sensorID uint8) error {
	c.mu.Lock()
	c.SetdataCalls++
	c.mu.Unlock()
	if c.SetdataFunc != nil {
		return c.SetdataFunc(ctx, uuid, token, sensorID)
	}
	return nil
}

// Err is a small helper for tests that want a handler to see a specific
// wire result code surfacing from a cloud call.
func Err(result knot.Result) error {
	return cloud.NewError(result, nil)
}

var _ cloud.Client = (*Client)(nil)
