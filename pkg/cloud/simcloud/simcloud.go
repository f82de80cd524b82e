// Package simcloud is a reference cloud.Client backed by Redis, used by
// integration tests and by the gateway daemon when its config selects
// `cloud: simulate`, in place of a real cloud backend. It mirrors the teacher's ConfigDBClient/
// AppDBClient pattern of keying Redis hashes as "TABLE|key" (see
// pkg/device/configdb.go, pkg/device/appldb.go in the teacher repo).
package simcloud

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/blake2b"

	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/knot"
)

const (
	nodeTable  = "NODE"
	schemaTable = "SCHEMA"
	configTable = "CONFIG"
	pendingTable = "PENDING_SETDATA"
	dataLogTable = "DATA_LOG"

	// dataLogCap bounds how many readings DATA_LOG|<uuid> retains; it
	// exists purely so a demo run's Redis footprint doesn't grow
	// unbounded, mirroring no particular teacher behavior (there is no
	// data log in the cloud contract) — a pragmatic addition of this
	// simulator.
	dataLogCap = 200
)

// Client is a Redis-backed reference implementation of cloud.Client.
type Client struct {
	rdb  *redis.Client
	salt [16]byte
}

// New wraps an existing *redis.Client.
func New(rdb *redis.Client) *Client {
	c := &Client{rdb: rdb}
	_, _ = rand.Read(c.salt[:])
	return c
}

// NewFromAddr dials a Redis server at addr/db, matching the teacher's
// redis.NewClient(&redis.Options{Addr: addr, DB: db}) construction.
func NewFromAddr(addr string, db int) *Client {
	return New(redis.NewClient(&redis.Options{Addr: addr, DB: db}))
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func nodeKey(uuid string) string    { return nodeTable + "|" + uuid }
func schemaKey(uuid string) string  { return schemaTable + "|" + uuid }
func configKey(uuid string) string  { return configTable + "|" + uuid }
func pendingKey(uuid string) string { return pendingTable + "|" + uuid }
func dataLogKey(uuid string) string { return dataLogTable + "|" + uuid }

// Mknode derives a deterministic UUID/token pair from the device name,
// id, and a per-process random salt using a keyed BLAKE2b hash (rather
// than hand-rolling string formatting over crypto/rand output directly),
// and stores the new node as a Redis hash.
func (c *Client) Mknode(ctx context.Context, deviceName string, deviceID uint64) (string, string, error) {
	uuid, token, err := c.deriveCredential(deviceName, deviceID)
	if err != nil {
		return "", "", cloud.NewError(knot.ErrorUnknown, err)
	}

	err = c.rdb.HSet(ctx, nodeKey(uuid), map[string]interface{}{
		"token":       token,
		"device_name": deviceName,
		"device_id":   deviceID,
	}).Err()
	if err != nil {
		return "", "", cloud.NewError(knot.ErrorUnknown, err)
	}

	return uuid, token, nil
}

func (c *Client) deriveCredential(deviceName string, deviceID uint64) (uuid, token string, err error) {
	uuidHash, err := blake2b.New(knot.UUIDLen/2, c.salt[:])
	if err != nil {
		return "", "", err
	}
	fmt.Fprintf(uuidHash, "uuid:%s:%d", deviceName, deviceID)
	uuid = hex.EncodeToString(uuidHash.Sum(nil))[:knot.UUIDLen]

	tokenHash, err := blake2b.New(knot.TokenLen/2, c.salt[:])
	if err != nil {
		return "", "", err
	}
	fmt.Fprintf(tokenHash, "token:%s:%d", deviceName, deviceID)
	token = hex.EncodeToString(tokenHash.Sum(nil))[:knot.TokenLen]

	return uuid, token, nil
}

// Rmnode removes a device and all its associated records.
func (c *Client) Rmnode(ctx context.Context, uuid, token string) error {
	if err := c.checkAuth(ctx, uuid, token); err != nil {
		return err
	}
	c.rdb.Del(ctx, nodeKey(uuid), schemaKey(uuid), configKey(uuid), pendingKey(uuid), dataLogKey(uuid))
	return nil
}

// Signin authenticates uuid/token and returns whatever schema/config the
// cloud currently has on file for this device (nil/nil if none yet).
func (c *Client) Signin(ctx context.Context, uuid, token string) ([]knot.SensorSchema, []knot.SensorConfig, error) {
	if err := c.checkAuth(ctx, uuid, token); err != nil {
		return nil, nil, err
	}

	var schema []knot.SensorSchema
	if raw, err := c.rdb.HGet(ctx, schemaKey(uuid), "list").Result(); err == nil {
		_ = json.Unmarshal([]byte(raw), &schema)
	} else if err != redis.Nil {
		return nil, nil, cloud.NewError(knot.ErrorUnknown, err)
	}

	var cfg []knot.SensorConfig
	if raw, err := c.rdb.HGet(ctx, configKey(uuid), "list").Result(); err == nil {
		_ = json.Unmarshal([]byte(raw), &cfg)
	} else if err != redis.Nil {
		return nil, nil, cloud.NewError(knot.ErrorUnknown, err)
	}

	return schema, cfg, nil
}

// Schema commits the fully staged sensor schema for a device.
func (c *Client) Schema(ctx context.Context, uuid, token string, schema []knot.SensorSchema) error {
	if err := c.checkAuth(ctx, uuid, token); err != nil {
		return err
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return cloud.NewError(knot.ErrorUnknown, err)
	}
	if err := c.rdb.HSet(ctx, schemaKey(uuid), "list", raw).Err(); err != nil {
		return cloud.NewError(knot.ErrorUnknown, err)
	}
	return nil
}

// Data appends a sensor reading to the device's bounded data log.
func (c *Client) Data(ctx context.Context, uuid, token string, sensorID uint8, valueType uint8, payload [8]byte) error {
	if err := c.checkAuth(ctx, uuid, token); err != nil {
		return err
	}
	rec, err := json.Marshal(struct {
		SensorID  uint8  `json:"sensor_id"`
		ValueType uint8  `json:"value_type"`
		Payload   []byte `json:"payload"`
	}{sensorID, valueType, payload[:]})
	if err != nil {
		return cloud.NewError(knot.ErrorUnknown, err)
	}

	key := dataLogKey(uuid)
	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, key, rec)
	pipe.LTrim(ctx, key, -dataLogCap, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return cloud.NewError(knot.ErrorUnknown, err)
	}
	return nil
}

// Getdata is a no-op in the simulator beyond authorization: the real
// cloud's push of pending set-data happens out of band. Present so the
// simulator satisfies cloud.Client; it neither reads nor changes the
// pending hash and records no call count.
func (c *Client) Getdata(ctx context.Context, uuid, token string, sensorID uint8) error {
	return c.checkAuth(ctx, uuid, token)
}

// Setdata consumes (removes) the pending set-data record for sensorID, if
// any was seeded via SeedPendingSetData.
func (c *Client) Setdata(ctx context.Context, uuid, token string, sensorID uint8) error {
	if err := c.checkAuth(ctx, uuid, token); err != nil {
		return err
	}
	if err := c.rdb.HDel(ctx, pendingKey(uuid), fmt.Sprint(sensorID)).Err(); err != nil {
		return cloud.NewError(knot.ErrorUnknown, err)
	}
	return nil
}

// SeedPendingSetData records a pending set-data value for sensorID, as if
// an operator had pushed a new desired value through the cloud's
// dashboard. Exercised by the integration tests; the daemon never calls it.
func (c *Client) SeedPendingSetData(ctx context.Context, uuid string, sensorID uint8, payload [8]byte) error {
	return c.rdb.HSet(ctx, pendingKey(uuid), fmt.Sprint(sensorID), payload[:]).Err()
}

func (c *Client) checkAuth(ctx context.Context, uuid, token string) error {
	stored, err := c.rdb.HGet(ctx, nodeKey(uuid), "token").Result()
	if err == redis.Nil {
		return cloud.NewError(knot.CredentialUnauthorized, nil)
	}
	if err != nil {
		return cloud.NewError(knot.ErrorUnknown, err)
	}
	if stored != token {
		return cloud.NewError(knot.CredentialUnauthorized, nil)
	}
	return nil
}

var _ cloud.Client = (*Client)(nil)
