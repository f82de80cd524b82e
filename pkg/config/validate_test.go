package config

import (
	"testing"

	"github.com/prga/knotgw/pkg/knot"
)

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfgs := []knot.SensorConfig{
		{
			SensorID:   1,
			EventFlags: knot.EvtLowerThreshold | knot.EvtUpperThreshold,
			LowerLimit: knot.Decimal{IntPart: 0},
			UpperLimit: knot.Decimal{IntPart: 100},
		},
		{
			SensorID:   2,
			EventFlags: knot.EvtTime,
			TimeSec:    60,
		},
		{
			SensorID:   3,
			EventFlags: knot.EvtChange,
		},
	}
	if err := Validate(cfgs); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsNoRecognizedFlag(t *testing.T) {
	cfgs := []knot.SensorConfig{{SensorID: 1, EventFlags: 0}}
	if err := Validate(cfgs); err == nil {
		t.Fatal("expected error for a config with no recognized event flag")
	}
}

func TestValidateRejectsUnknownBitsOnly(t *testing.T) {
	cfgs := []knot.SensorConfig{{SensorID: 1, EventFlags: 1 << 7}}
	if err := Validate(cfgs); err == nil {
		t.Fatal("expected error: only unrecognized bits set")
	}
}

func TestValidateRejectsTimeFlagWithZeroInterval(t *testing.T) {
	cfgs := []knot.SensorConfig{{SensorID: 1, EventFlags: knot.EvtTime, TimeSec: 0}}
	if err := Validate(cfgs); err == nil {
		t.Fatal("expected error: TIME flag set but time_sec is 0")
	}
}

func TestValidateRejectsTimeSecWithoutFlag(t *testing.T) {
	cfgs := []knot.SensorConfig{{SensorID: 1, EventFlags: knot.EvtChange, TimeSec: 30}}
	if err := Validate(cfgs); err == nil {
		t.Fatal("expected error: time_sec set but TIME flag clear")
	}
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	cfgs := []knot.SensorConfig{{
		SensorID:   1,
		EventFlags: knot.EvtLowerThreshold | knot.EvtUpperThreshold,
		LowerLimit: knot.Decimal{IntPart: 100},
		UpperLimit: knot.Decimal{IntPart: 0},
	}}
	if err := Validate(cfgs); err == nil {
		t.Fatal("expected error: upper_limit not greater than lower_limit")
	}
}

func TestValidateRejectsEqualThresholds(t *testing.T) {
	cfgs := []knot.SensorConfig{{
		SensorID:   1,
		EventFlags: knot.EvtLowerThreshold | knot.EvtUpperThreshold,
		LowerLimit: knot.Decimal{IntPart: 50},
		UpperLimit: knot.Decimal{IntPart: 50},
	}}
	if err := Validate(cfgs); err == nil {
		t.Fatal("expected error: equal thresholds are not strictly greater")
	}
}

func TestValidateRejectsWholeListOnAnySingleBadEntry(t *testing.T) {
	cfgs := []knot.SensorConfig{
		{SensorID: 1, EventFlags: knot.EvtChange},
		{SensorID: 2, EventFlags: 0}, // the one bad entry
	}
	err := Validate(cfgs)
	if err == nil {
		t.Fatal("expected the whole list rejected")
	}
}

func TestValidateEmptyListIsValid(t *testing.T) {
	if err := Validate(nil); err != nil {
		t.Fatalf("unexpected error for empty config list: %v", err)
	}
}
