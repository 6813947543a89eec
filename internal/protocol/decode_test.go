package protocol

import (
	"errors"
	"testing"
)

var testDefaults = Durations{Move: 0.25, Look: 0.2}

func TestDecode_MoveDefaults(t *testing.T) {
	cmd, err := Decode([]byte(`{"cmd":"move","forward":1}`), testDefaults)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cmd.Kind != CmdMove {
		t.Fatalf("kind = %q, want move", cmd.Kind)
	}
	if cmd.Move.Forward != 1 || cmd.Move.Right != 0 {
		t.Fatalf("axes = (%g,%g), want (1,0)", cmd.Move.Forward, cmd.Move.Right)
	}
	if cmd.Move.Duration != 0.25 {
		t.Fatalf("duration = %g, want configured default 0.25", cmd.Move.Duration)
	}
}

func TestDecode_MistypedNumberFallsBack(t *testing.T) {
	cmd, err := Decode([]byte(`{"cmd":"look","yawRate":"fast","duration":"x"}`), testDefaults)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cmd.Look.YawRate != 0 {
		t.Fatalf("yawRate = %g, want 0 for non-numeric field", cmd.Look.YawRate)
	}
	if cmd.Look.Duration != 0.2 {
		t.Fatalf("duration = %g, want default 0.2", cmd.Look.Duration)
	}
}

func TestDecode_CmdNameCaseInsensitive(t *testing.T) {
	for _, raw := range []string{`{"cmd":"JUMP"}`, `{"cmd":"Jump"}`, `{"cmd":"jump"}`} {
		cmd, err := Decode([]byte(raw), testDefaults)
		if err != nil {
			t.Fatalf("Decode(%s): %v", raw, err)
		}
		if cmd.Kind != CmdJump {
			t.Fatalf("Decode(%s) kind = %q, want jump", raw, cmd.Kind)
		}
	}
}

func TestDecode_SprintRequiresBoolEnabled(t *testing.T) {
	cases := []string{
		`{"cmd":"sprint"}`,
		`{"cmd":"sprint","enabled":"true"}`,
		`{"cmd":"sprint","enabled":1}`,
	}
	for _, raw := range cases {
		cmd, err := Decode([]byte(raw), testDefaults)
		if err != nil {
			t.Fatalf("Decode(%s): %v", raw, err)
		}
		if cmd.Kind != CmdNone {
			t.Fatalf("Decode(%s) kind = %q, want no-op", raw, cmd.Kind)
		}
	}

	cmd, err := Decode([]byte(`{"cmd":"sprint","enabled":true}`), testDefaults)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cmd.Kind != CmdSprint || !cmd.Sprint.Enabled {
		t.Fatalf("got %+v, want enabled sprint", cmd)
	}
}

func TestDecode_Screenshot(t *testing.T) {
	cmd, err := Decode([]byte(`{"cmd":"screenshot","path":"/tmp/shot.png","showUI":true}`), testDefaults)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cmd.Screenshot.Path != "/tmp/shot.png" || !cmd.Screenshot.ShowUI {
		t.Fatalf("got %+v", cmd.Screenshot)
	}

	cmd, err = Decode([]byte(`{"cmd":"screenshot"}`), testDefaults)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cmd.Screenshot.Path != "" || cmd.Screenshot.ShowUI {
		t.Fatalf("defaults: got %+v, want empty path and showUI=false", cmd.Screenshot)
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		raw  string
		code string
	}{
		{`not json`, ErrBadJSON},
		{`[1,2,3]`, ErrBadJSON},
		{`null`, ErrBadJSON},
		{`{"forward":1}`, ErrMissingCmd},
		{`{"cmd":42}`, ErrMissingCmd},
		{`{"cmd":"fly"}`, ErrUnknownCmd},
	}
	for _, tc := range cases {
		_, err := Decode([]byte(tc.raw), testDefaults)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("Decode(%s): expected DecodeError, got %v", tc.raw, err)
		}
		if de.Code != tc.code {
			t.Fatalf("Decode(%s) code = %s, want %s", tc.raw, de.Code, tc.code)
		}
		if !IsKnownCode(de.Code) {
			t.Fatalf("code %s not registered", de.Code)
		}
	}
}
