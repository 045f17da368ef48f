package protocol

import (
	"encoding/json"
	"testing"
)

func TestErrorBody_JSON(t *testing.T) {
	b, err := json.Marshal(ErrorBody{Code: ErrAgentNotFound, Error: "no such agent"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"code":"E_AGENT_NOT_FOUND","error":"no such agent"}`
	if string(b) != want {
		t.Fatalf("got %s", b)
	}
}

func TestIsKnownCode(t *testing.T) {
	for _, code := range []string{ErrBadRequest, ErrBadSeed, ErrAgentNotFound, ErrWorldBusy, ErrLLMUnavailable, ErrInternal, ""} {
		if !IsKnownCode(code) {
			t.Fatalf("code %q should be known", code)
		}
	}
	if IsKnownCode("E_NOPE") {
		t.Fatalf("unknown code accepted")
	}
}

func TestTickRequest_Decode(t *testing.T) {
	var req TickRequest
	if err := json.Unmarshal([]byte(`{"steps":24,"no_movement":true}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Steps != 24 || !req.NoMovement {
		t.Fatalf("decoded %+v", req)
	}
}
