package govee

import (
	"encoding/json"
	"testing"
)

func TestEncodeTurn(t *testing.T) {
	tests := []struct {
		name string
		on   bool
		want string
	}{
		{"on", true, `{"msg":{"cmd":"turn","data":{"value":1}}}`},
		{"off", false, `{"msg":{"cmd":"turn","data":{"value":0}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeTurn(tt.on)
			if err != nil {
				t.Fatalf("encodeTurn: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("encodeTurn(%t) = %s, want %s", tt.on, got, tt.want)
			}
		})
	}
}

func TestEncodeStatusRequest_PayloadIsEmptyObject(t *testing.T) {
	got, err := encodeStatusRequest()
	if err != nil {
		t.Fatalf("encodeStatusRequest: %v", err)
	}
	if want := `{"msg":{"cmd":"devStatus","data":{}}}`; string(got) != want {
		t.Errorf("encodeStatusRequest = %s, want %s", got, want)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	cmd, data, err := decodeEnvelope([]byte(`{"msg":{"cmd":"devStatus","data":{"onOff":1,"brightness":100}}}`))
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}
	if cmd != cmdDevStatus {
		t.Errorf("cmd = %q, want %q", cmd, cmdDevStatus)
	}

	var ds devStatusData
	if err := json.Unmarshal(data, &ds); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if ds.OnOff != 1 {
		t.Errorf("onOff = %d, want 1", ds.OnOff)
	}
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	if _, _, err := decodeEnvelope([]byte(`not json`)); err == nil {
		t.Error("want an error for a non-JSON datagram")
	}
}
