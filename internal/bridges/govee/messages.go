package govee

import "encoding/json"

// LAN API command names.
const (
	cmdTurn      = "turn"
	cmdDevStatus = "devStatus"
	cmdScan      = "scan"
)

// envelope is the outer wrapper of every LAN API message, sent and received.
type envelope struct {
	Msg message `json:"msg"`
}

type message struct {
	Cmd  string          `json:"cmd"`
	Data json.RawMessage `json:"data"`
}

// turnData is the payload of a power command. Value is 1 for on, 0 for off.
type turnData struct {
	Value int `json:"value"`
}

// devStatusData is the payload of a status response. Raw carries the full
// payload (brightness, colour) for diagnostics.
type devStatusData struct {
	OnOff int `json:"onOff"`
}

// scanData is the payload of a discovery response.
type scanData struct {
	IP     string `json:"ip"`
	Device string `json:"device"`
	SKU    string `json:"sku"`
}

// encodeCommand wraps a command payload in the LAN API envelope.
func encodeCommand(cmd string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Msg: message{Cmd: cmd, Data: payload}})
}

// encodeTurn builds a power command.
func encodeTurn(on bool) ([]byte, error) {
	value := 0
	if on {
		value = 1
	}
	return encodeCommand(cmdTurn, turnData{Value: value})
}

// encodeStatusRequest builds a status request. The payload is an empty
// object, not null; some firmware rejects the latter.
func encodeStatusRequest() ([]byte, error) {
	return encodeCommand(cmdDevStatus, struct{}{})
}

// encodeScan builds a discovery scan request.
func encodeScan() ([]byte, error) {
	return encodeCommand(cmdScan, map[string]string{"account_topic": "reserve"})
}

// decodeEnvelope parses an inbound datagram and returns its command name and
// raw payload.
func decodeEnvelope(b []byte) (string, json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return "", nil, err
	}
	return env.Msg.Cmd, env.Msg.Data, nil
}
