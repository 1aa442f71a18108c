package hue

import (
	"encoding/json"
	"time"
)

// Wire types for the CLIP v2 event stream and resource endpoints. The bridge
// sends partial resources, so every nested block is optional.

// frame is one entry in an event stream payload. A single SSE data line
// carries an array of frames.
type frame struct {
	Type string     `json:"type"`
	Data []resource `json:"data"`
}

// resource is a (possibly partial) CLIP v2 resource. Only the sensor kinds
// the controller consumes are modelled; unknown fields are ignored.
type resource struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Motion *motionBlock    `json:"motion,omitempty"`
	Light  *lightBlock     `json:"light,omitempty"`
	Button *buttonBlock    `json:"button,omitempty"`
	Owner  json.RawMessage `json:"owner,omitempty"`
}

type motionBlock struct {
	Report *motionReport `json:"motion_report,omitempty"`
}

type motionReport struct {
	Changed time.Time `json:"changed"`
	Motion  bool      `json:"motion"`
}

type lightBlock struct {
	Report *lightLevelReport `json:"light_level_report,omitempty"`
}

type lightLevelReport struct {
	Changed    time.Time `json:"changed"`
	LightLevel int       `json:"light_level"`
}

type buttonBlock struct {
	Report *buttonReport `json:"button_report,omitempty"`
}

type buttonReport struct {
	Updated time.Time `json:"updated"`
	Event   string    `json:"event"`
}

// snapshotResponse is the body of a GET /clip/v2/resource/{type}/{id}.
type snapshotResponse struct {
	Errors []struct {
		Description string `json:"description"`
	} `json:"errors"`
	Data []resource `json:"data"`
}

// decodeFrames parses one SSE data payload and returns the resources carried
// by its update frames. A payload that is not valid JSON returns an error;
// frames of other types (add, delete) are skipped.
func decodeFrames(data []byte) ([]resource, error) {
	var frames []frame
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, err
	}

	var out []resource
	for _, f := range frames {
		if f.Type != "update" {
			continue
		}
		out = append(out, f.Data...)
	}
	return out, nil
}
