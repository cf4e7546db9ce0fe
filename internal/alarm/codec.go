package alarm

import (
	"github.com/fxamacker/cbor/v2"

	"sensor_node/internal/models"
)

// encMode encodes frames with Core Deterministic Encoding so a frame always
// produces the same bytes. Timestamps are RFC3339 text to keep sub-second
// precision.
var encMode cbor.EncMode

// decMode ignores unknown fields so older masters accept newer frames.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("alarm: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("alarm: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes a frame for the wire.
func Encode(f models.AlarmFrame) ([]byte, error) {
	return encMode.Marshal(f)
}

// Decode parses a frame received from the wire.
func Decode(data []byte) (models.AlarmFrame, error) {
	var f models.AlarmFrame
	err := decMode.Unmarshal(data, &f)
	return f, err
}
