package repositories

import "github.com/fxamacker/cbor/v2"

// Values are stored as deterministic CBOR so that equal records encode to equal bytes.
var encMode, _ = cbor.CoreDetEncOptions().EncMode()

func encode(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func decode(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}
