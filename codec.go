package resws

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Codec turns outbound values into frames and inbound frames into values.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// JSONCodec is the default Codec. Decoded objects come back as map[string]any
// and numbers as float64.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	bts, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(ErrEncode, err.Error())
	}
	return bts, nil
}

func (JSONCodec) Decode(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}
	return v, nil
}
