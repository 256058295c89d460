package nova

import (
	"encoding/base64"
	"fmt"
)

// DecodeError reports that one of the returned image blobs could not be
// base64-decoded. A single bad entry fails the whole batch; the service is
// trusted to return well-formed data, so a bad blob means the response is
// not usable.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image %d: %v", e.Index+1, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeImage encodes raw image bytes for inclusion in a payload.
func EncodeImage(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeImages decodes every blob in the result, preserving response order.
// Any single decode failure fails the entire batch with a DecodeError.
func DecodeImages(result *GenerationResult) ([][]byte, error) {
	decoded := make([][]byte, 0, len(result.Images))
	for i, blob := range result.Images {
		data, err := base64.StdEncoding.DecodeString(blob)
		if err != nil {
			return nil, &DecodeError{Index: i, Err: err}
		}
		decoded = append(decoded, data)
	}
	return decoded, nil
}
