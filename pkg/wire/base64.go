package wire

import "encoding/base64"

// encodeBase64 encodes binary payloads for inline_data / media_chunks
// bodies without line wrapping, per the wire protocol's normative shape.
func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 decodes a media chunk or inline-data body.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
