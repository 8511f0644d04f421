package filesem

// Codec converts between Go values and the bytes stored in the holder
// registry. The default implementation uses MessagePack for compact binary
// encoding.
type Codec interface {
	// Marshal encodes a Go value to bytes.
	Marshal(v interface{}) ([]byte, error)

	// Unmarshal decodes bytes into a Go value.
	Unmarshal(data []byte, v interface{}) error
}
