package splat

// CodecBuilderOption is a functional option applied to a codec during construction via NewCodec.
type CodecBuilderOption func(*codec)

// WithWorkers sets the number of pool workers used for decoding and encoding.
// Values below 2 disable the pool and process every input inline.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - CodecBuilderOption: a function that applies the workers option to a codec
func WithWorkers(n int) CodecBuilderOption {
	return func(c *codec) {
		c.workers = n
	}
}

// WithChunkSize sets the number of records handled by one pool task.
//
// Parameters:
//   - n: records per chunk, values below 1 are ignored
//
// Returns:
//   - CodecBuilderOption: a function that applies the chunk size option to a codec
func WithChunkSize(n int) CodecBuilderOption {
	return func(c *codec) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithASCII makes EncodePLY emit the interchange layout as "format ascii 1.0" text records.
// Floats use the shortest representation that reads back to the same value.
// ASCII files are export-only; Decode rejects them.
//
// Returns:
//   - CodecBuilderOption: a function that applies the ASCII option to a codec
func WithASCII() CodecBuilderOption {
	return func(c *codec) {
		c.ascii = true
	}
}
