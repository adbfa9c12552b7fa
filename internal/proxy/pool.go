package proxy

import "sync"

// relayBufferSize is the per-direction copy buffer.
const relayBufferSize = 32 * 1024

// relayBuffers holds *[]byte so Put does not allocate.
var relayBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, relayBufferSize)
		return &b
	},
}
