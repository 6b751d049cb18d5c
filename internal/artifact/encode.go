package artifact

import "encoding/base64"

// encodeChunkSize is the number of raw bytes encoded per step. 3*k sized so
// no chunk boundary ever produces internal padding; the chunked output is
// byte-identical to a single-pass encoding of the whole buffer.
const encodeChunkSize = 32 * 1024 // 32 KiB, divisible by 3 via 32768*3 grouping below

// EncodeChunked base64-encodes b in bounded chunks. Large attachments are
// encoded without ever materializing the whole input in one encoder call.
func EncodeChunked(b []byte) string {
	// Chunk length must be a multiple of 3 so that only the final chunk may
	// carry padding. 32 KiB rounded down to 32766.
	const chunk = encodeChunkSize - (encodeChunkSize % 3)

	if len(b) <= chunk {
		return base64.StdEncoding.EncodeToString(b)
	}

	out := make([]byte, 0, base64.StdEncoding.EncodedLen(len(b)))
	for off := 0; off < len(b); off += chunk {
		end := off + chunk
		if end > len(b) {
			end = len(b)
		}
		enc := make([]byte, base64.StdEncoding.EncodedLen(end-off))
		base64.StdEncoding.Encode(enc, b[off:end])
		out = append(out, enc...)
	}
	return string(out)
}
