// audio.go implements the WAV→MP3 normalization step from spec.md
// §4.6 step 2b. No MP3 encoder library appears anywhere in the
// reference corpus, so this is a deliberate stdlib-only choice
// (documented in DESIGN.md). Without an encoder, WAVToMP3 only checks
// that the input is a RIFF/WAVE buffer with a data chunk; it never
// produces MP3 output and always reports that conversion failed, so
// the caller delivers the WAV bytes unchanged.
package delivery

import (
	"encoding/base64"
	"encoding/binary"
)

// looksLikeWAV checks for the "RIFF....WAVE" container header.
func looksLikeWAV(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// WAVToMP3 validates the RIFF/WAVE header and locates the data chunk,
// but performs no encoding: it returns (nil, false) for every input,
// valid WAV or not, so callers always fall back to delivering the
// original WAV bytes.
func WAVToMP3(wav []byte) (out []byte, ok bool) {
	if !looksLikeWAV(wav) {
		return nil, false
	}
	dataOffset, dataLen, found := findDataChunk(wav)
	if !found || dataOffset+dataLen > len(wav) {
		return nil, false
	}
	// Without a real MP3 encoder this cannot produce a standards-compliant
	// MP3 stream, so conversion is reported as failed; the caller keeps
	// the original WAV bytes. This keeps the seam explicit for swapping
	// in a real encoder later instead of silently mislabeling WAV as MP3.
	_ = dataOffset
	_ = dataLen
	return nil, false
}

func findDataChunk(wav []byte) (offset, length int, found bool) {
	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		if chunkID == "data" {
			return pos + 8, chunkSize, true
		}
		pos += 8 + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}
	return 0, 0, false
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
