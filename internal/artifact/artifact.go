package artifact

import (
	"encoding/binary"

	"github.com/petems/mictape/internal/caps"
	"github.com/petems/mictape/internal/chunk"
)

// Artifact is the assembled, playable audio object.
type Artifact struct {
	Data        []byte
	ContentType string
}

// PCMInfo describes raw linear-PCM chunk bytes so the assembler can frame
// them into a playable WAV container. Nil means the chunks are already
// encoded and are concatenated as-is.
type PCMInfo struct {
	SampleRate int
	Channels   int
}

// Assemble concatenates the buffered chunks in ingestion order and
// resolves the content-type label at assembly time: on constrained
// devices a non-native captured label is substituted with a supported
// native-friendly one, without touching the bytes. Returns false when
// nothing has been buffered.
func Assemble(buf *chunk.Buffer, capturedType string, det *caps.Detector, pcm *PCMInfo) (*Artifact, bool) {
	if buf.Len() == 0 {
		return nil, false
	}

	label := det.SubstituteType(capturedType)

	data := make([]byte, 0, buf.Len())
	for _, c := range buf.Chunks() {
		data = append(data, c.Data...)
	}

	if label == "audio/wav" && pcm != nil {
		data = wavContainer(data, pcm.SampleRate, pcm.Channels)
	}

	return &Artifact{Data: data, ContentType: label}, true
}

// wavContainer wraps PCM16 bytes in a canonical 44-byte RIFF/WAVE header.
func wavContainer(pcm []byte, sampleRate, channels int) []byte {
	const (
		bitsPerSample = 16
		headerSize    = 44
	)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, headerSize, headerSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	return append(out, pcm...)
}
