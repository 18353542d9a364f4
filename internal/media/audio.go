// Package media converts captured device media into the wire formats the live
// model accepts, and model audio back into playable samples.
package media

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// Sample rates used on each side of the live session.
const (
	InputSampleRate  = 16000 // microphone audio sent to the model
	OutputSampleRate = 24000 // model speech received for playback
)

// MIME types for realtime frames.
const (
	MIMEAudioPCM16k = "audio/pcm;rate=16000"
	MIMEImageJPEG   = "image/jpeg"
)

// Blob is an encoded media payload ready to send.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Base64 returns the payload as standard base64.
func (b Blob) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Data)
}

// AudioBuffer holds decoded mono float32 samples in [-1, 1].
type AudioBuffer struct {
	SampleRate int
	Samples    []float32
}

// Duration returns the buffer length in seconds.
func (b AudioBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// EncodePCM16 converts float samples to 16-bit signed little-endian PCM.
// Samples are scaled by 32768 and clamped to the int16 range.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// DecodePCM16 converts 16-bit signed little-endian PCM to float samples.
// A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Resample converts mono samples between rates with linear interpolation.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate <= 0 || toRate <= 0 || fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	n := int(math.Floor(float64(len(samples)) / ratio))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))
		next := idx + 1
		if next >= len(samples) {
			next = len(samples) - 1
		}
		out[i] = samples[idx]*(1-frac) + samples[next]*frac
	}
	return out
}

// EncodeMicrophoneChunk resamples a captured buffer to 16 kHz and packs it as PCM16.
func EncodeMicrophoneChunk(samples []float32, sampleRate int) Blob {
	return Blob{
		MIMEType: MIMEAudioPCM16k,
		Data:     EncodePCM16(Resample(samples, sampleRate, InputSampleRate)),
	}
}

// DecodeModelAudio decodes a PCM16 chunk from the model into a playable buffer.
func DecodeModelAudio(pcm []byte, sampleRate int) AudioBuffer {
	if sampleRate <= 0 {
		sampleRate = OutputSampleRate
	}
	return AudioBuffer{SampleRate: sampleRate, Samples: DecodePCM16(pcm)}
}

// Float32Bytes packs samples as little-endian IEEE-754 floats, which browsers
// load directly into a Float32Array.
func Float32Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

// ParseFloat32Bytes is the inverse of Float32Bytes.
func ParseFloat32Bytes(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("float32 payload length %d is not a multiple of 4", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

// ParseMIMERate extracts the rate parameter from a MIME type such as
// "audio/pcm;rate=24000". Returns fallback when absent or invalid.
func ParseMIMERate(mimeType string, fallback int) int {
	var rate int
	for i := 0; i+5 <= len(mimeType); i++ {
		if mimeType[i:i+5] == "rate=" {
			if _, err := fmt.Sscanf(mimeType[i+5:], "%d", &rate); err == nil && rate > 0 {
				return rate
			}
			break
		}
	}
	return fallback
}
