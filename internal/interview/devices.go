package interview

import (
	"context"
	"image"
)

// AudioChunk is one captured microphone buffer of mono float samples.
type AudioChunk struct {
	Samples    []float32
	SampleRate int
}

// UserMedia is the acquired microphone and camera.
type UserMedia interface {
	// Audio delivers captured microphone buffers until the media is stopped.
	Audio() <-chan AudioChunk
	Stop()
}

// DisplayMedia is the acquired screen share.
type DisplayMedia interface {
	// LatestFrame returns the most recent screen frame, if any has arrived.
	LatestFrame() (image.Image, bool)
	Stop()
}

// Devices acquires capture devices. Either method fails when the user denies
// permission or the device is unavailable.
type Devices interface {
	OpenUserMedia(ctx context.Context) (UserMedia, error)
	OpenDisplayMedia(ctx context.Context) (DisplayMedia, error)
}
