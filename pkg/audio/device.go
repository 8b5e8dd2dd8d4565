package audio

import "context"

// CaptureSource is a live audio input device. Implementations deliver raw
// PCM chunks through the callback passed to Start; the callback runs on the
// device's own thread and must not block.
//
// A CaptureSource is owned by exactly one module: opened in the module's
// Start, released in its Stop.
type CaptureSource interface {
	// Start begins capture and invokes onChunk for every PCM chunk read
	// from the device. Calling Start while already capturing is a no-op.
	Start(onChunk func(pcm []byte)) error

	// Stop halts capture. The callback is not invoked after Stop returns.
	Stop() error

	// Close releases the device. The source cannot be restarted after Close.
	Close() error
}

// PlaybackSink is a live audio output device. Play blocks until the supplied
// buffer has been played to completion, matching the synchronous-playback
// contract of the speaker module.
type PlaybackSink interface {
	// Play queues pcm for playback and blocks until the device has drained
	// it, or until ctx is cancelled (in which case pending audio is dropped).
	Play(ctx context.Context, pcm []byte, format Format) error

	// Close stops playback and releases the device.
	Close() error
}
