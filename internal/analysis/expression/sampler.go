package expression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
)

// DefaultSampleInterval caps classification at roughly three samples per second.
const DefaultSampleInterval = 333 * time.Millisecond

// ErrDeviceUnavailable is returned when the camera is absent or permission was denied.
var ErrDeviceUnavailable = errors.New("camera unavailable")

// FrameSource is an acquired camera handle that can detect a face in the current frame.
type FrameSource interface {
	// Detect reports the expression scores of the current frame; found is false when no face is visible.
	Detect(ctx context.Context) (scores Scores, found bool, err error)
	Close() error
}

// Camera acquires exclusive access to the capture device.
type Camera interface {
	Open(ctx context.Context) (FrameSource, error)
}

// NoCamera is the capability variant for runtimes without a capture device.
type NoCamera struct{}

// Open always fails with ErrDeviceUnavailable.
func (NoCamera) Open(context.Context) (FrameSource, error) {
	return nil, ErrDeviceUnavailable
}

// Reading is one classified sample.
type Reading struct {
	State    State
	Scores   Scores
	Detected bool
	At       time.Time
}

// Sampler runs the throttled capture and classification loop.
type Sampler struct {
	camera   Camera
	interval time.Duration
}

// NewSampler creates a sampler. A non-positive interval falls back to DefaultSampleInterval.
func NewSampler(camera Camera, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if camera == nil {
		camera = NoCamera{}
	}
	return &Sampler{camera: camera, interval: interval}
}

// Run holds the camera until ctx is cancelled or the device is lost, emitting one reading per interval.
// The device handle is released on every return path.
func (s *Sampler) Run(ctx context.Context, emit func(Reading)) error {
	log := logging.For("sampler")

	source, err := s.camera.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("release camera failed")
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			scores, found, err := source.Detect(ctx)
			if err != nil {
				if errors.Is(err, ErrDeviceUnavailable) {
					return err
				}
				if ctx.Err() != nil {
					return nil
				}
				log.WithError(err).Debug("detect failed, skipping sample")
				continue
			}

			reading := Reading{State: NoDetection, Scores: scores, Detected: found, At: now}
			if found {
				reading.State = Classify(scores)
			}
			emit(reading)
		}
	}
}
