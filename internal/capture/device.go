package capture

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// Device captures unsigned 8-bit mono microphone audio on its own thread
// and accumulates it into fixed-size windows. The transmit gate polls
// Latest for the most recent window; it never blocks the capture callback.
type Device struct {
	ctx *malgo.AllocatedContext
	dev *malgo.Device
	acc *Accumulator
}

// NewDevice opens the default capture device at the given sample rate,
// delivering windowBytes-sized windows. The device is not started.
func NewDevice(sampleRate, windowBytes int) (*Device, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if windowBytes <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowBytes)
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio capture context: %w", err)
	}

	acc := NewAccumulator(windowBytes)

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatU8
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			acc.Push(input)
		},
	}

	dev, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}

	return &Device{ctx: mctx, dev: dev, acc: acc}, nil
}

// Start begins capturing.
func (d *Device) Start() error {
	if err := d.dev.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

// Latest returns a copy of the most recent full capture window and its
// sequence number, or nil and zero if none has completed yet.
func (d *Device) Latest() ([]byte, uint64) {
	return d.acc.Latest()
}

// Windows returns the total number of capture windows completed.
func (d *Device) Windows() uint64 {
	return d.acc.Windows()
}

// Close stops the device and releases the capture context.
func (d *Device) Close() {
	d.dev.Uninit()
	d.ctx.Uninit()
	d.ctx.Free()
}
