//go:build !windows

package audio

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// malgoEndpoint is the portable loopback adapter, built on miniaudio. It
// asks the backend for mono float32 at the target rate directly and lets
// miniaudio's own converter bridge whatever the device delivers, so the
// engine's downmix and resample stages become identity passes.
//
// miniaudio only routes loopback on hosts that support it; elsewhere Open
// fails and the error is surfaced as an initialization failure. Session
// tracking does not exist off Windows, so Sessions always reports an empty
// snapshot and per-process capture is unavailable.
type malgoEndpoint struct {
	log    zerolog.Logger
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	packets chan *Packet
}

// NewLoopbackEndpoint prepares a miniaudio loopback endpoint.
func NewLoopbackEndpoint(logger zerolog.Logger) (Endpoint, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug().Str("source", "miniaudio").Msg(message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}

	return &malgoEndpoint{
		log:     logger,
		ctx:     ctx,
		packets: make(chan *Packet, 64),
	}, nil
}

func (e *malgoEndpoint) MixFormat() (Format, error) {
	if e.ctx == nil {
		return Format{}, ErrDeviceUnavailable
	}
	return TargetFormat(), nil
}

func (e *malgoEndpoint) Open(format Format) error {
	cfg := malgo.DefaultDeviceConfig(malgo.Loopback)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = format.Channels
	cfg.SampleRate = format.SampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frames uint32) {
			if frames == 0 {
				return
			}
			p := &Packet{
				Samples: pcmFloatToFloat32(input),
				Frames:  int(frames),
			}
			select {
			case e.packets <- p:
			default:
				// Dropping beats blocking the backend's audio thread.
			}
		},
	}

	device, err := malgo.InitDevice(e.ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("stream activation failed: %w", err)
	}
	e.device = device
	return nil
}

func (e *malgoEndpoint) Start() error {
	if e.device == nil {
		return ErrNotInitialized
	}
	if err := e.device.Start(); err != nil {
		return fmt.Errorf("failed to start loopback device: %w", err)
	}
	return nil
}

func (e *malgoEndpoint) Stop() error {
	if e.device == nil {
		return nil
	}
	if err := e.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop loopback device: %w", err)
	}
	return nil
}

func (e *malgoEndpoint) ReadPacket() (*Packet, error) {
	select {
	case p := <-e.packets:
		return p, nil
	default:
		return nil, nil
	}
}

func (e *malgoEndpoint) ReleasePacket(p *Packet) error {
	// Packet ownership was transferred in the data callback; nothing held.
	return nil
}

func (e *malgoEndpoint) Sessions(max int) ([]Session, error) {
	return nil, nil
}

func (e *malgoEndpoint) Close() error {
	if e.device != nil {
		e.device.Uninit()
		e.device = nil
	}
	if e.ctx != nil {
		_ = e.ctx.Uninit()
		e.ctx.Free()
		e.ctx = nil
	}
	return nil
}
