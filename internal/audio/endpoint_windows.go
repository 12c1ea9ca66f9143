//go:build windows

package audio

import (
	"fmt"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// COM HRESULTs tolerated from CoInitializeEx when the thread already holds
// an apartment.
const (
	hresultSFalse         = 0x00000001
	hresultRPCChangedMode = 0x80010106
)

// AUDCLNT_BUFFERFLAGS_SILENT: the packet holds no audible data.
const audclntBufferFlagsSilent = 0x2

// wasapiEndpoint captures the default render endpoint's mix through a
// shared-mode WASAPI loopback stream. Shared mode leaves other listeners of
// the endpoint undisturbed.
type wasapiEndpoint struct {
	log zerolog.Logger

	enumerator *wca.IMMDeviceEnumerator
	device     *wca.IMMDevice
	client     *wca.IAudioClient
	capture    *wca.IAudioCaptureClient
	sessionMgr *wca.IAudioSessionManager2
	wfx        *wca.WAVEFORMATEX

	format Format
}

// NewLoopbackEndpoint prepares a WASAPI loopback endpoint. COM is entered
// multithreaded so the capture goroutine and callers may share the same
// interfaces.
func NewLoopbackEndpoint(logger zerolog.Logger) (Endpoint, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		if !ok || (oleErr.Code() != hresultSFalse && oleErr.Code() != hresultRPCChangedMode) {
			return nil, fmt.Errorf("failed to initialize COM: %w", err)
		}
	}
	return &wasapiEndpoint{log: logger}, nil
}

// ensureDevice lazily resolves the default render endpoint and activates its
// audio client, so the mix format is queryable before Open.
func (e *wasapiEndpoint) ensureDevice() error {
	if e.client != nil {
		return nil
	}

	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &e.enumerator); err != nil {
		return fmt.Errorf("failed to create device enumerator: %w", err)
	}

	if err := e.enumerator.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &e.device); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	if err := e.device.Activate(wca.IID_IAudioClient, wca.CLSCTX_ALL, nil, &e.client); err != nil {
		return fmt.Errorf("failed to activate audio client: %w", err)
	}

	return nil
}

func (e *wasapiEndpoint) MixFormat() (Format, error) {
	if err := e.ensureDevice(); err != nil {
		return Format{}, err
	}

	if e.wfx == nil {
		if err := e.client.GetMixFormat(&e.wfx); err != nil {
			return Format{}, fmt.Errorf("failed to query mix format: %w", err)
		}
	}

	e.format = Format{
		SampleRate:    e.wfx.NSamplesPerSec,
		Channels:      uint32(e.wfx.NChannels),
		BitsPerSample: uint32(e.wfx.WBitsPerSample),
	}
	return e.format, nil
}

// Open initializes the shared-mode loopback stream with the native mix
// format and acquires the capture client. The two stages fail independently
// and are reported as such.
func (e *wasapiEndpoint) Open(format Format) error {
	if _, err := e.MixFormat(); err != nil {
		return err
	}

	if err := e.client.Initialize(wca.AUDCLNT_SHAREMODE_SHARED, wca.AUDCLNT_STREAMFLAGS_LOOPBACK, 0, 0, e.wfx, nil); err != nil {
		return fmt.Errorf("stream activation failed: %w", err)
	}

	if err := e.client.GetService(wca.IID_IAudioCaptureClient, &e.capture); err != nil {
		return fmt.Errorf("failed to acquire capture client: %w", err)
	}

	return nil
}

func (e *wasapiEndpoint) Start() error {
	if e.client == nil {
		return ErrNotInitialized
	}
	if err := e.client.Start(); err != nil {
		return fmt.Errorf("failed to start audio client: %w", err)
	}
	return nil
}

func (e *wasapiEndpoint) Stop() error {
	if e.client == nil {
		return nil
	}
	if err := e.client.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio client: %w", err)
	}
	return nil
}

func (e *wasapiEndpoint) ReadPacket() (*Packet, error) {
	if e.capture == nil {
		return nil, ErrNotInitialized
	}

	var pending uint32
	if err := e.capture.GetNextPacketSize(&pending); err != nil {
		return nil, fmt.Errorf("%w: GetNextPacketSize: %v", ErrStream, err)
	}
	if pending == 0 {
		return nil, nil
	}

	var (
		data      *byte
		frames    uint32
		flags     uint32
		devicePos uint64
		qpcPos    uint64
	)
	if err := e.capture.GetBuffer(&data, &frames, &flags, &devicePos, &qpcPos); err != nil {
		return nil, fmt.Errorf("%w: GetBuffer: %v", ErrStream, err)
	}

	byteCount := int(frames) * int(e.wfx.NBlockAlign)
	raw := unsafe.Slice(data, byteCount)

	return &Packet{
		Samples: decodePCM(raw, e.format.BitsPerSample),
		Frames:  int(frames),
		Silent:  flags&audclntBufferFlagsSilent != 0,
	}, nil
}

func (e *wasapiEndpoint) ReleasePacket(p *Packet) error {
	if err := e.capture.ReleaseBuffer(uint32(p.Frames)); err != nil {
		return fmt.Errorf("%w: ReleaseBuffer: %v", ErrStream, err)
	}
	return nil
}

// Sessions walks the endpoint's audio session list and maps each session to
// its owning process. Sessions without a pid (system sounds), processes gone
// by resolution time, and processes the caller may not query are skipped
// silently; one bad entry never fails the whole enumeration.
func (e *wasapiEndpoint) Sessions(max int) ([]Session, error) {
	if err := e.ensureDevice(); err != nil {
		return nil, err
	}

	if e.sessionMgr == nil {
		if err := e.device.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &e.sessionMgr); err != nil {
			return nil, fmt.Errorf("failed to activate session manager: %w", err)
		}
	}

	var enumerator *wca.IAudioSessionEnumerator
	if err := e.sessionMgr.GetSessionEnumerator(&enumerator); err != nil {
		return nil, fmt.Errorf("failed to get session enumerator: %w", err)
	}
	defer enumerator.Release()

	var count int
	if err := enumerator.GetCount(&count); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	var sessions []Session
	for i := 0; i < count; i++ {
		if max > 0 && len(sessions) >= max {
			break
		}

		var sc *wca.IAudioSessionControl
		if err := enumerator.GetSession(i, &sc); err != nil {
			continue
		}

		dispatch, err := sc.QueryInterface(wca.IID_IAudioSessionControl2)
		sc.Release()
		if err != nil {
			continue
		}
		sc2 := (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatch))

		var pid uint32
		err = sc2.GetProcessId(&pid)
		sc2.Release()
		if err != nil || pid == 0 {
			continue
		}

		exe, err := exePath(pid)
		if err != nil {
			e.log.Debug().Uint32("pid", pid).Err(err).Msg("skipping unresolvable session")
			continue
		}

		sessions = append(sessions, Session{PID: pid, ExePath: exe})
	}

	return sessions, nil
}

// exePath resolves a pid to its executable path. A process gone by
// resolution time maps to ErrProcessNotFound; a process the caller lacks
// rights to query maps to ErrAccessDenied. Sessions swallows both and omits
// the entry.
func exePath(pid uint32) (string, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", fmt.Errorf("%w: pid %d: %v", ErrProcessNotFound, pid, err)
	}
	exe, err := proc.Exe()
	if err != nil {
		return "", fmt.Errorf("%w: pid %d: %v", ErrAccessDenied, pid, err)
	}
	return exe, nil
}

func (e *wasapiEndpoint) Close() error {
	if e.capture != nil {
		e.capture.Release()
		e.capture = nil
	}
	if e.sessionMgr != nil {
		e.sessionMgr.Release()
		e.sessionMgr = nil
	}
	if e.client != nil {
		e.client.Release()
		e.client = nil
	}
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
	if e.enumerator != nil {
		e.enumerator.Release()
		e.enumerator = nil
	}
	if e.wfx != nil {
		ole.CoTaskMemFree(uintptr(unsafe.Pointer(e.wfx)))
		e.wfx = nil
	}
	ole.CoUninitialize()
	return nil
}
