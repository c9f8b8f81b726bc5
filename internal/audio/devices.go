package audio

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/notewell/audiorec/internal/logger"
)

// Loopback name markers per platform. Windows exposes "what you hear"
// devices as ordinary inputs, so they can be auto-selected there; on
// macOS and Linux the markers only identify candidates worth logging,
// since picking one automatically tends to grab virtual devices the
// user did not intend to record.
var (
	windowsLoopbackMarkers = []string{"Stereo Mix", "Wave Out Mix", "What U Hear", "Loopback"}
	darwinLoopbackMarkers  = []string{"BlackHole", "Soundflower", "Loopback Audio", "Aggregate Device"}
	linuxLoopbackMarkers   = []string{"Monitor of", "Loopback"}
)

// Resolution is the outcome of device resolution for one recording:
// the default microphone and, best-effort, a loopback-capable input.
type Resolution struct {
	Microphone Device
	Loopback   *Device // nil when no loopback device was selected
}

// ResolveDevices enumerates the host's capture devices, selects the
// default microphone, and scans for a loopback-capable input by name.
// preferred, when non-empty, is a user-chosen loopback device name
// (substring match) that wins over the platform heuristic. A missing
// loopback device is not an error; a missing default microphone is.
func ResolveDevices(b Backend, preferred string, log *logger.Logger) (Resolution, error) {
	return resolveDevices(b, preferred, log, runtime.GOOS)
}

func resolveDevices(b Backend, preferred string, log *logger.Logger, goos string) (Resolution, error) {
	devices, err := b.Devices(Capture)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrDeviceEnumeration, err)
	}
	if len(devices) == 0 {
		return Resolution{}, ErrNoInputDevice
	}

	for _, d := range devices {
		log.Debug("input device: %q (default: %v)", d.Name, d.IsDefault)
	}

	var mic *Device
	for i := range devices {
		if devices[i].IsDefault {
			mic = &devices[i]
			break
		}
	}
	if mic == nil {
		return Resolution{}, ErrNoDefaultMicrophone
	}
	log.Info("default microphone: %q", mic.Name)

	res := Resolution{Microphone: *mic}
	lb := findPreferred(devices, preferred, log)
	if lb == nil {
		lb = findLoopback(devices, goos, log)
	}
	if lb != nil {
		res.Loopback = lb
		log.Info("loopback device selected: %q", lb.Name)
	} else {
		log.Info("no loopback device selected; recording microphone only")
	}
	return res, nil
}

// findPreferred matches a user-configured loopback device name against
// the enumerated inputs. A configured name that matches nothing is
// logged and ignored, not an error.
func findPreferred(devices []Device, preferred string, log *logger.Logger) *Device {
	if preferred == "" {
		return nil
	}
	for i := range devices {
		if matchesAny(devices[i].Name, []string{preferred}) {
			return &devices[i]
		}
	}
	log.Warn("configured loopback device %q not found among inputs", preferred)
	return nil
}

// findLoopback scans device names for loopback markers. Selection is
// attempted only on Windows; elsewhere matches are logged as candidates
// and nil is returned.
func findLoopback(devices []Device, goos string, log *logger.Logger) *Device {
	switch goos {
	case "windows":
		for i := range devices {
			if matchesAny(devices[i].Name, windowsLoopbackMarkers) {
				return &devices[i]
			}
		}
	case "darwin":
		for i := range devices {
			if matchesAny(devices[i].Name, darwinLoopbackMarkers) {
				log.Info("loopback candidate %q found; automatic selection is not attempted on macOS", devices[i].Name)
			}
		}
	case "linux":
		for i := range devices {
			if matchesAny(devices[i].Name, linuxLoopbackMarkers) {
				log.Info("loopback candidate %q found; automatic selection is not attempted on Linux", devices[i].Name)
			}
		}
	}
	return nil
}

func matchesAny(name string, markers []string) bool {
	lower := strings.ToLower(name)
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
