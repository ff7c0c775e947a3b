package printer

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// portPatterns are the device names a local printer can sit behind
var portPatterns = []string{
	"/dev/usb/lp*",
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyS*",
	"/dev/cu.*",
	"/dev/tty.*",
	"COM*",
}

// IsPrinterPort reports whether t is a network printer or a local printer
// port, as opposed to an arbitrary file path.
func IsPrinterPort(t Target) bool {
	switch t.Kind {
	case KindNetwork:
		return t.Host != ""
	case KindSerial, KindDevice:
		if t.Path == "" || filepath.Clean(t.Path) != t.Path || strings.Contains(t.Path, "..") {
			return false
		}
		for _, pattern := range portPatterns {
			if ok, _ := filepath.Match(pattern, t.Path); ok {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Candidate is a local device that may be a printer
type Candidate struct {
	Target      Target
	Description string
}

// Candidates lists local serial ports and printer device nodes. Nothing is
// opened; the list only helps pick a target.
func Candidates() []Candidate {
	var out []Candidate

	for _, port := range serialPorts(runtime.GOOS) {
		out = append(out, Candidate{
			Target:      Target{Kind: KindSerial, Path: port, Baud: DefaultBaud},
			Description: fmt.Sprintf("Serial: %s", filepath.Base(port)),
		})
	}

	if runtime.GOOS == "linux" {
		matches, _ := filepath.Glob("/dev/usb/lp*")
		for _, dev := range matches {
			out = append(out, Candidate{
				Target:      Target{Kind: KindDevice, Path: dev},
				Description: fmt.Sprintf("USB printer: %s", filepath.Base(dev)),
			})
		}
	}

	return out
}

func serialPorts(goos string) []string {
	switch goos {
	case "darwin":
		return scanMacOSPorts()
	case "linux":
		return globAll("/dev/ttyUSB*", "/dev/ttyACM*")
	case "windows":
		// COM ports cannot be globbed; list the usual range
		ports := make([]string, 0, 16)
		for i := 1; i <= 16; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
		return ports
	default:
		return nil
	}
}

func scanMacOSPorts() []string {
	// Skip Bluetooth and other non-printer devices
	skipPatterns := []string{
		"Bluetooth",
		"debug-console",
		"KeySerial",
	}

	var ports []string
	for _, match := range globAll("/dev/cu.*") {
		skip := false
		for _, p := range skipPatterns {
			if strings.Contains(match, p) {
				skip = true
				break
			}
		}
		if !skip {
			ports = append(ports, match)
		}
	}

	return ports
}

func globAll(patterns ...string) []string {
	var out []string
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(pattern)
		out = append(out, matches...)
	}
	return out
}
