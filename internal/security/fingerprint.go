package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// HardwareIdentity carries the two fingerprints of the running machine.
// Core summarizes stable factors only (machine id, CPU, hostname); Full
// additionally binds the primary network adapter. Core is therefore a
// strict subset of the information summarized by Full, and a core match
// is a weaker, more tolerant claim than a full match.
type HardwareIdentity struct {
	Core string `json:"core"`
	Full string `json:"full"`
}

// Provider is the injected capability that yields the current machine's
// hardware identity. Verification code depends on this interface so tests
// can run against fixed fixtures without touching real hardware.
type Provider interface {
	Identity() (HardwareIdentity, error)
}

// StaticProvider returns a fixed identity. Used in tests and by the
// offline issuer when binding a token for a remote machine.
type StaticProvider struct {
	ID HardwareIdentity
}

// Identity implements Provider.
func (p StaticProvider) Identity() (HardwareIdentity, error) {
	return p.ID, nil
}

// FingerprintProvider derives the machine fingerprints from local hardware
// factors, caching the result since the factors only change on reboot-level
// events.
type FingerprintProvider struct {
	mu          sync.RWMutex
	cache       *HardwareIdentity
	cacheExpiry time.Time
	cacheTTL    time.Duration
}

// NewFingerprintProvider creates a fingerprint provider with caching
func NewFingerprintProvider() *FingerprintProvider {
	return &FingerprintProvider{
		cacheTTL: 1 * time.Hour,
	}
}

// Identity returns the machine's core and full fingerprints.
func (p *FingerprintProvider) Identity() (HardwareIdentity, error) {
	p.mu.RLock()
	if p.cache != nil && time.Now().Before(p.cacheExpiry) {
		cached := *p.cache
		p.mu.RUnlock()
		return cached, nil
	}
	p.mu.RUnlock()

	id, err := p.generate()
	if err != nil {
		return HardwareIdentity{}, err
	}

	p.mu.Lock()
	p.cache = &id
	p.cacheExpiry = time.Now().Add(p.cacheTTL)
	p.mu.Unlock()

	return id, nil
}

// generate combines hardware factors into the two fingerprints.
func (p *FingerprintProvider) generate() (HardwareIdentity, error) {
	start := time.Now()

	machineID, err := readMachineID()
	if err != nil {
		machineID = "unknown-machine"
		slog.Warn("Failed to read machine id, using fallback",
			slog.String("error", err.Error()),
		)
	}

	hostname, err := readHostname()
	if err != nil {
		hostname = "unknown-host"
		slog.Warn("Failed to get hostname, using fallback",
			slog.String("error", err.Error()),
		)
	}

	cpuID := cpuSignature()

	// Core factors: stable across network adapter replacement and
	// virtualization migrations.
	coreFactors := []string{machineID, hostname, cpuID, runtime.GOOS, runtime.GOARCH}
	core := hashFactors(coreFactors)

	mac, err := primaryMACAddress()
	if err != nil {
		mac = "unknown-mac"
		slog.Warn("Failed to get MAC address, using fallback",
			slog.String("error", err.Error()),
		)
	}

	full := hashFactors(append(coreFactors, mac))

	slog.Debug("Machine fingerprints generated",
		slog.String("core", core),
		slog.String("full", full),
		slog.Duration("generation_time", time.Since(start)),
	)

	return HardwareIdentity{Core: core, Full: full}, nil
}

// hashFactors joins factors and returns their SHA-256 hex digest
func hashFactors(factors []string) string {
	sum := sha256.Sum256([]byte(strings.Join(factors, "|")))
	return hex.EncodeToString(sum[:])
}

// readMachineID reads the OS-level machine identifier
func readMachineID() (string, error) {
	switch runtime.GOOS {
	case "linux":
		for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
			if data, err := os.ReadFile(path); err == nil {
				if id := strings.TrimSpace(string(data)); id != "" {
					return id, nil
				}
			}
		}
		return "", fmt.Errorf("no machine id file found")
	case "windows":
		if id := os.Getenv("PROCESSOR_IDENTIFIER"); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("PROCESSOR_IDENTIFIER not set")
	default:
		// Fall back to OS/arch; weaker but still deterministic per host class
		return fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH), nil
	}
}

// readHostname retrieves the normalized machine hostname
func readHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return "", fmt.Errorf("hostname is empty")
	}

	return hostname, nil
}

// cpuSignature returns a repeatable CPU identifier. It does not need to be
// a true serial number; a family/model combination is stable enough.
func cpuSignature() string {
	if runtime.GOOS == "linux" {
		if data, err := os.ReadFile("/proc/cpuinfo"); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if strings.HasPrefix(line, "model name") {
					sum := sha256.Sum256([]byte(line))
					return hex.EncodeToString(sum[:8])
				}
			}
		}
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)))
	return hex.EncodeToString(sum[:8])
}

// primaryMACAddress retrieves the primary network interface MAC address
func primaryMACAddress() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to get network interfaces: %w", err)
	}

	// Prefer the first up, non-loopback interface with a MAC address
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}

	// Fallback: any interface with a MAC address
	for _, iface := range interfaces {
		if mac := iface.HardwareAddr.String(); mac != "" && mac != "00:00:00:00:00:00" {
			return mac, nil
		}
	}

	return "", fmt.Errorf("no valid MAC address found")
}

// NormalizeFingerprint prepares a fingerprint for comparison. Fingerprints
// copied through support channels pick up whitespace and case changes, so
// comparisons are insensitive to both.
func NormalizeFingerprint(fp string) string {
	return strings.ToLower(strings.TrimSpace(fp))
}

// FingerprintsEqual compares two fingerprints after normalization
func FingerprintsEqual(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	return NormalizeFingerprint(a) == NormalizeFingerprint(b)
}
