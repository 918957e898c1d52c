package breaker

import "time"

// DatabasePreset returns Settings tuned for a database client: moderate
// failure tolerance, fast recovery probing, and two consecutive successes
// required to trust the backend again.
func DatabasePreset(name string) Settings {
	return Settings{
		Name:             name,
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		SuccessThreshold: 2,
	}
}

// YARAScannerPreset returns Settings tuned for a malware-scanning backend:
// lower failure tolerance (a broken scanner is a security gap, not just a
// latency problem) and a longer, more cautious half-open recovery window.
func YARAScannerPreset(name string) Settings {
	return Settings{
		Name:             name,
		FailureThreshold: 3,
		Timeout:          60 * time.Second,
		SuccessThreshold: 3,
	}
}

// IPCClientPreset returns Settings tuned for a local IPC peer: many
// consecutive failures tolerated before tripping (local transports are
// usually either fully up or fully down), fast recovery probing, and a
// single success is enough to close.
func IPCClientPreset(name string) Settings {
	return Settings{
		Name:             name,
		FailureThreshold: 10,
		Timeout:          10 * time.Second,
		SuccessThreshold: 1,
	}
}

// ExternalAPIPreset returns Settings tuned for a third-party HTTP API:
// conservative failure tolerance and a long cooldown before probing again.
func ExternalAPIPreset(name string) Settings {
	return Settings{
		Name:             name,
		FailureThreshold: 3,
		Timeout:          60 * time.Second,
		SuccessThreshold: 2,
	}
}
