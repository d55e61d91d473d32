package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use these consistently so log lines can be queried.
const (
	// Session
	KeySessionID = "session_id" // Provisioning session identifier
	KeyProvider  = "provider"   // Provider kind: postgres, mysql, redis
	KeyProviders = "providers"  // List of provider kinds
	KeyReason    = "reason"     // Why a provider was included or skipped

	// Containers
	KeyImage     = "image"     // Container image reference
	KeyHost      = "host"      // Host the instance is reachable on
	KeyPort      = "port"      // Container or mapped port
	KeyContainer = "container" // Container ID

	// Settings
	KeySection = "section" // Provider configuration section key
	KeySetting = "setting" // Top-level settings key
	KeyAlias   = "alias"   // DATABASES/CACHES entry alias
	KeyPath    = "path"    // Settings or config file path

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyOperation  = "operation"   // Runtime operation: build, start, stop
	KeyCount      = "count"       // Generic counter
	KeyAddr       = "addr"        // Listen address
)

// Provider returns a provider kind attribute
func Provider(kind string) slog.Attr {
	return slog.String(KeyProvider, kind)
}

// Image returns an image attribute
func Image(ref string) slog.Attr {
	return slog.String(KeyImage, ref)
}

// Endpoint returns host and port attributes grouped as one
func Endpoint(host string, port int) slog.Attr {
	return slog.Group("endpoint", slog.String(KeyHost, host), slog.Int(KeyPort, port))
}

// SessionID returns a session identifier attribute
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Setting returns a settings key attribute
func Setting(key string) slog.Attr {
	return slog.String(KeySetting, key)
}

// DurationMs returns a duration attribute in milliseconds
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}

// Err returns an error attribute. A nil error yields an empty attribute,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
