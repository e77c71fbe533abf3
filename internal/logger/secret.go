package logger

import (
	"log/slog"
	"strings"
)

const (
	secretMaskRune  = '#'
	secretMaskCount = 5
	secretPrefix    = 4
	secretSuffix    = 2
)

// Secret renders raw with only its first and last few runes visible.
// Short values are fully hidden.
func Secret(raw string) string {
	if raw == "" {
		return ""
	}
	runes := []rune(raw)
	mask := strings.Repeat(string(secretMaskRune), secretMaskCount)
	if len(runes) < 3*(secretPrefix+secretSuffix) {
		return mask
	}
	return string(runes[:secretPrefix]) + mask + string(runes[len(runes)-secretSuffix:])
}

// SecretAttr is the slog form of Secret.
func SecretAttr(key, raw string) slog.Attr {
	return slog.String(key, Secret(raw))
}
