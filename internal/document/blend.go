package document

import "strings"

// BlendMode names how a layer's pixels combine with what is beneath it.
type BlendMode string

const (
	BlendNormal      BlendMode = "normal"
	BlendMultiply    BlendMode = "multiply"
	BlendScreen      BlendMode = "screen"
	BlendOverlay     BlendMode = "overlay"
	BlendDarken      BlendMode = "darken"
	BlendLighten     BlendMode = "lighten"
	BlendDifference  BlendMode = "difference"
	BlendPassthrough BlendMode = "passthrough"
)

// ParseBlendMode maps a PSD blend key ("norm", "mul ") or long name
// ("multiply", "color_dodge") to a supported mode. Anything the compositor
// cannot reproduce becomes passthrough, which draws like normal.
func ParseBlendMode(key string) BlendMode {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", "norm", "normal", "source-over":
		return BlendNormal
	case "mul", "multiply":
		return BlendMultiply
	case "scrn", "screen":
		return BlendScreen
	case "over", "overlay":
		return BlendOverlay
	case "dark", "darken":
		return BlendDarken
	case "lite", "lighten":
		return BlendLighten
	case "diff", "difference":
		return BlendDifference
	default:
		return BlendPassthrough
	}
}

// Supported reports whether the mode has its own blend function.
func (m BlendMode) Supported() bool {
	switch m {
	case BlendNormal, BlendMultiply, BlendScreen, BlendOverlay,
		BlendDarken, BlendLighten, BlendDifference:
		return true
	default:
		return false
	}
}
