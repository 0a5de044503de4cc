package backendid

import "strings"

const (
	TM                = "tm"
	TMCPP             = "tmCPP"
	Extended          = "extended"
	TMMixin           = "tmMixin"
	MonitoredExtended = "monitoredExtended"
)

// Normalize canonicalizes backend identifiers and their common aliases.
// Unknown names come back trimmed but otherwise unchanged so the caller
// can report them verbatim.
func Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	if canonical, ok := canonicalName(compact(trimmed)); ok {
		return canonical
	}
	return trimmed
}

func compact(name string) string {
	lowered := strings.ToLower(name)
	lowered = strings.ReplaceAll(lowered, "_", "")
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, " ", "")
	return lowered
}

func canonicalName(alias string) (string, bool) {
	switch alias {
	case "tm", "temporalmemory", "py", "tmpy":
		return TM, true
	case "tmcpp", "cpp", "temporalmemorycpp":
		return TMCPP, true
	case "extended", "etm", "extendedtm", "extendedtemporalmemory":
		return Extended, true
	case "tmmixin", "mixin", "monitored", "monitoredtm", "monitoredtemporalmemory":
		return TMMixin, true
	case "monitoredextended", "monitoredetm", "extendedmixin", "monitoredextendedtemporalmemory":
		return MonitoredExtended, true
	default:
		return "", false
	}
}
