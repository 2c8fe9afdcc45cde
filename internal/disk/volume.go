package disk

import (
	"runtime"
	"strings"
	"unicode"
)

// NormalizeVolumePath maps bare drive letters like "C:" or "C:\" to the raw
// volume form "\\.\C:" on Windows. There, other paths come back trimmed and
// with forward slashes turned into backslashes; elsewhere every path passes
// through untouched.
func NormalizeVolumePath(path string) string {
	if runtime.GOOS != "windows" {
		return path
	}

	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, "/", `\`)
	upper := strings.ToUpper(path)

	if strings.HasPrefix(upper, `\\.\`) {
		return upper
	}

	bare := len(upper) == 2 || (len(upper) == 3 && upper[2] == '\\')
	if bare && upper[1] == ':' && unicode.IsLetter(rune(upper[0])) {
		return `\\.\` + string(upper[0]) + `:`
	}

	return path
}
