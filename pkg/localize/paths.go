package localize

import (
	"os"
	"regexp"
	"strings"
)

// KiCad path-variable handling. Library tables and model references use
// ${VAR} placeholders; references already rewritten by a previous run use
// the project-relative ${KIPRJMOD} prefix.
const (
	// ProjectPathVar is the project-relative placeholder KiCad expands to
	// the project directory.
	ProjectPathVar = "${KIPRJMOD}"

	envVarPrefixPrimary  = "KICAD9_"
	envVarPrefixFallback = "KICAD8_"
	envVarPrefixGeneric  = "KICAD_"
)

var pathVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ProjectPath builds a ${KIPRJMOD}-relative reference from path segments,
// always using forward slashes as KiCad does on every platform.
func ProjectPath(segments ...string) string {
	return ProjectPathVar + "/" + strings.Join(segments, "/")
}

// ExpandPath resolves ${VAR} placeholders in a KiCad path. ${KIPRJMOD}
// expands to projectDir; KICAD9_* variables fall back to their KICAD8_*
// and then generic KICAD_* equivalents when unset, matching how projects
// migrate between KiCad versions. A file:// prefix is stripped.
// Unresolvable variables are left in place.
func ExpandPath(path, projectDir string) string {
	expanded := path

	if projectDir != "" {
		expanded = strings.ReplaceAll(expanded, ProjectPathVar, projectDir)
	}

	for _, match := range pathVarPattern.FindAllStringSubmatch(expanded, -1) {
		name := match[1]
		value := lookupKicadVar(name)
		if value != "" {
			expanded = strings.ReplaceAll(expanded, "${"+name+"}", value)
		}
	}

	return strings.TrimPrefix(expanded, "file://")
}

func lookupKicadVar(name string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	if strings.HasPrefix(name, envVarPrefixPrimary) {
		fallback := strings.Replace(name, envVarPrefixPrimary, envVarPrefixFallback, 1)
		if value := os.Getenv(fallback); value != "" {
			return value
		}
	}
	if strings.HasPrefix(name, envVarPrefixPrimary) || strings.HasPrefix(name, envVarPrefixFallback) {
		generic := strings.Replace(name, envVarPrefixPrimary, envVarPrefixGeneric, 1)
		generic = strings.Replace(generic, envVarPrefixFallback, envVarPrefixGeneric, 1)
		if value := os.Getenv(generic); value != "" {
			return value
		}
	}
	return ""
}

// libraryNamePattern rejects path separators and characters that cause
// filesystem trouble.
var libraryNameBad = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// ValidLibraryName reports whether name is safe to use as a library
// directory or file stem.
func ValidLibraryName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	return !libraryNameBad.MatchString(name)
}
