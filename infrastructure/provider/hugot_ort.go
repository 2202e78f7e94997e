//go:build ORT

package provider

import (
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
)

// The ORT build runs inference through ONNX Runtime, which needs its shared
// library on disk. An explicit path wins; otherwise hugot's platform default
// applies.
func newHugotSession() (*hugot.Session, error) {
	if dir := onnxLibraryDir(); dir != "" {
		return hugot.NewORTSession(options.WithOnnxLibraryPath(dir))
	}
	return hugot.NewORTSession()
}

// onnxLibraryDir locates the ONNX Runtime shared library: the
// EXPLORER_ORT_LIB_DIR environment variable first, then a lib/ directory next
// to the binary, then lib/ under the working directory. Empty means no local
// copy was found.
func onnxLibraryDir() string {
	if dir := os.Getenv("EXPLORER_ORT_LIB_DIR"); dir != "" {
		return dir
	}

	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "lib"))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, "lib"))
	}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}
