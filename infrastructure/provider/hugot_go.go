//go:build !ORT

package provider

import "github.com/knights-analytics/hugot"

// The default build runs inference through hugot's pure-Go backend: slower
// than ONNX Runtime but free of shared-library setup, which keeps local
// ingestion and CI hermetic. Build with -tags ORT for the native backend.
func newHugotSession() (*hugot.Session, error) {
	return hugot.NewGoSession()
}
