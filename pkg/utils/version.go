// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Build information reported by "askbase version". Release builds set these
// with -ldflags "-X github.com/papercomputeco/askbase/pkg/utils.Version=...".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
