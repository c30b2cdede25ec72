package version

// Build holds the build identifier, injected via -ldflags. Default "dev".
var Build = "dev"

// String is the name and build shown by the binaries and /healthz.
func String() string {
	return "car-service " + Build
}
