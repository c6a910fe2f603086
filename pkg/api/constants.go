package api

var (
	releaseBuild = "false"
	// Version contains the compiled extension version
	Version = "0.1.0"
	// Commit contains a short hash pointing to the commit that was used to compile the extension
	Commit = "ffffff"
	// HostAPIVersion is the version of the host plugin contract implemented by pkg/host.
	HostAPIVersion = "1.4.0"
)

// ReleaseBuild indicates whether this build is a release build (true) or a debug build (false)
var ReleaseBuild = releaseBuild == "true"
