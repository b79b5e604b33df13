package system

var (
	// Version is the current version of hangar, replaced at build time.
	Version = "develop"
)

// MaxLineSize is the longest command line accepted from a client before the
// remainder of the line is discarded.
const MaxLineSize = 64 * 1024
