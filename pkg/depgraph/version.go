package depgraph

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CacheFormatVersion is the deptree cache format's version tag, written as
// a leading "depinfo_format=<version>" line ahead of the node records so a
// long-lived reader can refuse a cache written by an incompatible writer.
// Re-wired from the teacher's cmd/version upgrade checker, which compared
// a fetched release tag against the running binary; here the same
// semver.Constraint machinery gates a cache file instead of a release.
const CacheFormatVersion = "1.0.0"

// cacheFormatConstraint accepts any writer on the same major version as
// CacheFormatVersion.
var cacheFormatConstraint = semver.MustParseConstraint("^" + CacheFormatVersion)

// CheckCacheFormatVersion reports whether a cache file declaring version
// satisfies this build's compatibility constraint.
func CheckCacheFormatVersion(version string) (bool, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("depgraph: invalid cache format version %q: %w", version, err)
	}
	return cacheFormatConstraint.Check(v), nil
}
