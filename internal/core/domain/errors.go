package domain

import "go.trai.ch/zerr"

var (
	// ErrTargetAlreadyExists is returned when attempting to add a target with a name that already exists.
	ErrTargetAlreadyExists = zerr.New("target already exists")

	// ErrMissingDependency is returned when a target references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the target dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTargetNotFound is returned when a requested target is not found in the graph.
	ErrTargetNotFound = zerr.New("target not found")

	// ErrNoTargetsSpecified is returned when a run is requested without any target names.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrInvalidRequirement is returned when a line of an abstract requirement spec cannot be parsed.
	ErrInvalidRequirement = zerr.New("invalid requirement")

	// ErrIncludeCycle is returned when requirement specs include each other.
	ErrIncludeCycle = zerr.New("requirement include cycle")

	// ErrInvalidMarker is returned when an environment marker cannot be parsed.
	ErrInvalidMarker = zerr.New("invalid environment marker")

	// ErrPackageNotFound is returned when the package index has no project with the requested name.
	ErrPackageNotFound = zerr.New("package not found in index")

	// ErrIndexUnavailable is returned when the package index cannot be reached or answers unexpectedly.
	ErrIndexUnavailable = zerr.New("package index unavailable")

	// ErrUnsatisfiable is returned when no combination of releases satisfies every declared constraint.
	ErrUnsatisfiable = zerr.New("requirements are unsatisfiable")

	// ErrResolutionTooDeep is returned when resolution exceeds its backtracking budget.
	ErrResolutionTooDeep = zerr.New("resolution exceeded maximum rounds")

	// ErrInvalidManifest is returned when a locked manifest contains a line that is not an exact pin.
	ErrInvalidManifest = zerr.New("invalid locked manifest")

	// ErrConflictingPins is returned when merged manifests pin the same package to different versions.
	ErrConflictingPins = zerr.New("conflicting pins across manifests")

	// ErrEnvironmentMissing is returned when an operation needs the isolated environment but it does not exist.
	ErrEnvironmentMissing = zerr.New("isolated environment does not exist")

	// ErrEnvironmentCommandFailed is returned when the environment's interpreter or installer exits non-zero.
	ErrEnvironmentCommandFailed = zerr.New("environment command failed")

	// ErrVersionFileMissing is returned when the declared version file does not exist.
	ErrVersionFileMissing = zerr.New("version file missing")

	// ErrInvalidVersion is returned when the version file does not hold a valid PEP 440 version.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrImportCheckFailed is returned when the application package fails to import cleanly.
	ErrImportCheckFailed = zerr.New("application package failed to import")

	// ErrUnknownArtifactKind is returned for artifact kinds other than wheel and pex.
	ErrUnknownArtifactKind = zerr.New("unknown artifact kind")

	// ErrStageFailed is returned when a quality gate stage fails.
	ErrStageFailed = zerr.New("quality gate stage failed")

	// ErrInvalidConfig is returned when the project configuration is inconsistent.
	ErrInvalidConfig = zerr.New("invalid project configuration")
)
