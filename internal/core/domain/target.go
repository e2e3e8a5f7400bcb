package domain

// Target is a named, argument-less pipeline operation such as "requirements" or "wheel".
// It uses InternedString for names because they are repeated across the graph.
type Target struct {
	Name         InternedString
	Description  string
	Dependencies []InternedString
}

// Names of the built-in targets.
const (
	TargetVenvDev     = "venv_dev"
	TargetRequirement = "requirements"
	TargetInstallReqs = "install_reqs"
	TargetWheel       = "wheel"
	TargetPex         = "pex"
	TargetTest        = "test"
	TargetCleanCache  = "cleancache"
	TargetClean       = "clean"
	TargetInit        = "init"
)

// DefaultTargets returns the target graph of the build pipeline.
func DefaultTargets() *Graph {
	g := NewGraph()
	for _, t := range []Target{
		{Name: NewInternedString(TargetVenvDev), Description: "Create the isolated environment and install bootstrap tooling"},
		{
			Name:         NewInternedString(TargetRequirement),
			Description:  "Compile abstract requirement specs into locked manifests",
			Dependencies: NewInternedStrings([]string{TargetVenvDev}),
		},
		{
			Name:         NewInternedString(TargetInstallReqs),
			Description:  "Sync the isolated environment to the locked manifest",
			Dependencies: NewInternedStrings([]string{TargetRequirement}),
		},
		{
			Name:         NewInternedString(TargetWheel),
			Description:  "Build a wheel from the application tree",
			Dependencies: NewInternedStrings([]string{TargetInstallReqs}),
		},
		{
			Name:         NewInternedString(TargetPex),
			Description:  "Build a self-contained executable bundle",
			Dependencies: NewInternedStrings([]string{TargetInstallReqs}),
		},
		{
			Name:         NewInternedString(TargetTest),
			Description:  "Run the quality gate",
			Dependencies: NewInternedStrings([]string{TargetInstallReqs}),
		},
		{Name: NewInternedString(TargetCleanCache), Description: "Remove bytecode and test caches"},
		{
			Name:         NewInternedString(TargetClean),
			Description:  "Remove the environment, build outputs and state",
			Dependencies: NewInternedStrings([]string{TargetCleanCache}),
		},
		{
			Name:         NewInternedString(TargetInit),
			Description:  "Bootstrap, compile, sync and install the pre-commit hook",
			Dependencies: NewInternedStrings([]string{TargetInstallReqs}),
		},
	} {
		// Names are unique by construction.
		_ = g.AddTarget(&t)
	}
	return g
}
