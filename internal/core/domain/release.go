package domain

// Release is one published version of a project as reported by a package index.
type Release struct {
	Version string `yaml:"version" json:"version"`
	// Yanked releases are only selected by an exact == pin.
	Yanked bool `yaml:"yanked,omitempty" json:"yanked,omitempty"`
	// RequiresPython is the PEP 440 specifier on the interpreter version. Empty means any.
	RequiresPython string `yaml:"requires_python,omitempty" json:"requires_python,omitempty"`
}
