package config

// Pyrigfile represents the structure of the pyrig.yaml configuration file.
type Pyrigfile struct {
	Version      string          `yaml:"version"`
	Project      ProjectDTO      `yaml:"project"`
	Python       PythonDTO       `yaml:"python"`
	Layout       LayoutDTO       `yaml:"layout"`
	Index        IndexDTO        `yaml:"index"`
	Requirements RequirementsDTO `yaml:"requirements"`
	Gate         GateDTO         `yaml:"gate"`
}

// ProjectDTO holds distribution metadata.
type ProjectDTO struct {
	Name           string            `yaml:"name"`
	Package        string            `yaml:"package"`
	Summary        string            `yaml:"summary"`
	URL            string            `yaml:"url"`
	Readme         string            `yaml:"readme"`
	PythonRequires string            `yaml:"python_requires"`
	EntryPoints    map[string]string `yaml:"entry_points"`
	PexEntryPoint  string            `yaml:"pex_entry_point"`
}

// PythonDTO describes the interpreter and the target platform.
type PythonDTO struct {
	Interpreter string `yaml:"interpreter"`
	Version     string `yaml:"version"`
	Platform    string `yaml:"platform"`
	Machine     string `yaml:"machine"`
}

// LayoutDTO overrides the persisted layout.
type LayoutDTO struct {
	VersionFile  string `yaml:"version_file"`
	Venv         string `yaml:"venv"`
	Requirements string `yaml:"requirements"`
	Dist         string `yaml:"dist"`
	Build        string `yaml:"build"`
	State        string `yaml:"state"`
}

// IndexDTO selects the package index.
type IndexDTO struct {
	URL    string `yaml:"url"`
	Static string `yaml:"static"`
}

// RequirementsDTO configures compilation.
type RequirementsDTO struct {
	Specs            []string `yaml:"specs"`
	Prod             string   `yaml:"prod"`
	AllowPreReleases bool     `yaml:"allow_prereleases"`
	Bootstrap        []string `yaml:"bootstrap"`
	MaxRounds        int      `yaml:"max_rounds"`
}

// GateDTO configures the quality gate.
type GateDTO struct {
	TestPattern string     `yaml:"test_pattern"`
	Stages      []StageDTO `yaml:"stages"`
}

// StageDTO is a single gate stage.
type StageDTO struct {
	Name string   `yaml:"name"`
	Cmd  []string `yaml:"cmd"`
}
