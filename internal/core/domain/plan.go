package domain

// Change moves an installed package from one version to another.
type Change struct {
	Name string
	From string
	To   string
}

// SyncPlan is the set of mutations that makes an environment match its manifests.
type SyncPlan struct {
	Install []PinnedPackage
	Change  []Change
	Remove  []string
}

// Empty reports whether the environment already matches.
func (p SyncPlan) Empty() bool {
	return len(p.Install) == 0 && len(p.Change) == 0 && len(p.Remove) == 0
}

// Targets returns every pin the plan installs, including upgrades and downgrades.
func (p SyncPlan) Targets() []PinnedPackage {
	out := make([]PinnedPackage, 0, len(p.Install)+len(p.Change))
	out = append(out, p.Install...)
	for _, c := range p.Change {
		out = append(out, PinnedPackage{Name: c.Name, Version: c.To})
	}
	return out
}
