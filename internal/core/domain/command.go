package domain

// Command is an external process invocation.
type Command struct {
	// Args holds the program followed by its arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds overrides applied on top of the inherited environment.
	Env map[string]string
}

// NewCommand creates a command running in dir.
func NewCommand(dir string, args ...string) *Command {
	return &Command{Args: args, Dir: dir}
}
