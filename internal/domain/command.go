package domain

// Command is one request from the polling client: element 0 is the command
// name, the rest are decoded positional arguments.
type Command []string

// Name returns the command name, or "" for an empty command.
func (c Command) Name() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// Args returns the positional arguments.
func (c Command) Args() []string {
	if len(c) < 2 {
		return nil
	}
	return c[1:]
}

// Arg returns the i-th positional argument (0-based) if present.
func (c Command) Arg(i int) (string, bool) {
	if i < 0 || i+1 >= len(c) {
		return "", false
	}
	return c[i+1], true
}
