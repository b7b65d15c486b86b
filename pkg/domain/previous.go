package domain

// Previous is the content of the last snapshot, if there was one.
// The zero value means "no previous state".
type Previous struct {
	Content string
	Found   bool
}

// None is the state of a first run.
func None() Previous { return Previous{} }

// Some wraps previously captured content. Empty content is still a previous state.
func Some(content string) Previous { return Previous{Content: content, Found: true} }
