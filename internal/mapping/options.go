package mapping

// DefaultMaxDepth bounds nested-object recursion when Config.MaxDepth is
// left at zero.
const DefaultMaxDepth = 10

// Config controls one mapping invocation. It is an immutable value object:
// there are no process-wide defaults, every call site supplies it explicitly.
type Config struct {
	// CaseSensitive controls the name-based fallback match between source
	// and target field names.
	CaseSensitive bool

	// IgnoreUnmapped silently skips target fields with no corresponding
	// source field. When false, each such field produces a warning.
	IgnoreUnmapped bool

	// ThrowOnError makes the engine stop at the first conversion failure
	// and return it, instead of accumulating errors in the result.
	ThrowOnError bool

	// MapNullValues copies nil source values (assigning the target's zero
	// value). When false, nil source values leave the target field at its
	// default without error.
	MapNullValues bool

	// MaxDepth bounds nested-object recursion; zero means DefaultMaxDepth.
	MaxDepth int
}

// DefaultConfig returns a Config with the default recursion bound and all
// switches off.
func DefaultConfig() Config {
	return Config{MaxDepth: DefaultMaxDepth}
}

func (c Config) maxDepth() int {
	if c.MaxDepth > 0 {
		return c.MaxDepth
	}
	return DefaultMaxDepth
}
