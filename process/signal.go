package process

// Signal is a portable kill-signal selector. Numeric values match POSIX
// signal numbers where applicable; on Windows every signal maps to hard
// termination of the process tree.
type Signal int

const (
	SignalTerm Signal = 15
	SignalKill Signal = 9
	SignalInt  Signal = 2
	SignalHup  Signal = 1
)
