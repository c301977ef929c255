package markov

import (
	"io"
	"log/slog"
)

// walkOptions is used by the walk functions to configure default options.
type walkOptions struct {
	maxSteps int
	logger   *slog.Logger
}

// WalkOption configures a walk. It's used as a variadic argument in Walk,
// NewWalker, WalkContext, Stream and WalkMany.
type WalkOption func(*walkOptions)

// WithMaxSteps stops the walk after n generated tokens, not counting the seed.
// A value of 0 or less means no limit, which is the default. Walks over a
// mapping that contains a cycle without a dead end only stop through this
// limit or a cancelled context.
func WithMaxSteps(n int) WalkOption {
	return func(o *walkOptions) { o.maxSteps = n }
}

// WithLogger enables debug logging of why a walk ended. By default all logs
// are discarded.
func WithLogger(logger *slog.Logger) WalkOption {
	return func(o *walkOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newWalkOptions(opts []WalkOption) *walkOptions {
	options := &walkOptions{
		maxSteps: 0,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Walker holds the state of a single random walk: the current partition and
// the tokens produced so far. A Walker is either running or done; it becomes
// done the first time its current partition has no successors and never
// leaves that state.
//
// A Walker is not safe for concurrent use. Separate walkers over the same
// Mapping are.
type Walker struct {
	mapping *Mapping
	rng     Chooser
	options *walkOptions
	current Partition
	output  []string
	steps   int
	done    bool
}

// NewWalker starts a walk at start. The output begins with the tokens of
// start. A start partition that is not in the mapping is valid; the first
// Step will simply end the walk.
func NewWalker(start Partition, m *Mapping, rng Chooser, opts ...WalkOption) *Walker {
	output := make([]string, len(start), len(start)+16)
	copy(output, start)
	return &Walker{
		mapping: m,
		rng:     rng,
		options: newWalkOptions(opts),
		current: start.Clone(),
		output:  output,
	}
}

// Step advances the walk by one token. It looks up the successors of the
// current partition and:
//   - with none, marks the walk done and returns ("", false);
//   - with exactly one, takes it without consulting the Chooser;
//   - with several, lets the Chooser pick one uniformly.
//
// The chosen token is appended to the output and the window slides by one.
// Step ignores WithMaxSteps; the step limit is enforced by the loops that
// drive a Walker (Run, Walk, WalkContext, Stream).
func (w *Walker) Step() (string, bool) {
	if w.done {
		return "", false
	}
	var next string
	switch successors := w.mapping.successors(w.current); len(successors) {
	case 0:
		w.done = true
		return "", false
	case 1:
		next = successors[0]
	default:
		next = successors[choose(w.rng, len(successors))]
	}
	w.output = append(w.output, next)
	w.current = w.current.Slide(next)
	w.steps++
	return next, true
}

// Run steps the walk until it is done or the step limit is reached.
func (w *Walker) Run() {
	for !w.done && !w.Limited() {
		w.Step()
	}
	w.logEnd()
}

// Done reports whether the walk reached a partition without successors.
func (w *Walker) Done() bool {
	return w.done
}

// Limited reports whether the WithMaxSteps limit, if any, has been reached.
func (w *Walker) Limited() bool {
	return w.options.maxSteps > 0 && w.steps >= w.options.maxSteps
}

// Steps returns the number of tokens generated so far, not counting the seed.
func (w *Walker) Steps() int {
	return w.steps
}

// Current returns a copy of the current partition.
func (w *Walker) Current() Partition {
	return w.current.Clone()
}

// Output returns a copy of the seed tokens followed by every generated token.
func (w *Walker) Output() []string {
	out := make([]string, len(w.output))
	copy(out, w.output)
	return out
}

func (w *Walker) logEnd() {
	if w.done {
		w.options.logger.Debug("Walk terminated due to dead-end",
			slog.String("last_partition", w.current.String()),
			slog.Int("generated_length", w.steps),
		)
	} else if w.Limited() {
		w.options.logger.Debug("Walk terminated by reaching max steps",
			slog.Int("max_steps", w.options.maxSteps),
			slog.Int("generated_length", w.steps),
		)
	}
}

// Walk performs a random walk over m starting at start and returns the seed
// tokens followed by every generated token. The walk ends when the current
// partition has no successors or, if WithMaxSteps is given, when the limit is
// reached. Without a limit a walk over a cycle never ends.
func Walk(start Partition, m *Mapping, rng Chooser, opts ...WalkOption) []string {
	w := NewWalker(start, m, rng, opts...)
	w.Run()
	return w.output
}
