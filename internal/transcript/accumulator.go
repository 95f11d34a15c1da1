package transcript

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
)

// ErrUnsupported is returned by recognizers that cannot run in the current runtime.
var ErrUnsupported = errors.New("speech recognition unsupported")

// Recognizer delivers recognized speech fragments until ctx is done.
type Recognizer interface {
	Listen(ctx context.Context, onText func(fragment string)) error
}

// Unsupported is the recognizer variant for runtimes without speech recognition.
type Unsupported struct{}

// Listen always returns ErrUnsupported.
func (Unsupported) Listen(context.Context, func(string)) error {
	return ErrUnsupported
}

// Accumulator attributes live recognizer output to the active question index.
// One instance belongs to one interview; it is never shared between sessions.
type Accumulator struct {
	mu      sync.Mutex
	current int
	live    string
	entries map[int]string
}

// New returns an accumulator attributed to question 0.
func New() *Accumulator {
	return &Accumulator{entries: make(map[int]string)}
}

// OnRecognized appends a fragment to the live buffer of the active question.
func (a *Accumulator) OnRecognized(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}

	a.mu.Lock()
	a.live = join(a.live, fragment)
	a.mu.Unlock()
}

// OnQuestionChange commits the live buffer to the previous question and switches to newIndex.
// It returns the text already stored for newIndex so a revisited question resumes with it.
func (a *Accumulator) OnQuestionChange(newIndex int) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.live != "" {
		a.entries[a.current] = join(a.entries[a.current], a.live)
	}
	a.live = ""
	a.current = newIndex
	return a.entries[newIndex]
}

// Current returns the active question index.
func (a *Accumulator) Current() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Transcript returns what should be displayed for the active question: stored text plus live text.
func (a *Accumulator) Transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return join(a.entries[a.current], a.live)
}

// Entry returns the committed text for index.
func (a *Accumulator) Entry(index int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries[index]
}

// Listen feeds the recognizer into the accumulator until ctx is done.
// An unsupported recognizer degrades to empty transcripts and is not an error.
func (a *Accumulator) Listen(ctx context.Context, rec Recognizer) error {
	if rec == nil {
		rec = Unsupported{}
	}

	err := rec.Listen(ctx, a.OnRecognized)
	switch {
	case errors.Is(err, ErrUnsupported):
		logging.For("transcript").Warn("speech recognition unsupported, transcripts will be empty")
		return nil
	case err != nil && ctx.Err() != nil:
		return nil
	default:
		return err
	}
}

func join(stored, addition string) string {
	switch {
	case stored == "":
		return addition
	case addition == "":
		return stored
	default:
		return stored + " " + addition
	}
}
