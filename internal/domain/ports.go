package domain

import "context"

// ContextProvider knows how to extract structured context from one target
// application. GetContext is best effort: internal failures are converted
// to a descriptive string, never returned as errors.
type ContextProvider interface {
	// Name returns the human-readable application name (e.g. "Numbers").
	Name() string

	// Match reports whether this provider handles the given app identity.
	Match(appName string) bool

	// GetContext extracts live context from the application.
	GetContext(ctx context.Context) string
}

// ProviderResolver looks up the context provider for an app identity.
// Resolution is deterministic: the first-registered matching provider wins.
type ProviderResolver interface {
	Resolve(appName string) ContextProvider
}

// FocusProbe inspects the OS for the currently focused application.
// Implementation: osascript on macOS, PowerShell on Windows, xdotool +
// gopsutil on Linux.
type FocusProbe interface {
	// ActiveAppName returns the focused app identity, "" if unknown.
	ActiveAppName(ctx context.Context) string

	// ActiveWindowTitle returns the focused window's title, "" if unknown.
	ActiveWindowTitle(ctx context.Context, appName string) string
}

// Generator is the text-generation boundary.
type Generator interface {
	// Generate produces a reply for a (system, user) prompt pair.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (Reply, error)
}

// Transcriber converts submitted audio to text. Returns "" on failure;
// callers treat an empty transcription as "nothing to answer".
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) string
}

// Speaker renders a reply as speech. Fire-and-forget: Speak must return
// without waiting for playback.
type Speaker interface {
	Speak(text string)
}

// Broadcaster fans an event out to every connected session. A send failure
// to one session never affects delivery to the others.
type Broadcaster interface {
	Broadcast(event Event)
}

// FocusState exposes the monitor's debounced focus state to other tasks.
// Only the monitor loop writes; readers get the latest value.
type FocusState interface {
	// LastValidApp returns the last focused app that was not in the
	// ignore set, "" if none observed yet.
	LastValidApp() string
}

// Dispatcher converges the autonomous-notification and client-question
// paths onto the shared compose -> generate -> broadcast -> speak pipeline.
type Dispatcher interface {
	// Notify runs the autonomous path for a focus transition into appName.
	Notify(ctx context.Context, provider ContextProvider, appName string)

	// AnswerText runs the question path for a client-submitted question.
	AnswerText(ctx context.Context, question string)

	// AnswerAudio transcribes the blob and runs the question path.
	// An empty transcription aborts the exchange silently.
	AnswerAudio(ctx context.Context, audio []byte)
}

// KeyProvider abstracts the source of the local encryption key.
type KeyProvider interface {
	// EnsureKey returns the stored key, generating and persisting a new
	// one on first use.
	EnsureKey() ([]byte, error)
}

// SecretStore provides encrypted persistent storage for secrets such as
// API keys. Implementation: SQLCipher database under the data directory.
type SecretStore interface {
	// Get retrieves a secret by name. Returns "" if not stored.
	Get(name string) (string, error)

	// Set stores a secret.
	Set(name, value string) error

	// Close releases the underlying database connection.
	Close() error
}
