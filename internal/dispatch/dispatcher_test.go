package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/domain"
	"github.com/ambientworks/companiond/internal/prompt"
)

type fakeProbe struct {
	app   string
	title string
}

func (p *fakeProbe) ActiveAppName(ctx context.Context) string                    { return p.app }
func (p *fakeProbe) ActiveWindowTitle(ctx context.Context, appName string) string { return p.title }

type fakeProvider struct {
	name    string
	context string
}

func (p *fakeProvider) Name() string                          { return p.name }
func (p *fakeProvider) Match(appName string) bool             { return appName == p.name }
func (p *fakeProvider) GetContext(ctx context.Context) string { return p.context }

type fakeResolver struct {
	providers map[string]*fakeProvider
}

func (r *fakeResolver) Resolve(appName string) domain.ContextProvider {
	if p, ok := r.providers[appName]; ok {
		return p
	}
	return nil
}

type fakeFocusState struct {
	lastValid string
}

func (f *fakeFocusState) LastValidApp() string { return f.lastValid }

// fakeGenerator records the prompts it saw and returns a canned reply.
type fakeGenerator struct {
	reply       domain.Reply
	err         error
	lastSystem  string
	lastUser    string
	transcribed string
	calls       int
}

func (g *fakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (domain.Reply, error) {
	g.calls++
	g.lastSystem = systemPrompt
	g.lastUser = userPrompt
	return g.reply, g.err
}

func (g *fakeGenerator) Transcribe(ctx context.Context, audio []byte) string {
	return g.transcribed
}

type fakeSpeaker struct {
	spoken []string
}

func (s *fakeSpeaker) Speak(text string) { s.spoken = append(s.spoken, text) }

type fakeBroadcaster struct {
	events []domain.Event
}

func (b *fakeBroadcaster) Broadcast(event domain.Event) { b.events = append(b.events, event) }

func (b *fakeBroadcaster) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type dispatcherFixture struct {
	dispatcher  *Dispatcher
	probe       *fakeProbe
	focus       *fakeFocusState
	generator   *fakeGenerator
	speaker     *fakeSpeaker
	broadcaster *fakeBroadcaster
}

func newFixture(t *testing.T) *dispatcherFixture {
	t.Helper()

	probe := &fakeProbe{app: "Numbers", title: "Budget.numbers"}
	focus := &fakeFocusState{lastValid: "Numbers"}
	generator := &fakeGenerator{reply: domain.Reply{Message: "try a pivot table", Emotion: "happy", Structured: true}}
	speaker := &fakeSpeaker{}
	broadcaster := &fakeBroadcaster{}
	resolver := &fakeResolver{providers: map[string]*fakeProvider{
		"Numbers": {name: "Numbers", context: "Sheet1 A1:C3"},
	}}

	d := New(
		resolver,
		probe,
		focus,
		prompt.NewComposer(prompt.DefaultPersona()),
		generator,
		generator,
		speaker,
		broadcaster,
		[]string{"Companion"},
		zap.NewNop(),
	)

	return &dispatcherFixture{
		dispatcher:  d,
		probe:       probe,
		focus:       focus,
		generator:   generator,
		speaker:     speaker,
		broadcaster: broadcaster,
	}
}

func TestNotify_BroadcastsThinkingThenSuggestion(t *testing.T) {
	f := newFixture(t)
	provider := &fakeProvider{name: "Numbers", context: "Sheet1 A1:C3"}

	f.dispatcher.Notify(context.Background(), provider, "Numbers")

	require.Equal(t, []domain.EventType{domain.EventThinkingStart, domain.EventSuggestion}, f.broadcaster.types())

	thinking := f.broadcaster.events[0]
	require.NotNil(t, thinking.Data)
	assert.Equal(t, "User switched to Numbers", thinking.Data.Context)

	suggestion := f.broadcaster.events[1]
	require.NotNil(t, suggestion.Data)
	assert.Equal(t, "Numbers", suggestion.Data.AppName)
	assert.Equal(t, "try a pivot table", suggestion.Data.Message)
	assert.Equal(t, "happy", suggestion.Data.Emotion)

	assert.Contains(t, f.generator.lastUser, "Sheet1 A1:C3")
	assert.Equal(t, []string{"try a pivot table"}, f.speaker.spoken)
}

func TestNotify_GenerationFailureIsSilent(t *testing.T) {
	f := newFixture(t)
	f.generator.err = errors.New("rate limited")
	provider := &fakeProvider{name: "Numbers", context: "Sheet1"}

	f.dispatcher.Notify(context.Background(), provider, "Numbers")

	// Thinking already went out, but no suggestion and no error event.
	assert.Equal(t, []domain.EventType{domain.EventThinkingStart}, f.broadcaster.types())
	assert.Empty(t, f.speaker.spoken)
}

func TestNotify_PlainReplyDefaultsToNeutral(t *testing.T) {
	f := newFixture(t)
	f.generator.reply = domain.Reply{Message: "nice spreadsheet"}
	provider := &fakeProvider{name: "Numbers", context: "Sheet1"}

	f.dispatcher.Notify(context.Background(), provider, "Numbers")

	suggestion := f.broadcaster.events[1]
	require.NotNil(t, suggestion.Data)
	assert.Equal(t, "neutral", suggestion.Data.Emotion)
}

func TestAnswerText_UsesProviderContext(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.AnswerText(context.Background(), "what does this column mean?")

	require.Equal(t, []domain.EventType{domain.EventThinkingStart, domain.EventReply}, f.broadcaster.types())
	require.NotNil(t, f.broadcaster.events[0].Data)
	assert.Equal(t, "Processing user question...", f.broadcaster.events[0].Data.Context)

	assert.Contains(t, f.generator.lastUser, "Sheet1 A1:C3")
	assert.Contains(t, f.generator.lastUser, "User Question: what does this column mean?")
}

func TestAnswerText_IgnoredAppFallsBackToLastValid(t *testing.T) {
	// The question was typed into the companion's own window; the answer
	// must still be about the last real application.
	f := newFixture(t)
	f.probe.app = "Companion"
	f.focus.lastValid = "Numbers"

	f.dispatcher.AnswerText(context.Background(), "help me out")

	assert.Contains(t, f.generator.lastUser, "Sheet1 A1:C3")
}

func TestAnswerText_UnknownAppGetsGenericContext(t *testing.T) {
	f := newFixture(t)
	f.probe.app = "Safari"
	f.probe.title = "Hacker News"

	f.dispatcher.AnswerText(context.Background(), "what am I looking at?")

	assert.Contains(t, f.generator.lastUser, "Active Application: Safari, Window Title: Hacker News")
}

func TestAnswerText_GenerationFailureBroadcastsError(t *testing.T) {
	f := newFixture(t)
	f.generator.err = errors.New("backend down")

	f.dispatcher.AnswerText(context.Background(), "hello?")

	require.Equal(t, []domain.EventType{domain.EventThinkingStart, domain.EventError}, f.broadcaster.types())
	assert.Equal(t, "I couldn't generate a response.", f.broadcaster.events[1].Message)
	assert.Empty(t, f.speaker.spoken)
}

func TestAnswerAudio_EmptyTranscriptionEmitsNothing(t *testing.T) {
	f := newFixture(t)
	f.generator.transcribed = "   "

	f.dispatcher.AnswerAudio(context.Background(), []byte{0x52, 0x49, 0x46, 0x46})

	assert.Empty(t, f.broadcaster.events)
	assert.Zero(t, f.generator.calls)
}

func TestAnswerAudio_TranscriptionFlowsToAnswer(t *testing.T) {
	f := newFixture(t)
	f.generator.transcribed = "sum this column"

	f.dispatcher.AnswerAudio(context.Background(), []byte{0x52, 0x49, 0x46, 0x46})

	require.Equal(t, []domain.EventType{domain.EventThinkingStart, domain.EventReply}, f.broadcaster.types())
	assert.Contains(t, f.generator.lastUser, "User Question: sum this column")
}
