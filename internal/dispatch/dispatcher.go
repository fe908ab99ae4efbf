// Package dispatch orchestrates the compose -> generate -> broadcast ->
// speak pipeline for both autonomous notifications and client questions.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/domain"
	"github.com/ambientworks/companiond/internal/prompt"
)

// Dispatcher implements domain.Dispatcher. Both entry points converge on
// the same pipeline, so a remark triggered by a focus change and an answer
// to a typed question behave identically past the trigger.
type Dispatcher struct {
	registry    domain.ProviderResolver
	probe       domain.FocusProbe
	focus       domain.FocusState
	composer    *prompt.Composer
	generator   domain.Generator
	transcriber domain.Transcriber
	speaker     domain.Speaker
	broadcaster domain.Broadcaster
	logger      *zap.Logger
	ignored     map[string]struct{}
}

// New creates a dispatcher.
func New(
	registry domain.ProviderResolver,
	probe domain.FocusProbe,
	focus domain.FocusState,
	composer *prompt.Composer,
	generator domain.Generator,
	transcriber domain.Transcriber,
	speaker domain.Speaker,
	broadcaster domain.Broadcaster,
	ignoreApps []string,
	logger *zap.Logger,
) *Dispatcher {
	ignored := make(map[string]struct{}, len(ignoreApps))
	for _, app := range ignoreApps {
		ignored[app] = struct{}{}
	}
	return &Dispatcher{
		registry:    registry,
		probe:       probe,
		focus:       focus,
		composer:    composer,
		generator:   generator,
		transcriber: transcriber,
		speaker:     speaker,
		broadcaster: broadcaster,
		logger:      logger,
		ignored:     ignored,
	}
}

// Notify runs the autonomous path: a focus transition into appName with a
// resolved provider. Generation failures are skipped silently here - a
// broken unsolicited notification is worse than none.
func (d *Dispatcher) Notify(ctx context.Context, provider domain.ContextProvider, appName string) {
	appContext := provider.GetContext(ctx)

	d.broadcaster.Broadcast(domain.ThinkingEvent("User switched to " + appName))

	systemPrompt, userPrompt := d.composer.Compose(appName, appContext, "")
	reply, err := d.generator.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		d.logger.Warn("suggestion generation failed",
			zap.String("app", appName),
			zap.Error(err))
		return
	}

	d.broadcaster.Broadcast(domain.SuggestionEvent(appName, reply.Message, reply.EmotionOrNeutral()))
	d.speak(reply.Message)
}

// AnswerText runs the question path for a client-submitted question.
// Generation failures surface to the client as an error event.
func (d *Dispatcher) AnswerText(ctx context.Context, question string) {
	appName, appContext := d.resolveQuestionContext(ctx)

	d.broadcaster.Broadcast(domain.ThinkingEvent("Processing user question..."))

	systemPrompt, userPrompt := d.composer.Compose(appName, appContext, question)
	reply, err := d.generator.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		d.logger.Warn("answer generation failed", zap.Error(err))
		d.broadcaster.Broadcast(domain.ErrorEvent("I couldn't generate a response."))
		return
	}

	d.broadcaster.Broadcast(domain.ReplyEvent(reply.Message, reply.EmotionOrNeutral()))
	d.speak(reply.Message)
}

// AnswerAudio transcribes the blob and answers the resulting text. An
// empty transcription aborts the exchange with no outbound events.
func (d *Dispatcher) AnswerAudio(ctx context.Context, audio []byte) {
	text := strings.TrimSpace(d.transcriber.Transcribe(ctx, audio))
	if text == "" {
		d.logger.Debug("empty transcription, dropping audio question",
			zap.Int("bytes", len(audio)))
		return
	}
	d.AnswerText(ctx, text)
}

// resolveQuestionContext picks the app a question is about and fetches its
// context. If the live focused app is in the ignore set (the question was
// typed into the companion's own UI) the last valid app substitutes, so
// the answer still refers to the last real application. Without a provider
// the context degrades to a generic app/window-title string.
func (d *Dispatcher) resolveQuestionContext(ctx context.Context) (appName, appContext string) {
	appName = d.probe.ActiveAppName(ctx)
	if _, isIgnored := d.ignored[appName]; isIgnored || appName == "" {
		appName = d.focus.LastValidApp()
	}

	if provider := d.registry.Resolve(appName); provider != nil {
		return appName, provider.GetContext(ctx)
	}

	title := d.probe.ActiveWindowTitle(ctx, appName)
	return appName, fmt.Sprintf("Active Application: %s, Window Title: %s", appName, title)
}

func (d *Dispatcher) speak(text string) {
	if d.speaker == nil || text == "" {
		return
	}
	d.speaker.Speak(text)
}

var _ domain.Dispatcher = (*Dispatcher)(nil)
