package prompt

import "strings"

// Composer turns (app, context, optional question) into a (system, user)
// prompt pair. It never mutates the persona and never fails: missing
// placeholder data substitutes the empty string, since a degraded
// notification beats a crashed monitor tick.
type Composer struct {
	persona *Persona
}

// NewComposer creates a composer bound to a persona.
func NewComposer(persona *Persona) *Composer {
	return &Composer{persona: persona}
}

// Compose builds the prompt pair. The system prompt carries the persona
// instruction plus the raw (unfilled) app instruction for steerability;
// the user prompt is the filled template, with the question appended as a
// delimited block when present.
func (c *Composer) Compose(appName, appContext, question string) (systemPrompt, userPrompt string) {
	tmpl := c.persona.InstructionFor(appName)

	systemPrompt = c.persona.SystemInstruction + "\n\n" + tmpl

	userPrompt = fill(tmpl, appName, appContext)
	if question != "" {
		userPrompt += "\n\nUser Question: " + question
	}
	return systemPrompt, userPrompt
}

// fill substitutes the {app_name} and {context} placeholders. Unknown
// placeholders are left alone; absent values become empty strings.
func fill(tmpl, appName, appContext string) string {
	replacer := strings.NewReplacer(
		"{app_name}", appName,
		"{context}", appContext,
	)
	return replacer.Replace(tmpl)
}
