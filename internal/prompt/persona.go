// Package prompt holds the persona and composes generation prompts.
package prompt

// defaultTemplateKey is the instruction used when no app-specific entry
// exists for the focused application.
const defaultTemplateKey = "Default"

// Persona pairs a fixed system instruction with per-app instruction
// templates. Loaded once at startup and never mutated afterwards.
type Persona struct {
	Name              string
	SystemInstruction string

	// AppInstructions maps an app identity to an instruction template
	// containing {app_name} and {context} placeholders. Must contain a
	// "Default" entry.
	AppInstructions map[string]string
}

// InstructionFor returns the instruction template for appName, falling
// back to the Default template.
func (p *Persona) InstructionFor(appName string) string {
	if tmpl, ok := p.AppInstructions[appName]; ok {
		return tmpl
	}
	return p.AppInstructions[defaultTemplateKey]
}

// DefaultPersona returns the built-in screen-sprite persona.
func DefaultPersona() *Persona {
	return &Persona{
		Name: "My AI Companion",
		SystemInstruction: "You are a cheerful, witty, and high-energy digital sprite living on the user's screen. " +
			"Your input is the context of the user's currently active window (e.g., code, an article, a video). " +
			"Your goal: Keep the user company with short, punchy, and funny commentary based on what they are doing. " +
			"CRITICAL CONSTRAINT: You are designed for speech. Keep every response under 20 words. No lists, no markdown, no fluff. " +
			"If the user is coding, offer a quick tip or a supportive cheer. " +
			"If they are browsing, make a relevant joke or observation about the content. " +
			"Be proactive, but never boring or long-winded.",
		AppInstructions: map[string]string{
			"Excel": "The user is working in Microsoft Excel.\n" +
				"Context provided: {context}\n" +
				"Your goal is to provide specific, actionable advice for Excel. " +
				"Focus on formulas, keyboard shortcuts, and data analysis features. " +
				"If the user asks a question, answer it in the context of Excel.",
			"Numbers": "The user is working in Apple Numbers.\n" +
				"Context provided: {context}\n" +
				"Your goal is to provide specific, actionable advice for Numbers. " +
				"Focus on table management, formulas, and visual formatting. " +
				"If the user asks a question, answer it in the context of Numbers.",
			defaultTemplateKey: "The user is working in {app_name}.\n" +
				"Context provided: {context}\n" +
				"Provide general assistance based on the context.",
		},
	}
}
