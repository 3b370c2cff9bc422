package persona

import (
	"fmt"
	"strings"
)

// Preferences describe the user's constraints for the tour.
type Preferences struct {
	// TimeBudget is how long the user has: "1h", "2-3h", "half-day" or
	// "full-day".
	TimeBudget string `yaml:"time_budget"`

	// Mobility is how far the user will walk: "low", "medium" or "high".
	Mobility string `yaml:"mobility"`

	// Budget is the user's spending level: "low", "medium" or "high".
	Budget string `yaml:"budget"`
}

// Instructions assembles the system prompt for a live session: the persona's
// character sheet, the tour context, and the directives that keep spoken
// answers short and the map tools in use.
func Instructions(p Persona, city string, prefs Preferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are currently acting as a specific persona: %q.\n", p.Name)
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	if p.VoiceProfile != "" {
		fmt.Fprintf(&b, "Voice Profile: %s\n", p.VoiceProfile)
	}
	fmt.Fprintf(&b, "Current City: %s.\n", city)
	fmt.Fprintf(&b, "User Preferences: Time Budget=%s, Walking=%s, Spending=%s.\n",
		prefs.TimeBudget, prefs.Mobility, prefs.Budget)
	b.WriteString("\n")
	b.WriteString("Your goal is to be a helpful tourist guide.\n")
	b.WriteString("Always stay in character.\n")
	b.WriteString("If the user asks for places, give specific recommendations.\n")
	b.WriteString("Keep responses conversational and suitable for spoken audio (not too long).\n")
	b.WriteString("IMPORTANT: Speak at a brisk, energetic, and natural pace. Do not speak slowly.\n")
	b.WriteString("\n")
	b.WriteString("Whenever you mention a specific place, call the update_map tool so the user can see it.\n")
	b.WriteString("When the user asks how to get somewhere, call the get_directions tool.\n")
	return b.String()
}
