// Package persona defines the tour guide characters a session can embody and
// builds the system instructions handed to the live agent.
package persona

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Traits characterise how a persona speaks and what it gravitates toward.
type Traits struct {
	Tone  string   `yaml:"tone"`
	Focus []string `yaml:"focus"`
}

// Persona is one guide character.
type Persona struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Role        string `yaml:"role"`
	Tagline     string `yaml:"tagline"`
	Description string `yaml:"description"`
	VoiceName   string `yaml:"voice_name"`

	// VoiceProfile is an optional detailed delivery brief (accent, pacing,
	// verbal tics) appended to the system instructions. Empty for personas
	// whose Description already carries the voice direction.
	VoiceProfile string `yaml:"voice_profile"`

	Traits Traits `yaml:"traits"`
}

// Validate checks the fields required for a working session.
func (p Persona) Validate() error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("persona: id must not be empty"))
	}
	if p.Name == "" {
		errs = append(errs, errors.New("persona: name must not be empty"))
	}
	if p.Description == "" {
		errs = append(errs, errors.New("persona: description must not be empty"))
	}
	return errors.Join(errs...)
}

// Voice returns the persona's voice, falling back to a neutral default when
// none is set.
func (p Persona) Voice() string {
	if p.VoiceName == "" {
		return "Zephyr"
	}
	return p.VoiceName
}

// Greeting is the opening line seeded into the conversation history.
func (p Persona) Greeting() string {
	return fmt.Sprintf("Hello! I'm %s. I'm ready to show you around. Where should we start?", p.Name)
}

// BuiltIn returns the five stock London guides.
func BuiltIn() []Persona {
	return []Persona{
		{
			ID:          "david",
			Name:        "David Attenborough",
			Role:        "Explorer",
			Tagline:     "Nature & History",
			VoiceName:   "Fenrir",
			Description: "You are Sir David Attenborough. You guide the user through London with a focus on natural history, parks (like Richmond Park or Kew Gardens), and museums. Your tone is hushed, wondrous, and intellectual. You often pause for effect.",
			Traits:      Traits{Tone: "Wondrous", Focus: []string{"Nature", "Museums", "History"}},
		},
		{
			ID:          "vivienne",
			Name:        "Vivienne Westwood",
			Role:        "Fashion Design",
			Tagline:     "Punk & Rebellion",
			VoiceName:   "Kore",
			Description: "You are the late, great Vivienne Westwood. You guide the user through the rebellious side of London - Soho, Camden, Kings Road. Focus on fashion history, punk culture, and art. Your tone is bold, opinionated, and energetic.",
			Traits:      Traits{Tone: "Rebellious", Focus: []string{"Fashion", "Punk", "Art"}},
		},
		{
			ID:          "amelia",
			Name:        "Amelia Dimoldenberg",
			Role:        "Youtuber",
			Tagline:     "Chicken Shop Date",
			VoiceName:   "Zephyr",
			Description: "You are Amelia Dimoldenberg. You love chicken shops, awkward humor, and local pop culture spots. Your tone is deadpan, dry, and slightly awkward but charming. You suggest fast food, nugget spots, and trendy but low-key places.",
			Traits:      Traits{Tone: "Dry Humor", Focus: []string{"Food", "Pop Culture", "Dates"}},
		},
		{
			ID:          "stormzy",
			Name:        "Stormzy",
			Role:        "Grime Artist",
			Tagline:     "South London Vibes",
			VoiceName:   "Charon",
			Description: "You are Stormzy. You represent South London (Croydon, Brixton). You guide the user to the best spots for music, street food, and community vibes. Your tone is deep, friendly, \"bruv\", and authentic.",
			Traits:      Traits{Tone: "Authentic", Focus: []string{"Music", "Culture", "South London"}},
		},
		{
			ID:          "harry",
			Name:        "Harry Potter",
			Role:        "Wizard",
			Tagline:     "Magical London",
			VoiceName:   "Puck",
			Description: "You are Harry Potter. You guide the user to magical locations in London - Leadenhall Market (Diagon Alley), Kings Cross (Platform 9 3/4), and other wizarding world film locations. Your tone is helpful, brave, and slightly wondrous.",
			Traits:      Traits{Tone: "Magical", Focus: []string{"Magic", "Film Spots", "Secrets"}},
		},
	}
}

// DefaultID is the persona selected when none is specified.
const DefaultID = "david"

// Catalog holds the available personas, built-in plus any loaded from file.
type Catalog struct {
	personas []Persona
	byID     map[string]int
}

// NewCatalog creates a catalog seeded with the built-in personas.
func NewCatalog() *Catalog {
	c := &Catalog{byID: make(map[string]int)}
	for _, p := range BuiltIn() {
		c.add(p)
	}
	return c
}

func (c *Catalog) add(p Persona) {
	if i, ok := c.byID[p.ID]; ok {
		c.personas[i] = p
		return
	}
	c.byID[p.ID] = len(c.personas)
	c.personas = append(c.personas, p)
}

// LoadFile merges personas from a YAML file into the catalog. Entries with a
// known ID replace the built-in definition. Unknown fields are rejected so
// typos fail loudly.
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("persona: open %s: %w", path, err)
	}
	defer f.Close()

	var file struct {
		Personas []Persona `yaml:"personas"`
	}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return fmt.Errorf("persona: parse %s: %w", path, err)
	}

	for _, p := range file.Personas {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("persona: %s: %w", path, err)
		}
		c.add(p)
	}
	return nil
}

// Get returns the persona with the given ID.
func (c *Catalog) Get(id string) (Persona, error) {
	if i, ok := c.byID[id]; ok {
		return c.personas[i], nil
	}
	return Persona{}, fmt.Errorf("persona: unknown persona %q", id)
}

// List returns all personas in catalog order.
func (c *Catalog) List() []Persona {
	return append([]Persona(nil), c.personas...)
}
