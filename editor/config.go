package editor

import "log/slog"

// Config tunes the applicators.
type Config struct {
	// SnippetRadius is the number of characters captured on each side of
	// a match for the context snippet of an AppliedEdit.
	SnippetRadius int `yaml:"snippet_radius"`
	// ContextRadius is the number of characters compared against the
	// recorded before/after contexts in context-scan mode.
	ContextRadius int `yaml:"context_radius"`
	// ProtectedTags lists element names whose text refuses edits with
	// status "blocked". Link text is protected by default.
	ProtectedTags []string `yaml:"protected_tags"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.SnippetRadius <= 0 {
		c.SnippetRadius = 50
	}
	if c.ContextRadius <= 0 {
		c.ContextRadius = 20
	}
	if c.ProtectedTags == nil {
		c.ProtectedTags = []string{"a"}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) protectedTag(tag string) bool {
	for _, t := range c.ProtectedTags {
		if t == tag {
			return true
		}
	}
	return false
}
