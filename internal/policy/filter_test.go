package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViolates(t *testing.T) {
	f := NewFilter(DefaultOptions())

	tests := []struct {
		name string
		text string
		want bool
		rule string
	}{
		{"empty", "", false, ""},
		{"whitespace", "   \n", false, ""},
		{"plain question", "Is this still available?", false, ""},
		{"phone with dashes", "call me at 555-123-4567", true, RulePhone},
		{"phone international", "+44 (20) 7946 0958", true, RulePhone},
		{"phone compact", "yes! call me at 08012345678", true, RulePhone},
		{"email", "email me at foo@bar.com", true, RuleEmail},
		{"email uppercase", "FOO.BAR@EXAMPLE.ORG", true, RuleEmail},
		{"instagram", "find me on instagram", true, RuleSocial},
		{"wa.me link", "wa.me/2348000", true, RuleSocial},
		{"imo standalone", "ping me on IMO", true, RuleSocial},
		{"imo inside word", "maximo price", true, RuleSocial},
		{"bare dot", "dot", true, RuleObfuscated},
		{"arroba", "juan arroba gmail", true, RuleObfuscated},
		{"where", "where do we meet", true, RuleObfuscated},
		{"short number", "price is 1200", false, ""},
		{"word containing at", "that is great", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Check(tt.text)
			assert.Equal(t, tt.want, res.Blocked)
			assert.Equal(t, tt.want, f.Violates(tt.text))
			assert.Equal(t, tt.rule, res.Rule)
		})
	}
}

// The obfuscation words reject everyday prose. This pins that strictness so
// relaxing it is a visible change.
func TestObfuscatedWordsThreshold(t *testing.T) {
	prose := []string{"meet at noon", "connect the dots dot", "where is it located"}

	strict := NewFilter(DefaultOptions())
	relaxed := NewFilter(Options{ObfuscatedWords: false})

	for _, text := range prose {
		assert.True(t, strict.Violates(text), text)
		assert.False(t, relaxed.Violates(text), text)
	}

	assert.True(t, relaxed.Violates("call me at 555-123-4567"))
	assert.True(t, relaxed.Violates("find me on instagram"))
}
