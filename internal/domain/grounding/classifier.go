package grounding

import "strings"

// Classifier decides whether a generated answer is an out-of-context refusal.
type Classifier interface {
	IsOutOfContext(answer string) bool
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(answer string) bool

// IsOutOfContext calls f.
func (f ClassifierFunc) IsOutOfContext(answer string) bool { return f(answer) }

// AnyOf reports out-of-context when any of the classifiers does.
func AnyOf(classifiers ...Classifier) Classifier {
	return ClassifierFunc(func(answer string) bool {
		for _, c := range classifiers {
			if c.IsOutOfContext(answer) {
				return true
			}
		}
		return false
	})
}

// ExactPrefix matches answers that start with the canonical refusal.
var ExactPrefix = ClassifierFunc(func(answer string) bool {
	return strings.HasPrefix(foldApostrophes(strings.TrimSpace(answer)), CanonicalRefusal)
})

// Phrase matches answers whose lowercased text contains every one of the phrases.
type Phrase []string

// IsOutOfContext implements Classifier.
func (p Phrase) IsOutOfContext(answer string) bool {
	if len(p) == 0 {
		return false
	}
	lower := strings.ToLower(foldApostrophes(answer))
	for _, s := range p {
		if !strings.Contains(lower, s) {
			return false
		}
	}
	return true
}

// PatternClassifier is the default heuristic: the exact refusal prefix, or one of
// the phrase combinations generators use when paraphrasing the refusal.
func PatternClassifier() Classifier {
	return AnyOf(
		ExactPrefix,
		Phrase{"i'm sorry, but", "health-related documents", "healthcare"},
		Phrase{"not related to the provided context"},
		Phrase{"not in the context", "health"},
	)
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

func foldApostrophes(s string) string {
	return apostrophes.Replace(s)
}
