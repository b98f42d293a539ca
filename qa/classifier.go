package qa

import "strings"

// Category describes the kind of question being asked, which selects the
// system prompt used for generation.
type Category string

const (
	CategoryFactual     Category = "factual"
	CategoryAnalytical  Category = "analytical"
	CategoryComparative Category = "comparative"
	CategoryGeneral     Category = "general"
	CategoryError       Category = "error"
)

// categories are checked in order; the first category with a matching phrase
// wins, so a question containing both "what is" and "compare" is factual.
var categories = []struct {
	category Category
	phrases  []string
}{
	{CategoryFactual, []string{"what is", "what are", "who is", "who are", "when", "where", "how many", "how much"}},
	{CategoryAnalytical, []string{"why", "how does", "explain", "analyze", "interpret", "implications", "significance"}},
	{CategoryComparative, []string{"compare", "contrast", "difference", "similarity", "vs", "versus", "better", "worse"}},
}

// Classify picks a category for a question by case insensitive substring
// matching. Questions matching nothing are general.
func Classify(question string) Category {
	lower := strings.ToLower(question)
	for _, c := range categories {
		for _, phrase := range c.phrases {
			if strings.Contains(lower, phrase) {
				return c.category
			}
		}
	}

	return CategoryGeneral
}
