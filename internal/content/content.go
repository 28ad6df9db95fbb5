package content

// Extraction caps. Anything beyond these counts is dropped in document order.
const (
	MaxHeadlines  = 10
	MaxParagraphs = 8
	MaxButtons    = 6
	MaxImages     = 10
	MaxNavigation = 8
)

// Prompt slices: how much of a page is shown to the model.
const (
	PromptHeadlines  = 5
	PromptParagraphs = 4
	PromptButtons    = 4
)

// Source values for Personalized.Source.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Structured is the content model extracted from a single HTML page.
// URL-valued fields are absolute or empty.
type Structured struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	Favicon         string   `json:"favicon"`
	Logo            string   `json:"logo"`
	Headlines       []string `json:"headlines"`
	Paragraphs      []string `json:"paragraphs"`
	Buttons         []string `json:"buttons"`
	Images          []string `json:"images"`
	Navigation      []string `json:"navigation"`
	BaseURL         string   `json:"baseUrl"`
}

// Personalized is a keyword-specific variant of Structured. It is always
// fully populated, whichever path produced it.
type Personalized struct {
	Structured

	PersonalizedHeadlines  []string `json:"personalizedHeadlines"`
	PersonalizedParagraphs []string `json:"personalizedParagraphs"`
	PersonalizedButtons    []string `json:"personalizedButtons"`

	HeroHeadline    string `json:"heroHeadline"`
	HeroSubheadline string `json:"heroSubheadline"`
	HeroCTA         string `json:"heroCta"`

	Keyword string `json:"keyword"`

	// Source is SourceLLM or SourceFallback.
	Source         string `json:"source"`
	FallbackReason string `json:"fallbackReason,omitempty"`
}

// Normalized returns a copy with nil slices replaced by empty ones so the JSON
// encoding never carries null arrays.
func (s Structured) Normalized() Structured {
	s.Headlines = nonNil(s.Headlines)
	s.Paragraphs = nonNil(s.Paragraphs)
	s.Buttons = nonNil(s.Buttons)
	s.Images = nonNil(s.Images)
	s.Navigation = nonNil(s.Navigation)
	return s
}

// First returns the first element of list or "".
func First(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// Head returns a copy of at most n leading elements.
func Head(list []string, n int) []string {
	if n > len(list) {
		n = len(list)
	}
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	copy(out, list[:n])
	return out
}

// Clone returns a non-nil copy of list.
func Clone(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
