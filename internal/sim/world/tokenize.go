package world

// Tokenize normalizes free text into the token sequence used for both memory
// ingestion and query scoring. The two sides must use the same function or the
// overlap scores are meaningless.
//
// Rules: lower-case, alphanumeric runs of length >= 2, stopwords removed,
// order preserved.
func Tokenize(text string) []string {
	var out []string
	var run []byte
	flush := func() {
		if len(run) >= 2 {
			tok := string(run)
			if !stopwords[tok] {
				out = append(out, tok)
			}
		}
		run = run[:0]
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'A' && c <= 'Z':
			run = append(run, c+('a'-'A'))
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'):
			run = append(run, c)
		default:
			flush()
		}
	}
	flush()
	return out
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"is": true, "are": true, "was": true, "were": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "that": true, "this": true, "it": true, "as": true,
	"by": true, "from": true, "be": true, "has": true, "have": true,
	"had": true, "i": true, "you": true, "he": true, "she": true,
	"they": true, "we": true, "my": true, "your": true, "their": true,
	"our": true, "but": true, "not": true,
}
