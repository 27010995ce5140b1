package utils

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// IgnoreList holds terms for videos that must never be archived. A term
// matches a video when it is contained (case-insensitive, NFC-normalised) in
// its channel name or title, or equals its id.
type IgnoreList struct {
	terms []string
}

// LoadIgnoreList loads ignore terms from a file, one per line. Blank lines and
// lines starting with # are skipped. A missing file yields an empty list.
func LoadIgnoreList(path string) (*IgnoreList, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &IgnoreList{terms: []string{}}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var terms []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term != "" && !strings.HasPrefix(term, "#") {
			terms = append(terms, term)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &IgnoreList{terms: terms}, nil
}

// Len returns the number of loaded terms
func (l *IgnoreList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.terms)
}

// Match checks a video against the list.
// Returns (matched, matchedTerm)
func (l *IgnoreList) Match(videoID, channel, title string) (bool, string) {
	if l == nil {
		return false, ""
	}

	channelLower := foldText(channel)
	titleLower := foldText(title)

	for _, term := range l.terms {
		if term == videoID {
			return true, term
		}
		termLower := foldText(term)
		if strings.Contains(channelLower, termLower) || strings.Contains(titleLower, termLower) {
			return true, term
		}
	}

	return false, ""
}

// foldText lower-cases s in its composed form, so decomposed accents in a
// title still match a term typed with precomposed characters.
func foldText(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
