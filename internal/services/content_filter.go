package services

import (
	"regexp"
	"strings"
)

var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
	"scam", "scammer", "phishing", "malware",
}

// ContentFilter screens user text. Reports are public to the whole campus
// and reject links and contact details; chat messages are private to the
// two verified parties and only reject abuse and spam.
type ContentFilter struct {
	bannedWordRegexps   []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
}

func NewContentFilter() *ContentFilter {
	f := &ContentFilter{
		bannedWordRegexps: make([]*regexp.Regexp, 0, len(BannedWords)),
	}
	for _, word := range BannedWords {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if err == nil {
			f.bannedWordRegexps = append(f.bannedWordRegexps, re)
		}
	}
	f.urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`)
	f.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	f.phonePattern = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	// Go regexp has no backreferences, so runs are listed per character.
	var runs []string
	for c := 'a'; c <= 'z'; c++ {
		runs = append(runs, string(c)+"{5,}")
	}
	runs = append(runs, `!{4,}`, `\?{4,}`, `\.{5,}`)
	f.repeatedCharPattern = regexp.MustCompile(`(?i)(` + strings.Join(runs, "|") + `)`)
	f.allCapsPattern = regexp.MustCompile(`[A-Z]{5,}`)
	return f
}

// CheckReport reports whether public report text is acceptable, and the
// rejection reason when it is not.
func (f *ContentFilter) CheckReport(text string) (bool, string) {
	if ok, reason := f.CheckMessage(text); !ok {
		return false, reason
	}
	if f.emailPattern.MatchString(text) || f.phonePattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	return true, ""
}

func (f *ContentFilter) CheckMessage(text string) (bool, string) {
	if text == "" {
		return true, ""
	}
	for _, re := range f.bannedWordRegexps {
		if re.MatchString(text) {
			return false, "inappropriate_language"
		}
	}
	if f.urlPattern.MatchString(text) {
		return false, "url_not_allowed"
	}
	if f.repeatedCharPattern.MatchString(text) {
		return false, "spam_detected"
	}
	if len(f.allCapsPattern.FindAllString(text, -1)) > 2 {
		return false, "excessive_caps"
	}
	return true, ""
}

func (f *ContentFilter) RejectionMessage(reason string) string {
	messages := map[string]string{
		"inappropriate_language":   "Your text contains inappropriate language.",
		"url_not_allowed":          "URLs and web links are not allowed.",
		"contact_info_not_allowed": "Contact details are shared only after ownership is verified.",
		"spam_detected":            "Your text appears to be spam.",
		"excessive_caps":           "Please avoid using excessive capital letters.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "Your text does not meet our content guidelines."
}
