// Package locale provides the Arabic/English text services used by reports
// and exports: digit shaping, bidi cleanup, collation and localized labels.
package locale

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Language selects the presentation language.
type Language string

const (
	Arabic  Language = "ar"
	English Language = "en"
)

// ParseLanguage maps free-form input to a supported language, defaulting to Arabic.
func ParseLanguage(v string) Language {
	v = strings.ToLower(strings.TrimSpace(v))
	if strings.HasPrefix(v, "en") {
		return English
	}
	return Arabic
}

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() language.Tag {
	if l == English {
		return language.English
	}
	return language.Arabic
}

// Direction returns the HTML dir attribute value for the language.
func (l Language) Direction() string {
	if l == English {
		return "ltr"
	}
	return "rtl"
}

// RTL reports whether the language is written right to left.
func (l Language) RTL() bool {
	return l.Direction() == "rtl"
}

const (
	// LRM forces left-to-right ordering of the following run.
	LRM = "\u200e"
	// RLM forces right-to-left ordering of the following run.
	RLM = "\u200f"
)

var (
	arabicDigits  = [10]rune{'٠', '١', '٢', '٣', '٤', '٥', '٦', '٧', '٨', '٩'}
	monthsArabic  = [12]string{"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو", "يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر"}
	weekdayArabic = [7]string{"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت"}
)

// Engine bundles the text services. It is safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	collators map[Language]*collate.Collator
}

// NewEngine constructs an Engine.
func NewEngine() *Engine {
	return &Engine{collators: make(map[Language]*collate.Collator)}
}

// ToArabicDigits replaces Western and Persian digits with Arabic-Indic digits.
func (e *Engine) ToArabicDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return arabicDigits[r-'0']
		case r >= '۰' && r <= '۹':
			return arabicDigits[r-'۰']
		}
		return r
	}, s)
}

// ToWesternDigits replaces Arabic-Indic and Persian digits with ASCII digits.
func (e *Engine) ToWesternDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, s)
}

func isBidiControl(r rune) bool {
	switch {
	case r == 0x061C, r == 0x200E, r == 0x200F:
		return true
	case r >= 0x202A && r <= 0x202E:
		return true
	case r >= 0x2066 && r <= 0x2069:
		return true
	}
	return false
}

func isZeroWidth(r rune) bool {
	return (r >= 0x200B && r <= 0x200D) || r == 0xFEFF || r == 0x2060
}

func isDiacritic(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670 || r == 0x0640
}

func isStrayControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

// StripControls removes bidi marks, zero-width characters and stray control characters.
func (e *Engine) StripControls(s string) string {
	if s == "" {
		return s
	}
	t := runes.Remove(runes.Predicate(func(r rune) bool {
		return isBidiControl(r) || isZeroWidth(r) || isStrayControl(r)
	}))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Clean strips controls, Arabic diacritics and tatweel, and normalizes to NFC.
func (e *Engine) Clean(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFC, runes.Remove(runes.Predicate(func(r rune) bool {
		return isBidiControl(r) || isZeroWidth(r) || isStrayControl(r) || isDiacritic(r)
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return e.StripControls(s)
	}
	return strings.TrimSpace(out)
}

// HasArabic reports whether s contains any Arabic-script letter.
func (e *Engine) HasArabic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

// Compare orders strings using the language's collation rules.
func (e *Engine) Compare(lang Language, a, b string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.collators[lang]
	if !ok {
		c = collate.New(lang.Tag())
		e.collators[lang] = c
	}
	return c.CompareString(a, b)
}

// CompareCodes orders account codes. Codes are ASCII in practice, so the
// English collation keeps the ordering stable across presentation languages.
func (e *Engine) CompareCodes(a, b string) int {
	return e.Compare(English, e.ToWesternDigits(a), e.ToWesternDigits(b))
}

// YesNo returns the localized label for a boolean.
func (e *Engine) YesNo(lang Language, v bool) string {
	switch {
	case lang == English && v:
		return "Yes"
	case lang == English:
		return "No"
	case v:
		return "نعم"
	default:
		return "لا"
	}
}

// MonthName returns the localized month name.
func (e *Engine) MonthName(lang Language, m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	if lang == English {
		return m.String()
	}
	return monthsArabic[m-1]
}

// WeekdayName returns the localized weekday name.
func (e *Engine) WeekdayName(lang Language, d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	if lang == English {
		return d.String()
	}
	return weekdayArabic[d]
}
