// Package feature holds the normalized feature-tag vocabulary shared by the
// index builder, the query plan and the ranking stages.
package feature

import (
	"regexp"
	"sort"
	"strings"
)

// Canonical tags.
const (
	ANC            = "anc"
	BassBoost      = "bass-boost"
	Bluetooth      = "bluetooth"
	Foldable       = "foldable"
	HiRes          = "hi-res"
	InEar          = "in-ear"
	LongBattery    = "long-battery"
	LowLatency     = "low-latency"
	Microphone     = "microphone"
	OnEar          = "on-ear"
	OpenBack       = "open-back"
	OverEar        = "over-ear"
	SecureFit      = "secure-fit"
	Surround       = "surround"
	SweatProof     = "sweat-proof"
	TrueWireless   = "true-wireless"
	USBC           = "usb-c"
	WaterResistant = "water-resistant"
	Wired          = "wired"
	Wireless       = "wireless"
)

type rule struct {
	tag     string
	pattern *regexp.Regexp
}

// rules drive Extract. Patterns run against lowercased text.
var rules = []rule{
	{ANC, regexp.MustCompile(`noise[- ]?cancel+(?:ing|ation)|\banc\b`)},
	{BassBoost, regexp.MustCompile(`\bbass[- ]?boost(?:ed)?\b|\b(?:extra|deep|heavy|powerful|punchy) bass\b`)},
	{Bluetooth, regexp.MustCompile(`\bbluetooth\b`)},
	{Foldable, regexp.MustCompile(`\b(?:foldable|collapsible|folding)\b`)},
	{HiRes, regexp.MustCompile(`\bhi[- ]?res\b|\bhigh[- ]resolution\b|\bldac\b|\baptx[- ]hd\b`)},
	{InEar, regexp.MustCompile(`\bin[- ]ear\b|\bear ?buds?\b|\bearphones?\b|\biems?\b`)},
	{LongBattery, regexp.MustCompile(`\b(?:[2-9]\d|\d{3})\s?(?:h|hrs?|hours)\b|\blong[- ](?:lasting )?battery\b|\ball[- ]day battery\b`)},
	{LowLatency, regexp.MustCompile(`\blow[- ]latency\b|\bgaming mode\b|\b2\.4\s?ghz\b`)},
	{Microphone, regexp.MustCompile(`\bmicrophones?\b|\bmics?\b`)},
	{OnEar, regexp.MustCompile(`\bon[- ]ear\b`)},
	{OpenBack, regexp.MustCompile(`\bopen[- ]back\b`)},
	{OverEar, regexp.MustCompile(`\bover[- ](?:the[- ])?ear\b|\baround[- ](?:the[- ])?ear\b|\bcircumaural\b`)},
	{SecureFit, regexp.MustCompile(`\bear ?hooks?\b|\bear ?wings?\b|\bwing ?tips\b|\bsecure fit\b|\bsports? fit\b`)},
	{Surround, regexp.MustCompile(`\bsurround sound\b|\b7\.1\b|\bspatial audio\b|\b3d audio\b`)},
	{SweatProof, regexp.MustCompile(`\bsweat[- ]?(?:proof|resistant)\b|\bipx[4-8]\b`)},
	{TrueWireless, regexp.MustCompile(`\btrue wireless\b|\btws\b`)},
	{USBC, regexp.MustCompile(`\busb[- ]?c\b|\btype[- ]c\b`)},
	{WaterResistant, regexp.MustCompile(`\bwater[- ]?(?:proof|resistant)\b|\bipx[4-8]\b|\bip6[5-8]\b`)},
	{Wired, regexp.MustCompile(`\bwired\b|\b3\.5 ?mm\b|\baux\b`)},
	{Wireless, regexp.MustCompile(`\bwireless\b|\bbluetooth\b`)},
}

// aliases maps common spellings to a canonical tag. Keys are already in
// canonical form (lowercase, hyphen separated).
var aliases = map[string]string{
	"noise-cancelling":          ANC,
	"noise-canceling":           ANC,
	"noise-cancellation":        ANC,
	"active-noise-cancelling":   ANC,
	"active-noise-cancellation": ANC,
	"bass":                      BassBoost,
	"extra-bass":                BassBoost,
	"bass-boosted":              BassBoost,
	"hi-res-audio":              HiRes,
	"high-resolution":           HiRes,
	"earbuds":                   InEar,
	"earbud":                    InEar,
	"in-ear-monitor":            InEar,
	"battery":                   LongBattery,
	"battery-life":              LongBattery,
	"long-battery-life":         LongBattery,
	"gaming-mode":               LowLatency,
	"mic":                       Microphone,
	"mic-quality":               Microphone,
	"built-in-mic":              Microphone,
	"over-the-ear":              OverEar,
	"around-ear":                OverEar,
	"ear-hooks":                 SecureFit,
	"ear-hook":                  SecureFit,
	"fit":                       SecureFit,
	"spatial-audio":             Surround,
	"surround-sound":            Surround,
	"sweatproof":                SweatProof,
	"sweat-resistant":           SweatProof,
	"tws":                       TrueWireless,
	"usbc":                      USBC,
	"type-c":                    USBC,
	"waterproof":                WaterResistant,
	"water-proof":               WaterResistant,
	"bluetooth-headphones":      Wireless,
	"cordless":                  Wireless,
	"3.5mm":                     Wired,
}

var known = func() map[string]struct{} {
	m := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		m[r.tag] = struct{}{}
	}
	return m
}()

// Normalize lowercases s, hyphenates separators and resolves aliases.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if canon, ok := aliases[s]; ok {
		return canon
	}
	return s
}

// Known reports whether tag (after normalization) is part of the vocabulary.
func Known(tag string) bool {
	_, ok := known[Normalize(tag)]
	return ok
}

// Extract scans free text and returns every tag whose pattern matches.
func Extract(texts ...string) Set {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(strings.ToLower(t))
		b.WriteByte('\n')
	}
	text := b.String()

	var tags []string
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			tags = append(tags, r.tag)
		}
	}
	return NewSet(tags...)
}

// Set is a sorted, de-duplicated list of normalized tags. Treat it as read-only.
type Set []string

// NewSet normalizes tags, drops empties and returns them sorted and unique.
func NewSet(tags ...string) Set {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := Normalize(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return Set(out)
}

// Has reports whether tag is in the set. tag must already be normalized.
func (s Set) Has(tag string) bool {
	i := sort.SearchStrings(s, tag)
	return i < len(s) && s[i] == tag
}

// ContainsAll reports whether every tag of other is in s.
func (s Set) ContainsAll(other Set) bool {
	for _, t := range other {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

// CountIn returns how many tags of s are present in other.
func (s Set) CountIn(other Set) int {
	n := 0
	for _, t := range s {
		if other.Has(t) {
			n++
		}
	}
	return n
}

// Strings returns a copy of the tags.
func (s Set) Strings() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
