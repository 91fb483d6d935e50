package builder

import "strings"

// Classification outcomes used as skip reasons.
const (
	reasonAccessory    = "accessory"
	reasonNotHeadphone = "not_headphone"
)

// Title phrases that mark accessories. They reject a record even when an
// inclusion keyword also matches.
var excludePhrases = []string{
	// cables and adapters
	"aux cable", "audio cable", "extension cable", "headphone cable",
	"replacement cable", "charging cable", "charging cord",
	"usb c to 3.5mm", "usb-c to 3.5mm", "to 3.5mm", "3.5mm male to male",
	"aux adapter", "audio adapter", "headphone adapter", "splitter", "converter",
	// cases and covers
	"phone case", "protective case", "cover case", "case for", "cover for",
	"earbud case", "headphone case", "storage case", "carrying case",
	"bag for headphones", "pouch for headphones", "bumper case",
	// tips, cushions, hooks, pads
	"ear tips", "ear tip", "earbuds tips", "foam tips",
	"ear hooks", "earhooks", "ear hook", "ear cushions",
	"ear pads", "earpads", "ear pad", "replacement earpads",
	// stands and mounts
	"headphone stand", "headset stand", "hanger", "mount",
	// watches
	"smart watch", "smartwatch", "watch band", "watch strap", "watch case",
	// misc
	"screen protector", "protector for",
}

var includeKeywords = []string{
	"headphone", "earbud", "earphone",
	"over-ear", "over ear", "on-ear", "on ear", "in-ear", "in ear",
	"true wireless", "tws earbuds", "headset",
}

var headphoneCategoryKeywords = []string{"headphone", "earbud", "earphone"}

var accessoryCategoryKeywords = []string{"cable", "adapter", "accessories", "cases", "covers"}

// classify decides whether a raw record is a pair of headphones. The
// returned reason is empty for headphones.
func classify(r *RawProduct) (bool, string) {
	title := strings.ToLower(r.Title)
	if containsAny(title, excludePhrases) {
		return false, reasonAccessory
	}

	cats := strings.ToLower(strings.Join(r.Categories, " | "))
	if cats == "" {
		cats = strings.ToLower(r.MainCategory)
	}

	titleMatch := containsAny(title, includeKeywords)
	accessoryCat := containsAny(cats, accessoryCategoryKeywords)

	switch {
	case accessoryCat && !titleMatch:
		return false, reasonAccessory
	case titleMatch && !accessoryCat && containsAny(cats, headphoneCategoryKeywords):
		return true, ""
	case titleMatch && strings.Contains(r.DetailsText(), "headphone"):
		return true, ""
	default:
		return false, reasonNotHeadphone
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
