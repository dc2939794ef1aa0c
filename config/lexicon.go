package config

// Default domain vocabulary. The catalogs this system sees mix Latin and
// Arabic script freely, so the brand list and synonym table carry both.

// DefaultBrands is the known-brand list used for brand extraction.
// Order matters: the first substring hit wins.
var DefaultBrands = []string{
	"Dior", "Chanel", "Gucci", "Tom Ford", "Versace", "Armani", "YSL", "Prada",
	"Burberry", "Givenchy", "Hermes", "Creed", "Montblanc", "Calvin Klein",
	"Hugo Boss", "Dolce & Gabbana", "Valentino", "Bvlgari", "Cartier", "Lancome",
	"Jo Malone", "Amouage", "Rasasi", "Lattafa", "Arabian Oud", "Ajmal",
	"Al Haramain", "Afnan", "Armaf", "Nishane", "Xerjoff", "Parfums de Marly",
	"Initio", "Byredo", "Le Labo", "Mancera", "Montale", "Kilian", "Roja",
	"Carolina Herrera", "Jean Paul Gaultier", "Narciso Rodriguez",
	"Paco Rabanne", "Mugler", "Chloe", "Coach", "Michael Kors", "Ralph Lauren",
	"لطافة", "العربية للعود", "رصاصي", "أجمل", "الحرمين", "أرماف",
	"أمواج", "كريد", "توم فورد", "ديور", "شانيل", "غوتشي", "برادا",
}

// DefaultSynonyms maps bilingual phrases to canonical tokens before scoring.
// Keys are matched case-insensitively against the lowered input.
var DefaultSynonyms = map[string]string{
	"او دو بارفان": "edp",
	"أو دو بارفان": "edp",
	"او دي بارفان": "edp",
	"eau de parfum": "edp",
	"او دو تواليت": "edt",
	"أو دو تواليت": "edt",
	"او دي تواليت": "edt",
	"eau de toilette": "edt",
	"eau de cologne":  "edc",
	"ملي":             "ml",
	"مل":              "ml",
	"سوفاج":           "sauvage",
	"ديور":            "dior",
	"شانيل":           "chanel",
	"توم فورد":        "tom ford",
	"لطافة":           "lattafa",
}

// DefaultSampleKeywords excludes samples and decants from matching entirely
var DefaultSampleKeywords = []string{
	"sample", "عينة", "عينه", "decant", "تقسيم", "تقسيمة",
	"split", "miniature", "0.5ml", "1ml", "2ml", "3ml",
}

// DefaultTesterKeywords flags tester packaging
var DefaultTesterKeywords = []string{"tester", "تستر", "تيستر"}

// DefaultSetKeywords flags gift sets and coffrets
var DefaultSetKeywords = []string{"set", "gift set", "طقم", "مجموعة", "coffret"}

// DefaultMaleKeywords and DefaultFemaleKeywords are matched as whole tokens
// against normalized text; a name hitting both lists stays unknown.
var DefaultMaleKeywords = []string{"men", "man", "homme", "him", "male", "رجالي", "للرجال"}

var DefaultFemaleKeywords = []string{"women", "woman", "femme", "her", "female", "نسائي", "للنساء"}
