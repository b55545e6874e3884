package processing

import (
	"regexp"
	"strings"
)

// Norwegian dairy brands seen on both sites, keyed by their lowercase
// appearance in product info strings.
var brands = map[string]string{
	"tine":            "TINE",
	"oatly":           "OATLY",
	"prior":           "Prior",
	"q meieriene":     "Q",
	"q-meieriene":     "Q",
	"melange":         "Melange",
	"soft flora":      "Soft Flora",
	"alpro":           "Alpro",
	"synnøve finden":  "Synnøve Finden",
	"synnøve":         "Synnøve",
	"rørosmeieriet":   "Rørosmeieriet",
	"castello":        "Castello",
	"kavli":           "Kavli",
	"fjordland":       "Fjordland",
	"yoplait":         "Yoplait",
	"danonino":        "Danonino",
	"helios":          "Helios",
	"stange":          "Stange",
	"vita hjertego'":  "Vita hjertego'",
	"sproud":          "Sproud",
	"bremykt":         "Bremykt",
	"mills":           "Mills",
	"arla":            "Arla",
	"go'morgen":       "Go'morgen",
	"go'dag":          "Go'dag",
	"galbani":         "Galbani",
	"président":       "Président",
	"becel":           "Becel",
}

// Keyword tables mapping product names onto dairy subcategories.
var subcategoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"melk", []string{"melk", "lettmelk", "skummet", "mjølk", "litago", "helmelk", "kulturmjølk"}},
	{"plantebasert", []string{"havredrikk", "soyadrikk", "mandeldrikk", "mylk", "ikaffe", "plantebasert", "plantedrikk"}},
	{"ost", []string{"ost", "norvegia", "jarlsberg", "geitost", "mozzarella", "cheddar", "pizzaost", "manchego", "selbu blå", "parmigiano", "grana padano"}},
	{"smør", []string{"smør", "meierismør", "margarin", "melange", "soft flora", "brelett", "bremykt"}},
	{"egg", []string{"egg", "høner"}},
	{"fløte_rømme", []string{"rømme", "crème fraîche", "matfløte", "havrefløte", "imat", "matfrisk", "matfløyel", "fløte", "kremfløte"}},
	{"yoghurt", []string{"yoghurt", "skyr", "biola", "go'morgen", "activia", "go'dag"}},
	{"kjølte_desserter", []string{"pudding", "risgrøt", "rispudding", "risengrynsgrøt"}},
	{"cottage_cheese", []string{"cottage cheese", "kesam", "kvarg", "cottage"}},
}

var (
	sizeRe         = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(l|ml|g|kg|dl|cl|stk)\b`)
	percentageRe   = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)%(?:\s+fett)?`)
	multipackRe    = regexp.MustCompile(`(?i)(\d+)x(\d+(?:[.,]\d+)?)\s*(g|ml|l|kg|stk)`)
	packQuantityRe = regexp.MustCompile(`(?i)(\d+)\s*(?:pk|stk|pakk|pakning)`)
	eggSizeRe      = regexp.MustCompile(`(?i)(?:str\.?|størrelse)\s*(xs|s|m|l|xl)`)
	eggQuantityRe  = regexp.MustCompile(`(?i)(\d+)\s*(?:stk|egg)`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	quoteRe        = regexp.MustCompile(`["']`)
)

// cleanText normalizes whitespace and drops characters that break CSV rows.
func cleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, ";", ",")
	text = quoteRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// classifySubcategory maps a product onto a dairy subcategory by keyword,
// defaulting to "other".
func classifySubcategory(name, info string) string {
	text := strings.ToLower(name + " " + info)
	for _, sc := range subcategoryKeywords {
		for _, kw := range sc.keywords {
			if strings.Contains(text, kw) {
				return sc.name
			}
		}
	}
	return "other"
}

// extractBrand finds a brand in the info or name, preferring the known
// brand table, then uppercase tokens, then the trailing info segment.
func extractBrand(info, name string) string {
	text := strings.ToLower(info + " " + name)
	for key, brand := range brands {
		if strings.Contains(text, key) {
			return brand
		}
	}

	for _, part := range strings.Split(info, ",") {
		part = strings.TrimSpace(part)
		if len(part) > 1 && part == strings.ToUpper(part) && part != strings.ToLower(part) {
			return part
		}
	}

	if i := strings.LastIndex(info, ","); i >= 0 {
		last := strings.TrimSpace(info[i+1:])
		if last != "" && len(last) < 20 {
			return last
		}
	}

	return ""
}

// extractAttributes pulls size, fat content and packaging details out of the
// info string.
func extractAttributes(info string) map[string]string {
	attrs := make(map[string]string)
	if info == "" {
		return attrs
	}

	if m := sizeRe.FindStringSubmatch(info); m != nil {
		attrs["size_quantity"] = strings.ReplaceAll(m[1], ",", ".")
		attrs["size_unit"] = strings.ToLower(m[2])
	}
	if m := percentageRe.FindStringSubmatch(info); m != nil {
		attrs["fat_percentage"] = strings.ReplaceAll(m[1], ",", ".")
	}
	if m := multipackRe.FindStringSubmatch(info); m != nil {
		attrs["multipack_count"] = m[1]
		attrs["multipack_size"] = strings.ReplaceAll(m[2], ",", ".")
		attrs["multipack_unit"] = strings.ToLower(m[3])
	}
	if m := packQuantityRe.FindStringSubmatch(info); m != nil {
		attrs["pack_quantity"] = m[1]
	}
	if m := eggSizeRe.FindStringSubmatch(info); m != nil {
		attrs["egg_size"] = strings.ToLower(m[1])
	}
	if m := eggQuantityRe.FindStringSubmatch(info); m != nil {
		attrs["egg_quantity"] = m[1]
	}

	return attrs
}
