package textnorm

import "strings"

// Lemmatize maps an English word form to its dictionary form using an
// irregular-plural table and guarded suffix rules. The result is always a
// fixed point: Lemmatize(Lemmatize(w)) == Lemmatize(w).
func Lemmatize(word string) string {
	for i := 0; i < len(word); i++ {
		next := lemmaStep(word)
		if next == word {
			return word
		}
		word = next
	}
	return word
}

func lemmaStep(w string) string {
	if len(w) < 4 {
		return w
	}
	if _, ok := invariantWords[w]; ok {
		return w
	}
	if base, ok := irregularPlurals[w]; ok {
		return base
	}
	if _, ok := keepTerminalE[w]; ok {
		return w[:len(w)-1]
	}
	if strings.HasSuffix(w, "es") {
		stem := w[:len(w)-2]
		if _, ok := invariantWords[stem]; ok {
			return stem
		}
		if _, ok := usSingulars[stem]; ok || strings.HasSuffix(stem, "virus") {
			return stem
		}
	}
	switch {
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "xes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

// words ending in -s that are already singular
var invariantWords = map[string]struct{}{
	"diabetes": {}, "series": {}, "species": {}, "news": {}, "physics": {}, "mathematics": {},
	"statistics": {}, "measles": {}, "mumps": {}, "rabies": {}, "herpes": {}, "scabies": {},
	"lens": {}, "bias": {}, "gas": {}, "biceps": {}, "triceps": {}, "pancreas": {}, "ascites": {},
	"genetics": {}, "economics": {}, "ethics": {}, "pharmacokinetics": {}, "kinetics": {},
	"diagnostics": {}, "therapeutics": {}, "sepsis": {}, "always": {}, "perhaps": {}, "whereas": {},
	"thus": {}, "towards": {}, "across": {}, "afterwards": {}, "various": {}, "previous": {},
}

// -us nouns whose plural adds -es; other -uses words (causes, houses) are
// left to the plain -s rule
var usSingulars = map[string]struct{}{
	"virus": {}, "status": {}, "corpus": {}, "census": {}, "fetus": {}, "foetus": {}, "sinus": {},
	"bonus": {}, "plexus": {}, "uterus": {}, "hiatus": {}, "meatus": {}, "apparatus": {},
	"prospectus": {}, "onus": {}, "thesaurus": {}, "nexus": {}, "consensus": {}, "abacus": {},
	"bus": {}, "octopus": {}, "hippopotamus": {}, "callus": {}, "calculus": {}, "fungus": {},
	"focus": {}, "stimulus": {}, "nucleus": {}, "thrombus": {}, "embolus": {}, "bolus": {},
	"fundus": {}, "humerus": {}, "esophagus": {}, "oesophagus": {}, "syllabus": {},
}

// -ches words whose stem keeps the final e
var keepTerminalE = map[string]struct{}{
	"aches": {}, "headaches": {}, "backaches": {}, "toothaches": {}, "stomachaches": {},
	"niches": {}, "caches": {}, "avalanches": {}, "moustaches": {}, "mustaches": {},
}

var irregularPlurals = map[string]string{
	"children":    "child",
	"women":       "woman",
	"men":         "man",
	"people":      "person",
	"mice":        "mouse",
	"feet":        "foot",
	"teeth":       "tooth",
	"geese":       "goose",
	"lice":        "louse",
	"criteria":    "criterion",
	"phenomena":   "phenomenon",
	"bacteria":    "bacterium",
	"analyses":    "analysis",
	"diagnoses":   "diagnosis",
	"prognoses":   "prognosis",
	"hypotheses":  "hypothesis",
	"metastases":  "metastasis",
	"syntheses":   "synthesis",
	"crises":      "crisis",
	"bases":       "basis",
	"theses":      "thesis",
	"neuroses":    "neurosis",
	"psychoses":   "psychosis",
	"stenoses":    "stenosis",
	"fibroses":    "fibrosis",
	"thromboses":  "thrombosis",
	"necroses":    "necrosis",
	"scleroses":   "sclerosis",
	"paralyses":   "paralysis",
	"dialyses":    "dialysis",
	"emphases":    "emphasis",
	"oases":       "oasis",
	"parentheses": "parenthesis",
	"indices":     "index",
	"matrices":    "matrix",
	"appendices":  "appendix",
	"vertebrae":   "vertebra",
	"larvae":      "larva",
	"fungi":       "fungus",
	"nuclei":      "nucleus",
	"stimuli":     "stimulus",
	"foci":        "focus",
	"loci":        "locus",
	"bacilli":     "bacillus",
	"emboli":      "embolus",
	"thrombi":     "thrombus",
	"carcinomata": "carcinoma",
}
