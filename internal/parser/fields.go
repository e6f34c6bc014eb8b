package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/IshaanNene/isoscrape/internal/types"
)

var nameSelectors = []string{
	"h1",
	".product-title",
	".product-name",
	".page-title",
	".entry-title",
	`[data-testid="product-name"]`,
}

var imageSelectors = []string{
	`img[src*="/product/image/"]`,
	`img[src*="cdlm-"]`,
	`img[src*="clm-"]`,
	`img[src*="dlm-"]`,
	`img[src*="nlm-"]`,
	`img[src*="olm-"]`,
	".product-image img",
	".product-photo img",
}

var detailSelectors = []string{".Details_customHorizontal", ".Details_customVertical"}

// detailLabels maps a lowercased label substring to its column. Order matters:
// the first label that matches a row claims it.
var detailLabels = []struct {
	label  string
	column string
}{
	{"cas number labeled", types.ColCASLabeled},
	{"cas number unlabeled", types.ColCASUnlabeled},
	{"formula", types.ColFormula},
	{"synonyms", types.ColSynonyms},
	{"molecular weight", types.ColMolecularWeight},
	{"enrichment", types.ColIsotopicEnrichment},
	{"purity", types.ColChemicalPurity},
}

var productNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)((?:cd|[cdno])lm-\d+(?:-[a-z0-9]+)?)`),
	regexp.MustCompile(`(?i)itemno=([A-Z0-9-]+)`),
}

var casPatterns = []struct {
	re     *regexp.Regexp
	column string
}{
	{regexp.MustCompile(`(?i)>CAS Number Labeled</span><span>(\d{1,7}-\d{2}-\d)</span>`), types.ColCASLabeled},
	{regexp.MustCompile(`(?i)>CAS Number Unlabeled</span><span>(\d{1,7}-\d{2}-\d)</span>`), types.ColCASUnlabeled},
	{regexp.MustCompile(`(?i)CAS\s*Number\s*Labeled[:\s]*(\d{1,7}-\d{2}-\d)`), types.ColCASLabeled},
	{regexp.MustCompile(`(?i)CAS\s*Number\s*Unlabeled[:\s]*(\d{1,7}-\d{2}-\d)`), types.ColCASUnlabeled},
}

var formulaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)>Formula</span><span>([^<]+)</span>`),
	regexp.MustCompile(`(?i:formula)[:\s]*([A-Z][a-z]?\d*(?:[A-Z*][a-z]?\d*)*)`),
}

// ExtractName returns the product name from the page headings, falling back
// to the part of the title before the first dash.
func ExtractName(doc *Document, vendor string) string {
	if q, err := doc.Query(); err == nil {
		for _, sel := range nameSelectors {
			var name string
			q.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				text := cleanText(s.Text())
				if acceptableName(text, vendor) {
					name = text
					return false
				}
				return true
			})
			if name != "" {
				return name
			}
		}
	}

	title := doc.Title
	if vendor == "" || !strings.Contains(title, vendor) || IsNotFoundTitle(title) {
		return ""
	}
	head, _, _ := strings.Cut(title, "-")
	if head = strings.TrimSpace(head); utf8.RuneCountInString(head) > 3 {
		return head
	}
	return ""
}

func acceptableName(text, vendor string) bool {
	if utf8.RuneCountInString(text) <= 3 {
		return false
	}
	if vendor != "" && strings.Contains(text, vendor) {
		return false
	}
	return !strings.Contains(strings.ToLower(text), "not found")
}

// ProductNumber derives the catalog number from the URL alone.
func ProductNumber(pageURL string) string {
	for _, re := range productNumberPatterns {
		if m := re.FindStringSubmatch(pageURL); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

// ExtractImage returns the first product image source as an absolute URL.
func ExtractImage(doc *Document, origin, pathSegment string) string {
	q, err := doc.Query()
	if err != nil {
		return ""
	}
	for _, sel := range imageSelectors {
		var src string
		q.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, ok := s.Attr("src")
			if ok && strings.Contains(v, pathSegment) {
				src = v
				return false
			}
			return true
		})
		if src != "" {
			return absoluteImageURL(src, origin)
		}
	}
	return ""
}

func absoluteImageURL(src, origin string) string {
	switch {
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return strings.TrimRight(origin, "/") + src
	default:
		return src
	}
}

// ExtractDescription reads the meta description, then og:description.
func ExtractDescription(doc *Document) string {
	root, err := doc.Node()
	if err != nil {
		return ""
	}
	for _, expr := range []string{
		`//meta[@name='description']`,
		`//meta[@property='og:description']`,
	} {
		node, err := htmlquery.Query(root, expr)
		if err != nil || node == nil {
			continue
		}
		if v := cleanText(htmlquery.SelectAttr(node, "content")); v != "" {
			return v
		}
	}
	return ""
}

// ExtractDetails reads the labeled detail rows into p. Fields that already
// hold a value are left alone. It returns the number of fields filled.
func ExtractDetails(doc *Document, p *types.Product) int {
	q, err := doc.Query()
	if err != nil {
		return 0
	}

	filled := 0
	for _, sel := range detailSelectors {
		q.Find(sel).Each(func(_ int, row *goquery.Selection) {
			nameEl := row.Find(".Details_name").First()
			if nameEl.Length() == 0 {
				return
			}
			spans := row.Find("span")
			if spans.Length() < 2 {
				return
			}
			label := strings.ToLower(cleanText(nameEl.Text()))
			value := cleanText(spans.Eq(1).Text())

			for _, dl := range detailLabels {
				if strings.Contains(label, dl.label) {
					if p.SetIfEmpty(dl.column, value) {
						filled++
					}
					break
				}
			}
		})
	}
	return filled
}

// ExtractDetailsFromSource scans the raw markup for CAS numbers and formula.
// Only empty fields are filled, each by the first pattern that matches.
func ExtractDetailsFromSource(markup string, p *types.Product) int {
	filled := 0
	for _, cp := range casPatterns {
		if p.Get(cp.column) != "" {
			continue
		}
		if m := cp.re.FindStringSubmatch(markup); m != nil && p.SetIfEmpty(cp.column, m[1]) {
			filled++
		}
	}

	if p.Formula == "" {
		for _, re := range formulaPatterns {
			if m := re.FindStringSubmatch(markup); m != nil {
				if p.SetIfEmpty(types.ColFormula, strings.TrimSpace(m[1])) {
					filled++
					break
				}
			}
		}
	}
	return filled
}
