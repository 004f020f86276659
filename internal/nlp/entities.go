package nlp

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
)

const (
	EntityPerson       = "person"
	EntityOrganization = "organization"
	EntityPlace        = "place"
	EntityDate         = "date"
	EntityEmail        = "email"
	EntityMoney        = "money"
	EntityPercent      = "percent"
	EntityPhone        = "phone"
	EntityURL          = "url"
)

// Entity is a distinct named value found in the text and how often it occurs.
type Entity struct {
	Text  string `json:"text"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

const monthNames = `(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)`

var (
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	urlPattern     = regexp.MustCompile(`\b(?:https?://|www\.)[^\s<>"'()]+[^\s<>"'().,;:!?]`)
	moneyPattern   = regexp.MustCompile(`(?i)(?:[$€£¥]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|thousand|bn|m|k)\b)?|\b\d[\d,]*(?:\.\d+)?\s?(?:usd|eur|gbp|dollars|euros|pounds)\b)`)
	percentPattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:%|percent\b)`)
	phonePattern   = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{2,4}\)|\b\d{3})[\s.-]\d{3}[\s.-]\d{4}\b`)
	datePatterns   = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b` + monthNames + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)?\s+` + monthNames + `\.?,?\s+\d{4}\b`),
		regexp.MustCompile(`\b` + monthNames + `\s+\d{4}\b`),
		regexp.MustCompile(`\bQ[1-4]\s+\d{4}\b`),
	}
	orgPattern = regexp.MustCompile(`\b(?:[A-Z][A-Za-z0-9&'.-]*\s+){1,4}(?:Inc|Corp|Corporation|LLC|Ltd|GmbH|PLC|Company|University|Bank|Group|Institute|Foundation|Agency|Association|Department|Ministry|Council|Committee|Partners|Holdings|Technologies|Systems)\b\.?`)
	orgPrefix  = regexp.MustCompile(`\b(?:University|Bank|Department|Ministry|Institute)\s+of\s+(?:[A-Z][a-z]+)(?:\s+[A-Z][a-z]+){0,2}`)
	titledName = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof|Sir|Madam)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?`)
	nameLike   = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z]\.)?\s+[A-Z][a-z]+(?:-[A-Z][a-z]+)?\b`)
	placeLike  = regexp.MustCompile(`\b(?:[A-Z][a-z]+\s+){1,2}(?:City|County|Province|State|Street|Avenue|Road|Bay|Valley|Island|Islands)\b`)
	capsRun    = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2}\b`)
)

type span struct{ start, end int }

type entityCounter struct {
	order  []string
	counts map[string]*Entity
	taken  []span
}

func newEntityCounter() *entityCounter {
	return &entityCounter{counts: map[string]*Entity{}}
}

func (c *entityCounter) add(typ, text string, at span, claim bool) {
	text = collapseSpaces(strings.TrimRight(text, ".,;:"))
	if text == "" {
		return
	}
	key := typ + "\x00" + strings.ToLower(text)
	if e, ok := c.counts[key]; ok {
		e.Count++
	} else {
		c.counts[key] = &Entity{Text: text, Type: typ, Count: 1}
		c.order = append(c.order, key)
	}
	if claim {
		c.taken = append(c.taken, at)
	}
}

func (c *entityCounter) overlaps(at span) bool {
	for _, s := range c.taken {
		if at.start < s.end && s.start < at.end {
			return true
		}
	}
	return false
}

func (c *entityCounter) scan(re *regexp.Regexp, text, typ string, claim bool) {
	for _, loc := range re.FindAllStringIndex(text, -1) {
		at := span{loc[0], loc[1]}
		if c.overlaps(at) {
			continue
		}
		c.add(typ, text[loc[0]:loc[1]], at, claim)
	}
}

// Entities finds emails, URLs, money, percentages, phone numbers and dates
// with pattern rules, and organizations, places and people with pattern rules
// backed by the prose named-entity model. Higher-precision sources claim their
// spans first so later, fuzzier ones do not recount them.
func Entities(text string) []Entity {
	text = Normalize(text)
	if strings.TrimSpace(text) == "" {
		return []Entity{}
	}
	c := newEntityCounter()

	c.scan(emailPattern, text, EntityEmail, true)
	c.scan(urlPattern, text, EntityURL, true)
	c.scan(moneyPattern, text, EntityMoney, true)
	c.scan(percentPattern, text, EntityPercent, true)
	for _, re := range datePatterns {
		c.scan(re, text, EntityDate, true)
	}
	c.scan(phonePattern, text, EntityPhone, true)
	c.scan(orgPrefix, text, EntityOrganization, true)
	c.scan(orgPattern, text, EntityOrganization, true)
	c.scan(placeLike, text, EntityPlace, true)
	scanGazetteer(c, text)
	c.scan(titledName, text, EntityPerson, true)
	scanNamedEntities(c, text)
	scanNames(c, text)

	out := make([]Entity, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.counts[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// entityLabels maps prose NER labels to entity types.
var entityLabels = map[string]string{
	"PERSON": EntityPerson,
	"ORG":    EntityOrganization,
	"GPE":    EntityPlace,
	"LOC":    EntityPlace,
}

// scanNamedEntities counts every occurrence of the names the NER model tags.
func scanNamedEntities(c *entityCounter, text string) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return
	}
	seen := map[string]struct{}{}
	for _, ent := range doc.Entities() {
		typ, ok := entityLabels[ent.Label]
		if !ok {
			continue
		}
		name := collapseSpaces(strings.TrimSpace(ent.Text))
		if len([]rune(name)) < 2 {
			continue
		}
		key := typ + "\x00" + name
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
		if err != nil {
			continue
		}
		c.scan(re, text, typ, true)
	}
}

func scanGazetteer(c *entityCounter, text string) {
	for _, loc := range capsRun.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]
		// Try the longest prefix that is a known place ("New York City" -> "New York").
		words := strings.Fields(candidate)
		for n := len(words); n > 0; n-- {
			name := strings.Join(words[:n], " ")
			if _, ok := places[strings.ToLower(name)]; !ok {
				continue
			}
			at := span{loc[0], loc[0] + len(name)}
			if !c.overlaps(at) {
				c.add(EntityPlace, name, at, true)
			}
			break
		}
	}
}

func scanNames(c *entityCounter, text string) {
	for _, loc := range nameLike.FindAllStringIndex(text, -1) {
		at := span{loc[0], loc[1]}
		if c.overlaps(at) {
			continue
		}
		candidate := text[loc[0]:loc[1]]
		first := strings.ToLower(strings.Fields(candidate)[0])
		if _, ok := firstNames[first]; !ok {
			continue
		}
		c.add(EntityPerson, candidate, at, true)
	}
}

var places = toSet(
	"afghanistan", "argentina", "australia", "austria", "bangladesh", "belgium", "brazil", "canada", "chile",
	"china", "colombia", "denmark", "egypt", "england", "ethiopia", "europe", "finland", "france", "germany",
	"greece", "india", "indonesia", "ireland", "israel", "italy", "japan", "kenya", "korea", "mexico",
	"netherlands", "new zealand", "nigeria", "norway", "pakistan", "peru", "philippines", "poland",
	"portugal", "russia", "saudi arabia", "scotland", "singapore", "south africa", "spain", "sweden",
	"switzerland", "taiwan", "thailand", "turkey", "ukraine", "united kingdom", "united states", "vietnam",
	"wales", "africa", "asia", "america", "north america", "south america",
	"amsterdam", "athens", "bangkok", "barcelona", "beijing", "berlin", "boston", "brussels", "buenos aires",
	"cairo", "chicago", "copenhagen", "dallas", "delhi", "dubai", "dublin", "frankfurt", "geneva",
	"hong kong", "houston", "istanbul", "jakarta", "lagos", "lisbon", "london", "los angeles", "madrid",
	"manila", "melbourne", "mexico city", "miami", "milan", "montreal", "moscow", "mumbai", "munich",
	"nairobi", "new york", "oslo", "paris", "prague", "rome", "san francisco", "seattle", "seoul",
	"shanghai", "stockholm", "sydney", "tokyo", "toronto", "vancouver", "vienna", "warsaw", "washington",
	"zurich", "california", "texas", "florida", "ontario", "bavaria",
)

var firstNames = toSet(
	"aaron", "adam", "ahmed", "alex", "alexander", "alice", "amanda", "amy", "ana", "andrew", "angela", "anna",
	"anne", "anthony", "barbara", "ben", "benjamin", "brian", "carlos", "carol", "catherine", "charles",
	"chris", "christopher", "claire", "daniel", "david", "deborah", "diana", "donald", "edward", "elena",
	"elizabeth", "emily", "emma", "eric", "fatima", "george", "grace", "hannah", "helen", "henry", "ivan",
	"jack", "james", "jane", "jason", "jennifer", "jessica", "john", "jonathan", "jose", "joseph", "julia",
	"karen", "kevin", "laura", "linda", "lisa", "lucas", "maria", "mark", "mary", "matthew", "michael",
	"michelle", "mohammed", "nancy", "olivia", "patricia", "paul", "peter", "rachel", "richard", "robert",
	"sarah", "sophia", "stephen", "steven", "susan", "thomas", "timothy", "victoria", "william", "wei",
	"yuki",
)
