// Package geo maps state codes to FIPS codes, census regions and fallback archetypes.
package geo

import "strings"

// Archetype is a class of states with similar economic and demographic profiles
type Archetype string

const (
	MetroCoastal Archetype = "metro_coastal"
	Sunbelt      Archetype = "sunbelt"
	Heartland    Archetype = "heartland"
	Rural        Archetype = "rural"
	Territory    Archetype = "territory"
)

// Archetypes lists every archetype
var Archetypes = []Archetype{MetroCoastal, Sunbelt, Heartland, Rural, Territory}

// Region is a census region
type Region string

const (
	Northeast Region = "Northeast"
	Midwest   Region = "Midwest"
	South     Region = "South"
	West      Region = "West"
	Outlying  Region = "Outlying"
)

// State describes one state, district or territory
type State struct {
	Code       string
	FIPS       string
	Name       string
	Region     Region
	Archetype  Archetype
	Population int64 // 2020 decennial census
}

var states = map[string]State{
	"AL": {"AL", "01", "Alabama", South, Sunbelt, 5024279},
	"AK": {"AK", "02", "Alaska", West, Rural, 733391},
	"AZ": {"AZ", "04", "Arizona", West, Sunbelt, 7151502},
	"AR": {"AR", "05", "Arkansas", South, Rural, 3011524},
	"CA": {"CA", "06", "California", West, MetroCoastal, 39538223},
	"CO": {"CO", "08", "Colorado", West, Sunbelt, 5773714},
	"CT": {"CT", "09", "Connecticut", Northeast, MetroCoastal, 3605944},
	"DE": {"DE", "10", "Delaware", South, MetroCoastal, 989948},
	"DC": {"DC", "11", "District of Columbia", South, MetroCoastal, 689545},
	"FL": {"FL", "12", "Florida", South, Sunbelt, 21538187},
	"GA": {"GA", "13", "Georgia", South, Sunbelt, 10711908},
	"HI": {"HI", "15", "Hawaii", West, MetroCoastal, 1455271},
	"ID": {"ID", "16", "Idaho", West, Rural, 1839106},
	"IL": {"IL", "17", "Illinois", Midwest, Heartland, 12812508},
	"IN": {"IN", "18", "Indiana", Midwest, Heartland, 6785528},
	"IA": {"IA", "19", "Iowa", Midwest, Heartland, 3190369},
	"KS": {"KS", "20", "Kansas", Midwest, Heartland, 2937880},
	"KY": {"KY", "21", "Kentucky", South, Heartland, 4505836},
	"LA": {"LA", "22", "Louisiana", South, Sunbelt, 4657757},
	"ME": {"ME", "23", "Maine", Northeast, Rural, 1362359},
	"MD": {"MD", "24", "Maryland", South, MetroCoastal, 6177224},
	"MA": {"MA", "25", "Massachusetts", Northeast, MetroCoastal, 7029917},
	"MI": {"MI", "26", "Michigan", Midwest, Heartland, 10077331},
	"MN": {"MN", "27", "Minnesota", Midwest, Heartland, 5706494},
	"MS": {"MS", "28", "Mississippi", South, Rural, 2961279},
	"MO": {"MO", "29", "Missouri", Midwest, Heartland, 6154913},
	"MT": {"MT", "30", "Montana", West, Rural, 1084225},
	"NE": {"NE", "31", "Nebraska", Midwest, Heartland, 1961504},
	"NV": {"NV", "32", "Nevada", West, Sunbelt, 3104614},
	"NH": {"NH", "33", "New Hampshire", Northeast, Rural, 1377529},
	"NJ": {"NJ", "34", "New Jersey", Northeast, MetroCoastal, 9288994},
	"NM": {"NM", "35", "New Mexico", West, Sunbelt, 2117522},
	"NY": {"NY", "36", "New York", Northeast, MetroCoastal, 20201249},
	"NC": {"NC", "37", "North Carolina", South, Sunbelt, 10439388},
	"ND": {"ND", "38", "North Dakota", Midwest, Rural, 779094},
	"OH": {"OH", "39", "Ohio", Midwest, Heartland, 11799448},
	"OK": {"OK", "40", "Oklahoma", South, Heartland, 3959353},
	"OR": {"OR", "41", "Oregon", West, MetroCoastal, 4237256},
	"PA": {"PA", "42", "Pennsylvania", Northeast, Heartland, 13002700},
	"RI": {"RI", "44", "Rhode Island", Northeast, MetroCoastal, 1097379},
	"SC": {"SC", "45", "South Carolina", South, Sunbelt, 5118425},
	"SD": {"SD", "46", "South Dakota", Midwest, Rural, 886667},
	"TN": {"TN", "47", "Tennessee", South, Sunbelt, 6910840},
	"TX": {"TX", "48", "Texas", South, Sunbelt, 29145505},
	"UT": {"UT", "49", "Utah", West, Sunbelt, 3271616},
	"VT": {"VT", "50", "Vermont", Northeast, Rural, 643077},
	"VA": {"VA", "51", "Virginia", South, MetroCoastal, 8631393},
	"WA": {"WA", "53", "Washington", West, MetroCoastal, 7705281},
	"WV": {"WV", "54", "West Virginia", South, Rural, 1793716},
	"WI": {"WI", "55", "Wisconsin", Midwest, Heartland, 5893718},
	"WY": {"WY", "56", "Wyoming", West, Rural, 576851},
	"AS": {"AS", "60", "American Samoa", Outlying, Territory, 49710},
	"GU": {"GU", "66", "Guam", Outlying, Territory, 153836},
	"MP": {"MP", "69", "Northern Mariana Islands", Outlying, Territory, 47329},
	"PR": {"PR", "72", "Puerto Rico", Outlying, Territory, 3285874},
	"VI": {"VI", "78", "U.S. Virgin Islands", Outlying, Territory, 87146},
}

var byName = func() map[string]string {
	m := make(map[string]string, len(states))
	for code, s := range states {
		m[strings.ToLower(s.Name)] = code
	}
	return m
}()

// Lookup returns the state for a two-letter code or full name
func Lookup(s string) (State, bool) {
	key := strings.TrimSpace(s)
	if st, ok := states[strings.ToUpper(key)]; ok {
		return st, true
	}
	if code, ok := byName[strings.ToLower(key)]; ok {
		return states[code], true
	}
	return State{}, false
}

// Normalize returns the two-letter code for a code or full name, or "" if unknown
func Normalize(s string) string {
	if st, ok := Lookup(s); ok {
		return st.Code
	}
	return ""
}

// ArchetypeOf returns the archetype for a state, Heartland when unknown
func ArchetypeOf(code string) Archetype {
	if st, ok := Lookup(code); ok {
		return st.Archetype
	}
	return Heartland
}

// RegionOf returns the census region for a state, South when unknown
// (the most populous region and the NCVS default).
func RegionOf(code string) Region {
	if st, ok := Lookup(code); ok {
		return st.Region
	}
	return South
}

// Codes returns all known state codes
func Codes() []string {
	codes := make([]string, 0, len(states))
	for code := range states {
		codes = append(codes, code)
	}
	return codes
}

// ValidZIP reports whether s is a five-digit ZIP code
func ValidZIP(s string) bool {
	if len(s) != 5 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RegionPopulation returns the combined population of the states in a region
func RegionPopulation(r Region) int64 {
	var total int64
	for _, st := range states {
		if st.Region == r {
			total += st.Population
		}
	}
	return total
}
