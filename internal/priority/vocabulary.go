package priority

import "pcrm/api/internal/nlp"

var criticalKeywords = nlp.NewSet(
	"fire", "explosion", "exploded", "electrocution", "electrocuted", "collapse", "collapsed", "trapped", "drowning", "drowned",
	"unconscious", "bleeding", "death", "dead", "died", "dying", "murder", "kidnap", "kidnapped", "rape",
	"stabbed", "shooting", "gunshot", "bomb", "emergency", "fatal", "casualty", "casualties", "suicide", "poisoning",
	"toxic", "chemical", "ammonia", "chlorine", "landslide", "earthquake", "cyclone", "blaze", "burning", "sparking",
	"outbreak", "cholera", "stampede", "riot", "inferno",
)

var criticalPhrases = []string{
	"gas leak", "gas leakage", "live wire", "exposed wire", "building collapse", "wall collapse", "bridge collapse",
	"fire broke out", "on fire", "short circuit", "people trapped", "child trapped", "not breathing", "heart attack",
	"medical emergency", "life threatening", "open manhole", "electric shock", "sewage in drinking water",
	"contaminated drinking water", "chemical spill", "structural damage",
}

var highKeywords = nlp.NewSet(
	"leak", "leaking", "flood", "flooded", "flooding", "sewage", "overflow", "overflowing", "contaminated", "contamination",
	"blocked", "blockage", "burst", "pothole", "potholes", "accident", "injured", "injury", "dangerous", "hazard",
	"hazardous", "unsafe", "outage", "blackout", "shortage", "theft", "robbery", "harassment", "threat", "violence",
	"disease", "infection", "mosquito", "dengue", "malaria", "stray", "bite", "broken", "damaged", "urgent",
	"severe", "illegal", "encroachment", "waterlogging", "crack",
)

var highPhrases = []string{
	"no water", "no electricity", "no power", "power cut", "street light", "traffic signal", "not working",
	"sewage overflow", "garbage not collected", "road damage", "fallen tree", "tree fallen", "open drain",
	"stray dogs", "water logging", "days without", "since last week", "dirty water", "low pressure",
}

var lowKeywords = nlp.NewSet(
	"suggestion", "suggest", "request", "inquiry", "enquiry", "query", "information", "feedback", "minor", "cosmetic",
	"paint", "painting", "signage", "beautification", "appreciation", "thanks", "thank", "compliment", "clarification", "renewal",
	"certificate", "general", "question", "proposal", "idea", "improvement",
)

var lowPhrases = []string{
	"would like to", "just wanted", "thank you", "for your information", "kindly update", "status update",
	"no urgency", "when possible", "at your convenience", "minor issue", "small issue", "request for",
}

type categoryRule struct {
	substring string
	tier      Tier
}

// categoryRules maps a case-insensitive category substring to a base tier.
// Every matching rule is considered and the highest tier wins.
var categoryRules = []categoryRule{
	{"fire", Critical},
	{"gas", Critical},
	{"emergency", Critical},
	{"medical", Critical},
	{"disaster", Critical},
	{"safety", Critical},
	{"water", High},
	{"sanitation", High},
	{"sewage", High},
	{"drainage", High},
	{"electricity", High},
	{"power", High},
	{"health", High},
	{"police", High},
	{"road", Medium},
	{"infrastructure", Medium},
	{"transport", Medium},
	{"traffic", Medium},
	{"garbage", Medium},
	{"waste", Medium},
	{"street", Medium},
	{"noise", Medium},
	{"park", Medium},
	{"building", Medium},
	{"billing", Low},
	{"general", Low},
	{"feedback", Low},
	{"suggestion", Low},
	{"inquiry", Low},
	{"information", Low},
}
