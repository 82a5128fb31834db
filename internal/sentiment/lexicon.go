package sentiment

import "pcrm/api/internal/nlp"

var negativeWords = nlp.NewSet(
	// hazard and safety
	"danger", "dangerous", "hazard", "hazardous", "unsafe", "fire", "smoke", "leak", "leaking", "leakage",
	"flood", "flooding", "flooded", "collapse", "collapsed", "explosion", "exploded", "electrocution", "shock", "sparking",
	"sparks", "exposed", "injury", "injured", "death", "dead", "died", "dying", "accident", "trapped",
	"emergency", "toxic", "poison", "poisoned", "contaminated", "contamination", "sewage", "overflow", "overflowing", "burst",
	"blocked", "blockage", "cracked", "broken", "damaged", "damage", "fallen", "stray", "bitten", "attack",
	"attacked", "threat", "threatening", "violence", "assault", "harassment", "theft", "stolen", "robbery", "crime",
	"illegal", "encroachment", "pothole", "potholes", "garbage", "filthy", "dirty", "stink", "stinking", "foul",
	"mosquito", "mosquitoes", "rats", "disease", "infection", "outbreak", "sick", "illness",
	// service failure
	"delay", "delayed", "delays", "pending", "ignored", "neglect", "neglected", "negligence", "failure", "failed",
	"fail", "fails", "outage", "shortage", "disruption", "disrupted", "unresolved", "unanswered", "irregular", "poor",
	"bad", "worse", "worst", "terrible", "horrible", "awful", "pathetic", "useless", "incompetent", "careless",
	"rude", "corrupt", "corruption", "bribe", "bribery", "unfair", "unacceptable", "inadequate", "insufficient", "faulty",
	"malfunction", "defective", "problem", "problems", "issue", "issues", "wrong", "error", "mistake", "lost",
	"missing", "severe", "serious", "critical", "urgent",
	// emotional
	"angry", "frustrated", "frustrating", "disappointed", "disappointing", "upset", "annoyed", "furious", "helpless", "hopeless",
	"worried", "scared", "afraid", "fear", "suffering", "suffer", "suffered", "pain", "painful", "miserable",
	"sad", "unhappy", "disgusted", "disgusting", "harassed", "desperate", "stress", "stressed", "nightmare", "tired",
)

var positiveWords = nlp.NewSet(
	"good", "great", "excellent", "thank", "thanks", "thankful", "grateful", "appreciate", "appreciated", "helpful",
	"resolved", "fixed", "quick", "quickly", "prompt", "promptly", "satisfied", "happy", "pleased", "clean",
	"safe", "restored", "efficient", "professional", "courteous", "polite", "wonderful", "amazing", "best", "nice",
	"responsive", "improved", "working", "smooth", "kind", "fast", "timely", "commendable", "perfect", "glad",
)

var intensifiers = nlp.NewSet(
	"very", "extremely", "really", "highly", "absolutely", "totally", "completely", "seriously", "severely", "so",
	"too", "quite", "incredibly", "terribly", "awfully", "utterly", "deeply", "hugely", "super", "most",
	"especially", "particularly", "exceptionally", "remarkably", "tremendously", "entirely", "badly",
)

// Contractions arrive split by the tokenizer ("don't" -> "don", "t"), so
// both the joined and the stem forms are listed.
var negators = nlp.NewSet(
	"not", "no", "never", "neither", "nor", "none", "nothing", "without", "hardly", "barely", "cannot",
	"dont", "doesnt", "didnt", "isnt", "wasnt", "arent", "werent", "cant", "couldnt", "wouldnt", "shouldnt",
	"wont", "havent", "hasnt", "hadnt",
	"don", "doesn", "didn", "isn", "wasn", "aren", "weren", "couldn", "wouldn", "shouldn", "haven", "hasn", "hadn",
)
