package lexicon

// builtinCounts is the fallback table used when no dictionary file loads.
// Counts are from the English unigram corpus the full frequency file uses.
var builtinCounts = map[string]int64{
	"the":  23135851162,
	"of":   13151942776,
	"and":  12997637966,
	"to":   12136980858,
	"a":    9081174698,
	"in":   8469404971,
	"for":  5933321709,
	"is":   4705743816,
	"on":   3750423199,
	"that": 3400031103,
	"by":   3350048871,
	"this": 3228469771,
}

// BuiltinDictionary returns the small embedded fallback dictionary.
func BuiltinDictionary() *Dictionary {
	return NewDictionary(builtinCounts, DefaultMaxEditDistance)
}
