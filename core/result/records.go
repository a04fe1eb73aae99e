package result

// Tag keys and values used by decoded channels.
const (
	TagBranch        = "branch"
	TagContingency   = "contingency"
	TagGenerator     = "generator"
	TagGeneratorType = "generator-type"
	TagLoad          = "load"
	TagHVDC          = "hvdc"
	TagPST           = "pst"
	TagAction        = "action"
	TagLosses        = "losses"
	Basecase         = "basecase"
)

// Channel name prefixes shared with the optimized-value completion.
const (
	PrefixHVDC      = "HVDC_"
	PrefixHVDCCur   = "HVDC_CUR_"
	PrefixPST       = "PST_"
	PrefixPSTTap    = "PST_TAP_"
	PrefixPSTCur    = "PST_CUR_"
	PrefixPSTCurTap = "PST_CUR_TAP_"
	PrefixFlow      = "FLOW_"
	PrefixMaxThreat = "MAX_THREAT_"
)

const (
	headerField     = 1
	rosterIDField   = 2
	rosterNameField = 4
	threatIDField   = 2
	threatStart     = 5
)

// naming selects how a channel name and its tags derive from a line.
type naming int

const (
	// untagged: prefix, plus the id field when set; no tags.
	untagged naming = iota
	// typed: prefix+id[_outage], tags {typ: id, contingency: outage|basecase}.
	typed
	// plain: prefix+id, tags {typ: id}.
	plain
	// detailed: prefix+id[_outage]_element, tags {branch, action, contingency}.
	detailed
)

type valueKind int

const (
	number valueKind = iota
	integer
	text
	outageName
)

type valueSpec struct {
	prefix   string
	naming   naming
	typ      string
	id       int
	element  int
	field    int
	kind     valueKind
	optional bool
	// guard skips the value when that field is empty; 0 disables it.
	guard int
}

type outageMode int

const (
	noOutage outageMode = iota
	// outageRef resolves the field through the file's roster.
	outageRef
	// outageRefOrBasecase is outageRef where id 0 stands for the basecase.
	outageRefOrBasecase
	// outageLiteral uses the field text as the contingency name.
	outageLiteral
)

type recordSpec struct {
	header    string
	minFields int
	mode      outageMode
	outage    int
	values    []valueSpec
	roster    bool
	maxThreat bool
}

func typedValue(prefix, typ string, id, field int) valueSpec {
	return valueSpec{prefix: prefix, naming: typed, typ: typ, id: id, field: field}
}

func optional(v valueSpec) valueSpec {
	v.optional = true
	return v
}

func asInteger(v valueSpec) valueSpec {
	v.kind = integer
	return v
}

func global(name string, field int) valueSpec {
	return valueSpec{prefix: name, naming: untagged, field: field}
}

// records is the dispatch table of the result file format, keyed by the raw
// record code (codes keep their trailing blank, except R10).
var records = map[string]recordSpec{
	"C1 ": {header: "COMPTE RENDU", minFields: 3, values: []valueSpec{global(ErrorCodeName, 2)}},
	"C2 ": {header: "NON CONNEXITE", minFields: 6, values: []valueSpec{
		optional(typedValue("LOST_GEN_", TagGenerator, 2, 4)),
		optional(typedValue("LOST_LOAD_", TagLoad, 2, 5)),
	}},
	"C2B ": {header: "NON CONNEXITE", minFields: 5, mode: outageLiteral, outage: 2, values: []valueSpec{
		optional(typedValue("LOST_LOAD_", TagLoad, 3, 4)),
	}},
	"C4 ": {header: "INCIDENTS", minFields: 5, roster: true},
	"C5 ": {header: "ZONE SYNC", minFields: 4, values: []valueSpec{
		{prefix: "INIT_BAL_AREA_", naming: untagged, id: 2, field: 3},
	}},
	"R1 ": {header: "PAR CONSO", minFields: 6, values: []valueSpec{
		optional(typedValue("INIT_BAL_LOAD_", TagLoad, 2, 4)),
		optional(typedValue("LOAD_", TagLoad, 2, 5)),
	}},
	"R1B ": {header: "INCIDENT", minFields: 4, mode: outageRef, outage: 1, values: []valueSpec{
		typedValue("LOAD_CUR_", TagLoad, 2, 3),
	}},
	"R1C ": {header: "NOM REGROUPEMENT", minFields: 3, values: []valueSpec{
		typedValue("LOAD_", "load binding", 1, 2),
	}},
	"R2 ": {header: "PAR GROUPE", minFields: 7, values: []valueSpec{
		optional(typedValue("INIT_BAL_GEN_", TagGenerator, 2, 5)),
		optional(typedValue("GEN_", TagGenerator, 2, 6)),
	}},
	"R2B ": {header: "INCIDENT", minFields: 4, mode: outageRef, outage: 1, values: []valueSpec{
		typedValue("GEN_CUR_", TagGenerator, 2, 3),
	}},
	"R2C ": {header: "NOM REGROUPEMENT", minFields: 3, values: []valueSpec{
		typedValue("GEN_", "generator binding", 1, 2),
	}},
	"R3 ": {header: "PAR LIGNE", minFields: 4, values: []valueSpec{
		typedValue(PrefixFlow, TagBranch, 2, 3),
	}},
	"R3B ": {header: "PAR LIGNE", minFields: 5, maxThreat: true, values: []valueSpec{
		{prefix: "MAX_TMP_THREAT_NAME_", naming: plain, typ: TagBranch, id: 2, field: 3, kind: outageName, guard: 3},
		{prefix: "MAX_TMP_THREAT_FLOW_", naming: plain, typ: TagBranch, id: 2, field: 4, guard: 3},
	}},
	"R3C ": {header: "PAR LIGNE", minFields: 5, mode: outageRef, outage: 3, values: []valueSpec{
		typedValue(PrefixFlow, TagBranch, 2, 4),
	}},
	"R4 ": {header: "VAR. MARGINALES", minFields: 5, mode: outageRefOrBasecase, outage: 3, values: []valueSpec{
		typedValue("MV_", TagBranch, 2, 4),
	}},
	"R4B ": {header: "VAR. MARGINALES", minFields: 8, mode: outageRefOrBasecase, outage: 3, values: []valueSpec{
		{prefix: "MV_POW", naming: detailed, id: 2, element: 5, field: 6},
		{prefix: "MV_COST", naming: detailed, id: 2, element: 5, field: 7},
	}},
	"R5 ": {header: "PAR TD", minFields: 5, values: []valueSpec{
		typedValue(PrefixPST, TagPST, 2, 3),
		asInteger(typedValue(PrefixPSTTap, TagPST, 2, 4)),
	}},
	"R5B ": {header: "INCIDENT", minFields: 5, mode: outageRef, outage: 1, values: []valueSpec{
		typedValue(PrefixPSTCur, TagPST, 2, 3),
		asInteger(typedValue(PrefixPSTCurTap, TagPST, 2, 4)),
	}},
	"R6 ": {header: " PAR LCC", minFields: 5, values: []valueSpec{
		typedValue(PrefixHVDC, TagHVDC, 2, 3),
		optional(typedValue("MV_", TagHVDC, 2, 4)),
	}},
	"R6B ": {header: "INCIDENT", minFields: 4, mode: outageRef, outage: 1, values: []valueSpec{
		typedValue(PrefixHVDCCur, TagHVDC, 2, 3),
	}},
	"R7 ": {header: "PAR FILIERE", minFields: 7, values: []valueSpec{
		optional(typedValue("GEN_VOL_DOWN_", TagGeneratorType, 2, 3)),
		optional(typedValue("GEN_VOL_UP_", TagGeneratorType, 2, 4)),
		optional(typedValue("GEN_CUR_VOL_DOWN_", TagGeneratorType, 2, 5)),
		optional(typedValue("GEN_CUR_VOL_UP_", TagGeneratorType, 2, 6)),
	}},
	"R8 ": {header: "PERTES", minFields: 3, values: []valueSpec{global("LOSSES", 2)}},
	"R8B ": {header: "PERTES", minFields: 4, values: []valueSpec{
		typedValue("LOSSES_", TagLosses, 2, 3),
	}},
	"R9 ": {header: "FCT OBJECTIF", minFields: 8, values: []valueSpec{
		global("GEN_COST", 2),
		global("LOAD_COST", 3),
		global("OVERLOAD_OUTAGES", 4),
		global("OVERLOAD_BASECASE", 5),
		optional(global("GEN_CUR_COST", 6)),
		optional(global("LOAD_CUR_COST", 7)),
	}},
	"R10": {header: "INCIDENT", minFields: 5, values: []valueSpec{
		{prefix: "TOPOLOGY_", naming: plain, typ: TagContingency, id: 2, field: 4, kind: text},
	}},
}

// Codes returns the record codes the decoder understands.
func Codes() []string { return sortedKeys(records) }
