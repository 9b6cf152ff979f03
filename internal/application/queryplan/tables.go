package queryplan

// Curated patent-terminology tables backing query expansion.  These are
// intentionally small and domain-reviewed; resist the urge to grow them from
// corpus statistics, since expansion quality depends on precision.

// synonyms maps a technical term to its accepted patent-drafting synonyms.
var synonyms = map[string][]string{
	// Technology terms
	"algorithm": {"method", "process", "technique", "procedure"},
	"device":    {"apparatus", "system", "equipment", "instrument"},
	"method":    {"process", "technique", "procedure", "algorithm"},
	"system":    {"device", "apparatus", "equipment", "platform"},
	"apparatus": {"device", "system", "equipment", "instrument"},

	// Communication terms
	"transmit":      {"send", "transfer", "communicate", "broadcast"},
	"receive":       {"accept", "obtain", "collect", "acquire"},
	"communication": {"transmission", "exchange", "transfer", "broadcast"},

	// Computing terms
	"processor": {"cpu", "controller", "computing unit", "processing unit"},
	"memory":    {"storage", "ram", "cache", "buffer"},
	"database":  {"repository", "storage", "data store", "collection"},
	"network":   {"connection", "link", "communication", "transmission"},

	// Medical terms
	"treatment": {"therapy", "intervention", "procedure", "care"},
	"diagnosis": {"detection", "identification", "assessment", "evaluation"},
	"patient":   {"subject", "individual", "person", "user"},

	// Chemical terms
	"compound": {"molecule", "substance", "chemical", "material"},
	"reaction": {"process", "transformation", "conversion", "synthesis"},
	"catalyst": {"accelerator", "promoter", "activator", "initiator"},

	// Mechanical terms
	"mechanism": {"device", "apparatus", "system", "assembly"},
	"actuator":  {"motor", "driver", "mover", "operator"},
	"sensor":    {"detector", "transducer", "probe", "monitor"},
}

// cpcMappings maps a technical term to the CPC subclasses it suggests.
var cpcMappings = map[string][]string{
	// Computing and information technology
	"computer":      {"G06F", "G06N", "G06T"},
	"algorithm":     {"G06F", "G06N"},
	"database":      {"G06F"},
	"network":       {"H04L", "H04W"},
	"communication": {"H04L", "H04W", "H04B"},

	// Medical and healthcare
	"medical":   {"A61B", "A61M", "A61K"},
	"treatment": {"A61M", "A61K"},
	"diagnosis": {"A61B", "G01N"},
	"surgery":   {"A61B"},
	"drug":      {"A61K"},

	// Chemistry and materials
	"chemical": {"C07", "C08", "C09"},
	"polymer":  {"C08"},
	"catalyst": {"B01J"},
	"reaction": {"B01J", "C07"},

	// Mechanical engineering
	"mechanical": {"F16", "F15", "F04"},
	"engine":     {"F02"},
	"pump":       {"F04"},
	"valve":      {"F16K"},

	// Electrical engineering
	"electrical": {"H01", "H02", "H03"},
	"circuit":    {"H03K", "H03F"},
	"battery":    {"H01M"},
	"motor":      {"H02K"},

	// Biotechnology
	"dna":     {"C12N", "C12Q"},
	"protein": {"C07K", "C12N"},
	"cell":    {"C12N"},
	"gene":    {"C12N", "C12Q"},
}

// technicalCompounds are two-word phrases treated as single technical terms.
var technicalCompounds = map[string]struct{}{
	"machine learning":        {},
	"artificial intelligence": {},
	"deep learning":           {},
	"neural network":          {},
	"data processing":         {},
	"signal processing":       {},
	"image processing":        {},
	"voice recognition":       {},
	"face recognition":        {},
	"wireless communication":  {},
	"mobile device":           {},
	"cloud computing":         {},
	"block chain":             {},
	"internet of things":      {},
	"virtual reality":         {},
	"augmented reality":       {},
	"autonomous vehicle":      {},
	"electric vehicle":        {},
}
