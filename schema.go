package gelf

// Schema pins the wire names used for the fields that GELF revisions
// disagree about (bare "file" vs "_file", "facility" vs "_facility").
type Schema string

const (
	SchemaNotDefined Schema = ""
	// SchemaGraypy is the long-standing graypy wire contract and the default.
	SchemaGraypy Schema = "graypy"
	// SchemaStrict follows GELF 1.1, where the deprecated bare fields
	// become additional (underscore) fields.
	SchemaStrict Schema = "gelf/1.1"
)

type fieldNames struct {
	version     string
	facility    string
	file        string
	line        string
	function    string
	pid         string
	threadName  string
	processName string
}

func (s Schema) names() fieldNames {
	switch s {
	case SchemaStrict:
		return fieldNames{
			version:     "1.1",
			facility:    "_facility",
			file:        "_file",
			line:        "_line",
			function:    "_function",
			pid:         "_pid",
			threadName:  "_thread_name",
			processName: "_process_name",
		}
	default:
		return fieldNames{
			version:     "1.0",
			facility:    FieldFacility,
			file:        "file",
			line:        "line",
			function:    "_function",
			pid:         "_pid",
			threadName:  "_thread_name",
			processName: "_process_name",
		}
	}
}

// Valid reports whether s is a known schema; the empty schema means default.
func (s Schema) Valid() bool {
	switch s {
	case SchemaNotDefined, SchemaGraypy, SchemaStrict:
		return true
	}
	return false
}
