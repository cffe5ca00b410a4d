// Package classifier maps an incoming (method, path, stream flag) triple onto
// one of the canonical function names. The table is ordered; the first row
// whose anchored path regex and method match, and whose stream flag equals the
// request body's stream flag, wins. Unmatched requests classify to
// schema.FnUnknown — the middleware turns that into a 404 rather than an error.
package classifier

import (
	"regexp"

	"github.com/nulpointcorp/agent-gateway/internal/schema"
)

// Route is one row of the classification table.
type Route struct {
	Pattern  *regexp.Regexp
	Method   string
	Stream   bool
	Function schema.FunctionName
}

// Match is a successful classification. PathParams holds the values of the
// regex capture groups (resource ids) in order of appearance.
type Match struct {
	Function   schema.FunctionName
	PathParams []string
}

var table = []Route{
	{re(`^/v1/chat/completions$`), "POST", true, schema.FnStreamChatComplete},
	{re(`^/v1/chat/completions$`), "POST", false, schema.FnChatComplete},
	{re(`^/v1/completions$`), "POST", true, schema.FnStreamComplete},
	{re(`^/v1/completions$`), "POST", false, schema.FnComplete},
	{re(`^/v1/embeddings$`), "POST", false, schema.FnEmbed},
	{re(`^/v1/images/generations$`), "POST", false, schema.FnGenerateImage},
	{re(`^/v1/moderations$`), "POST", false, schema.FnModerate},
	{re(`^/v1/audio/speech$`), "POST", false, schema.FnCreateSpeech},
	{re(`^/v1/audio/transcriptions$`), "POST", false, schema.FnTranscribe},
	{re(`^/v1/audio/translations$`), "POST", false, schema.FnTranslate},

	{re(`^/v1/files$`), "POST", false, schema.FnUploadFile},
	{re(`^/v1/files$`), "GET", false, schema.FnListFiles},
	{re(`^/v1/files/([^/]+)/content$`), "GET", false, schema.FnRetrieveFileContent},
	{re(`^/v1/files/([^/]+)$`), "GET", false, schema.FnRetrieveFile},
	{re(`^/v1/files/([^/]+)$`), "DELETE", false, schema.FnDeleteFile},

	{re(`^/v1/fine_tuning/jobs$`), "POST", false, schema.FnCreateFineTuningJob},
	{re(`^/v1/fine_tuning/jobs$`), "GET", false, schema.FnListFineTuningJobs},
	{re(`^/v1/fine_tuning/jobs/([^/]+)/events$`), "GET", false, schema.FnListFineTuningEvents},
	{re(`^/v1/fine_tuning/jobs/([^/]+)/cancel$`), "POST", false, schema.FnCancelFineTuningJob},
	{re(`^/v1/fine_tuning/jobs/([^/]+)$`), "GET", false, schema.FnRetrieveFineTuningJob},

	{re(`^/v1/batches$`), "POST", false, schema.FnCreateBatch},
	{re(`^/v1/batches$`), "GET", false, schema.FnListBatches},
	{re(`^/v1/batches/([^/]+)/cancel$`), "POST", false, schema.FnCancelBatch},
	{re(`^/v1/batches/([^/]+)$`), "GET", false, schema.FnRetrieveBatch},

	{re(`^/v1/responses$`), "POST", true, schema.FnStreamModelResponse},
	{re(`^/v1/responses$`), "POST", false, schema.FnCreateModelResponse},
	{re(`^/v1/responses/([^/]+)$`), "GET", false, schema.FnGetModelResponse},
	{re(`^/v1/responses/([^/]+)$`), "DELETE", false, schema.FnDeleteModelResponse},

	{re(`^/v1/models$`), "GET", false, schema.FnListModels},
}

func re(p string) *regexp.Regexp { return regexp.MustCompile(p) }

// Classify returns the first matching table row for the request, or a zero
// Match (Function == schema.FnUnknown) when nothing matches.
func Classify(method, path string, stream bool) Match {
	for _, r := range table {
		if r.Method != method || r.Stream != stream {
			continue
		}
		m := r.Pattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		return Match{Function: r.Function, PathParams: m[1:]}
	}
	return Match{Function: schema.FnUnknown}
}

// Routes returns a copy of the classification table, used by tests and by the
// router registration code to keep the two in sync.
func Routes() []Route {
	out := make([]Route, len(table))
	copy(out, table)
	return out
}
