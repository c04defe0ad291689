package output

import "encoding/json"

// RenderMachine serializes a Result as the fully-structured machine shape
// (§6). A clean result with Verbose unset omits Info entirely, matching the
// clean-output contract: no incidental diagnostic payload on a clean run.
func RenderMachine(r Result) ([]byte, error) {
	if r.IsClean() && !r.Verbose {
		r.Info = nil
	}
	return json.MarshalIndent(r, "", "  ")
}
