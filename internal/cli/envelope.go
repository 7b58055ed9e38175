package cli

import (
	"encoding/json"
)

// Result is the single JSON document every invocation emits: stdout on
// success, stderr on failure.
type Result struct {
	OK       bool
	Endpoint string
	Data     map[string]any
	Error    string
}

func (r Result) payload() map[string]any {
	p := map[string]any{
		"ok":       r.OK,
		"endpoint": r.Endpoint,
		"data":     r.Data,
	}
	if r.Error != "" {
		p["error"] = r.Error
	}
	return p
}

// Render serializes the result in the requested compatibility envelope.
// The alternate envelope is pure output reshaping layered after the core
// result is produced.
func Render(r Result, compat string, echo map[string]string) string {
	var payload any
	if compat == "aisa" {
		payload = aisaPayload(r, echo)
	} else {
		payload = r.payload()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		// Data came from JSON evaluation or plain structs; this should not
		// happen, but a broken envelope must still be an envelope.
		b, _ = json.Marshal(map[string]any{"ok": false, "endpoint": r.Endpoint, "error": err.Error()})
	}
	return string(b)
}

func aisaPayload(r Result, echo map[string]string) map[string]any {
	if !r.OK {
		msg := r.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return map[string]any{
			"error": map[string]any{
				"code":    "",
				"message": msg,
				"type":    "new_api_error",
			},
		}
	}
	p := map[string]any{
		"success":  true,
		"endpoint": r.Endpoint,
		"data":     r.Data,
	}
	request := map[string]any{}
	for k, v := range echo {
		if v != "" {
			request[k] = v
		}
	}
	if len(request) > 0 {
		p["request"] = request
	}
	return p
}
