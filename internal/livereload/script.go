package livereload

import (
	_ "embed"
	"strings"
)

//go:embed client.js
var clientScript string

const endpointPlaceholder = "__SNAPFIRE_ENDPOINT__"

// ScriptTagMarker identifies an injected script tag. The injector checks
// for it so a response is never injected twice.
const ScriptTagMarker = `data-snapfire-reload="true"`

// ClientScript returns the browser reconnect script bound to the
// configured endpoint path.
func ClientScript(endpoint string) string {
	return strings.ReplaceAll(clientScript, endpointPlaceholder, endpoint)
}

// ScriptTag returns the complete inline script tag appended to HTML
// responses.
func ScriptTag(endpoint string) string {
	var b strings.Builder
	b.WriteString("<script ")
	b.WriteString(ScriptTagMarker)
	b.WriteString(">")
	b.WriteString(ClientScript(endpoint))
	b.WriteString("</script>")
	return b.String()
}
