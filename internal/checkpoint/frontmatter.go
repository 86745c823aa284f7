package checkpoint

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// document is a parsed run-metadata document: a YAML front-matter block
// plus a free-form body. Front matter is kept as a raw map so that keys
// the current binary doesn't know about survive a rewrite untouched
// (§6: "parsers must tolerate extra keys and leave them untouched").
type document struct {
	meta map[string]any
	body string
}

// parseDocument splits raw into its front-matter map and body. An empty or
// partial document (no front matter at all) yields an empty meta map and
// the whole input as body, rather than an error — callers that need "no
// state yet" semantics check len(meta) == 0.
func parseDocument(raw []byte) (document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return document{meta: map[string]any{}}, nil
	}

	delim := []byte(frontMatterDelim + "\n")
	if !bytes.HasPrefix(raw, delim) {
		return document{meta: map[string]any{}, body: string(raw)}, nil
	}

	rest := raw[len(delim):]
	end := bytes.Index(rest, []byte("\n"+frontMatterDelim))
	if end < 0 {
		// Malformed/truncated front matter: tolerate it as an empty,
		// resumable document rather than failing the run.
		return document{meta: map[string]any{}}, nil
	}

	metaBytes := rest[:end]
	var meta map[string]any
	if err := yaml.Unmarshal(metaBytes, &meta); err != nil {
		return document{meta: map[string]any{}}, nil
	}
	if meta == nil {
		meta = map[string]any{}
	}

	afterDelim := rest[end+len("\n"+frontMatterDelim):]
	body := bytes.TrimPrefix(afterDelim, []byte("\n"))

	return document{meta: meta, body: string(body)}, nil
}

// render serializes a document back to bytes, front matter first.
func render(doc document) ([]byte, error) {
	metaBytes, err := yaml.Marshal(doc.meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(frontMatterDelim + "\n")
	buf.Write(metaBytes)
	buf.WriteString(frontMatterDelim + "\n")
	buf.WriteString(doc.body)
	return buf.Bytes(), nil
}
