package extraction

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const fenceMarker = "```"

// qnaListKeys are the wrapper keys accepted around a Q&A array.
var qnaListKeys = []string{"pairs", "qa", "qna", "items"}

// ParseReply turns a freeform service reply into a typed record for spec.
// Failures come back as *ParseFailure.
func ParseReply(spec ModeSpec, reply string) (Extracted, error) {
	candidate := FencedPayload(reply)
	if candidate == "" {
		return Extracted{}, parseFailure(StageLocate, "reply contains no JSON payload")
	}

	dec := json.NewDecoder(strings.NewReader(RepairJSON(candidate)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Extracted{}, parseFailure(StageDecode, "%v", err)
	}

	switch spec.Schema.Kind {
	case SchemaObject:
		rec, err := coerceReport(doc, spec.Schema.Fields)
		if err != nil {
			return Extracted{}, err
		}
		return Extracted{Mode: spec.Mode, Report: rec}, nil
	case SchemaPairs:
		pairs, err := coercePairs(doc)
		if err != nil {
			return Extracted{}, err
		}
		return Extracted{Mode: spec.Mode, QnA: pairs}, nil
	default:
		return Extracted{}, parseFailure(StageSchema, "unsupported schema kind %d", spec.Schema.Kind)
	}
}

// FencedPayload picks the JSON candidate out of a reply: the first fenced
// block labelled json, else the first fenced block, else the whole reply.
// The result is trimmed to its outermost object or array span. It returns ""
// when no brace or bracket is present.
func FencedPayload(reply string) string {
	body := reply
	if blocks := fencedBlocks(reply); len(blocks) > 0 {
		body = blocks[0].body
		for _, b := range blocks {
			if isJSONLabel(b.info) {
				body = b.body
				break
			}
		}
	}
	return outermostSpan(body)
}

type fencedBlock struct {
	info string
	body string
}

func fencedBlocks(reply string) []fencedBlock {
	lines := strings.Split(strings.ReplaceAll(reply, "\r\n", "\n"), "\n")

	var blocks []fencedBlock
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, fenceMarker) {
			continue
		}
		rest := strings.TrimLeft(trimmed, "`")
		if rest == "" {
			// A bare fence line with nothing before it opens an unlabelled block.
			body, next := collectFence(lines, i+1)
			blocks = append(blocks, fencedBlock{body: body})
			i = next
			continue
		}

		info, inline, _ := strings.Cut(rest, " ")
		info = strings.TrimRight(info, "`")
		if strings.HasSuffix(rest, fenceMarker) {
			// Single-line block: ```json {...}```
			inline = strings.TrimRight(inline, "`")
			blocks = append(blocks, fencedBlock{info: info, body: inline})
			continue
		}
		body, next := collectFence(lines, i+1)
		if strings.TrimSpace(inline) != "" {
			body = inline + "\n" + body
		}
		blocks = append(blocks, fencedBlock{info: info, body: body})
		i = next
	}
	return blocks
}

// collectFence gathers lines from start up to the closing fence, returning
// the body and the index of the closing line. An unterminated fence runs to
// the end of the reply.
func collectFence(lines []string, start int) (string, int) {
	for j := start; j < len(lines); j++ {
		if isClosingFence(lines[j]) {
			return strings.Join(lines[start:j], "\n"), j
		}
	}
	return strings.Join(lines[start:], "\n"), len(lines)
}

func isClosingFence(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) >= len(fenceMarker) && strings.Trim(t, "`") == ""
}

func isJSONLabel(info string) bool {
	switch strings.ToLower(strings.TrimSpace(info)) {
	case "json", "jsonc", "json5":
		return true
	}
	return false
}

func outermostSpan(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return strings.TrimSpace(s[start:])
	}
	return s[start : end+1]
}

func coerceReport(doc any, fields []string) (*ActivityRecord, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		if arr, isArr := doc.([]any); isArr && len(arr) > 0 {
			obj, ok = arr[0].(map[string]any)
		}
	}
	if !ok {
		return nil, parseFailure(StageSchema, "expected a JSON object, got %s", kindOf(doc))
	}

	rec := &ActivityRecord{}
	for _, key := range fields {
		if dst := rec.field(key); dst != nil {
			*dst = coerceString(obj[key])
		}
	}
	return rec, nil
}

func coercePairs(doc any) (QnaRecord, error) {
	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		found := false
		for _, key := range qnaListKeys {
			raw, ok := v[key]
			if !ok {
				continue
			}
			if raw == nil {
				found = true
				break
			}
			list, ok := raw.([]any)
			if !ok {
				return nil, parseFailure(StageSchema, "%q is %s, want an array", key, kindOf(raw))
			}
			items, found = list, true
			break
		}
		if !found {
			if _, single := v["question"]; !single {
				return nil, parseFailure(StageSchema, "object has no Q&A list")
			}
			items = []any{v}
		}
	default:
		return nil, parseFailure(StageSchema, "expected a JSON array, got %s", kindOf(doc))
	}

	pairs := make(QnaRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q := coerceString(firstOf(obj, "question", "q"))
		a := coerceString(firstOf(obj, "answer", "a"))
		if q == "" && a == "" {
			continue
		}
		pairs = append(pairs, QnaPair{Question: q, Answer: a})
	}
	return pairs, nil
}

func firstOf(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v
		}
	}
	return nil
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := coerceString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return ""
		}
		return strings.TrimSpace(buf.String())
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	}
	return "unknown"
}
