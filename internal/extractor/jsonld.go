package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ldNode is one decoded JSON-LD object.
type ldNode map[string]any

// jsonLD decodes every application/ld+json block on the page, flattening
// top-level arrays and @graph containers. Blocks that fail to decode are
// skipped.
func (d *document) jsonLD() []ldNode {
	var nodes []ldNode
	d.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &raw); err != nil {
			return
		}
		nodes = append(nodes, flattenLD(raw)...)
	})
	return nodes
}

func flattenLD(raw any) []ldNode {
	switch v := raw.(type) {
	case []any:
		var out []ldNode
		for _, item := range v {
			out = append(out, flattenLD(item)...)
		}
		return out
	case map[string]any:
		out := []ldNode{v}
		if graph, ok := v["@graph"]; ok {
			out = append(out, flattenLD(graph)...)
		}
		return out
	default:
		return nil
	}
}

// findLD returns the first node declaring one of types.
func findLD(nodes []ldNode, types ...string) (ldNode, string) {
	for _, n := range nodes {
		for _, declared := range n.types() {
			for _, want := range types {
				if strings.EqualFold(declared, want) {
					return n, want
				}
			}
		}
	}
	return nil, ""
}

// types returns @type as a slice; schema.org allows a string or an array.
func (n ldNode) types() []string {
	switch v := n["@type"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (n ldNode) str(key string) string {
	if s, ok := n[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// image handles the string, array and ImageObject forms of an image field.
func (n ldNode) image(keys ...string) string {
	for _, key := range keys {
		if s := ldImage(n[key]); s != "" {
			return s
		}
	}
	return ""
}

func ldImage(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case []any:
		for _, item := range img {
			if s := ldImage(item); s != "" {
				return s
			}
		}
	case map[string]any:
		if s, ok := img["url"].(string); ok {
			return strings.TrimSpace(s)
		}
		if s, ok := img["contentUrl"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// child returns a nested object such as byArtist.
func (n ldNode) child(key string) ldNode {
	switch v := n[key].(type) {
	case map[string]any:
		return v
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

// property returns the value of additionalProperty[name=name].
func (n ldNode) property(name string) (any, bool) {
	props, ok := n["additionalProperty"].([]any)
	if !ok {
		if single, isMap := n["additionalProperty"].(map[string]any); isMap {
			props = []any{single}
		}
	}
	for _, p := range props {
		m, isMap := p.(map[string]any)
		if !isMap {
			continue
		}
		if pn, _ := m["name"].(string); pn == name {
			v, present := m["value"]
			return v, present
		}
	}
	return nil, false
}

// numericID accepts a positive integer given as a JSON number or a string of
// digits.
func numericID(v any) (string, bool) {
	switch id := v.(type) {
	case float64:
		if id <= 0 || id != float64(int64(id)) {
			return "", false
		}
		return strconv.FormatInt(int64(id), 10), true
	case json.Number:
		return numericID(string(id))
	case string:
		id = strings.TrimSpace(id)
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil || n == 0 {
			return "", false
		}
		return strconv.FormatUint(n, 10), true
	default:
		return "", false
	}
}
