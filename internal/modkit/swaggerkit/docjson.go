package swaggerkit

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Op documents one endpoint; modules register these at construction
type Op struct {
	Method  string
	Path    string
	Summary string
	Tag     string
	Body    bool
	Status  int
}

var (
	mu  sync.RWMutex
	ops = map[string]Op{}
)

// Register adds or replaces operations keyed by method and path
func Register(list ...Op) {
	mu.Lock()
	defer mu.Unlock()
	for _, o := range list {
		ops[strings.ToUpper(o.Method)+" "+o.Path] = o
	}
}

// Reset clears registrations for tests
func Reset() {
	mu.Lock()
	ops = map[string]Op{}
	mu.Unlock()
}

// Document builds the OpenAPI 3.0.3 document from the registry
func Document(title, version string) map[string]any {
	mu.RLock()
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]Op, 0, len(keys))
	for _, k := range keys {
		list = append(list, ops[k])
	}
	mu.RUnlock()

	paths := map[string]any{}
	for _, o := range list {
		node, ok := paths[o.Path].(map[string]any)
		if !ok {
			node = map[string]any{}
			paths[o.Path] = node
		}
		node[strings.ToLower(o.Method)] = operation(o)
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": title, "version": version},
		"servers": []any{map[string]any{"url": "/api/v1"}},
		"paths":   paths,
		"components": map[string]any{
			"schemas": map[string]any{
				"Envelope":      envelopeSchema(false),
				"ErrorResponse": envelopeSchema(true),
			},
		},
	}
}

func operation(o Op) map[string]any {
	status := o.Status
	if status == 0 {
		status = http.StatusOK
	}
	ref := func(name string) map[string]any {
		return map[string]any{"application/json": map[string]any{
			"schema": map[string]any{"$ref": "#/components/schemas/" + name},
		}}
	}
	responses := map[string]any{
		strconv.Itoa(status): map[string]any{"description": http.StatusText(status), "content": ref("Envelope")},
		"400":        map[string]any{"description": "Bad Request", "content": ref("ErrorResponse")},
		"500":        map[string]any{"description": "Internal Server Error", "content": ref("ErrorResponse")},
	}
	if status == http.StatusNoContent {
		responses[strconv.Itoa(status)] = map[string]any{"description": http.StatusText(status)}
	}
	op := map[string]any{
		"summary":   o.Summary,
		"responses": responses,
	}
	if o.Tag != "" {
		op["tags"] = []any{o.Tag}
	}
	if params := pathParams(o.Path); len(params) > 0 {
		op["parameters"] = params
	}
	if o.Body {
		op["requestBody"] = map[string]any{
			"required": true,
			"content":  map[string]any{"application/json": map[string]any{"schema": map[string]any{"type": "object"}}},
		}
	}
	return op
}

func pathParams(path string) []any {
	var out []any
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			out = append(out, map[string]any{
				"name":     strings.Trim(seg, "{}"),
				"in":       "path",
				"required": true,
				"schema":   map[string]any{"type": "string"},
			})
		}
	}
	return out
}

func envelopeSchema(isErr bool) map[string]any {
	props := map[string]any{
		"status_code": map[string]any{"type": "integer", "format": "int32"},
		"status":      map[string]any{"type": "string"},
		"request_id":  map[string]any{"type": "string"},
	}
	if isErr {
		props["code"] = map[string]any{"type": "integer", "format": "int32"}
		props["error"] = map[string]any{"type": "string"}
	} else {
		props["data"] = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []any{"status_code", "status"},
	}
}

// serveDocJSON serves the assembled document
func serveDocJSON(title, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(Document(title, version))
	}
}
