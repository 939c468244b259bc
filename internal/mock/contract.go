package mock

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

//go:embed openapi.yaml
var contractYAML []byte

// Contract is the OpenAPI description of the backend the mock imitates.
type Contract struct {
	doc *openapi3.T
}

// LoadContract parses and validates the embedded OpenAPI document.
func LoadContract() (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMockContract, "failed to load API contract", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMockContract, "invalid API contract", err)
	}
	return &Contract{doc: doc}, nil
}

// Document returns the parsed OpenAPI document.
func (c *Contract) Document() *openapi3.T {
	return c.doc
}

// Endpoints lists "METHOD /path" for every operation, sorted.
func (c *Contract) Endpoints() []string {
	var out []string
	for path, item := range c.doc.Paths.Map() {
		for method := range item.Operations() {
			out = append(out, method+" "+path)
		}
	}
	sort.Strings(out)
	return out
}

// Operation finds the operation for a route template relative to BasePath.
func (c *Contract) Operation(method, template string) *openapi3.Operation {
	item := c.doc.Paths.Find(template)
	if item == nil {
		item = c.findPathWithParams(template)
	}
	if item == nil {
		return nil
	}
	return item.GetOperation(strings.ToUpper(method))
}

// findPathWithParams matches templates whose parameter names differ.
func (c *Contract) findPathWithParams(template string) *openapi3.PathItem {
	want := strings.Split(strings.Trim(template, "/"), "/")
	for path, item := range c.doc.Paths.Map() {
		have := strings.Split(strings.Trim(path, "/"), "/")
		if len(have) != len(want) {
			continue
		}
		match := true
		for i := range want {
			if isParam(want[i]) || isParam(have[i]) {
				continue
			}
			if want[i] != have[i] {
				match = false
				break
			}
		}
		if match {
			return item
		}
	}
	return nil
}

func isParam(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// Drift compares the routes registered on router with the contract. It
// returns one line per route missing from the contract and per operation
// without a route.
func (c *Contract) Drift(router *mux.Router) []string {
	served := make(map[string]bool)
	var drift []string

	_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil || !strings.HasPrefix(tpl, BasePath+"/") {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		rel := strings.TrimPrefix(tpl, BasePath)
		for _, m := range methods {
			if c.Operation(m, rel) == nil {
				drift = append(drift, fmt.Sprintf("route %s %s is not in the contract", m, rel))
				continue
			}
			served[m+" "+normalizeParams(rel)] = true
		}
		return nil
	})

	for _, ep := range c.Endpoints() {
		method, path, _ := strings.Cut(ep, " ")
		if !served[method+" "+normalizeParams(path)] {
			drift = append(drift, fmt.Sprintf("operation %s %s has no route", method, path))
		}
	}
	sort.Strings(drift)
	return drift
}

func normalizeParams(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if isParam(s) {
			segs[i] = "{}"
		}
	}
	return strings.Join(segs, "/")
}

// validateBody checks a JSON request body against the operation's schema.
// The body is restored so handlers can decode it again.
func (c *Contract) validateBody(r *http.Request, op *openapi3.Operation) error {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	return media.Schema.Value.VisitJSON(value)
}

// contractMiddleware rejects requests whose body does not match the
// contract with 422.
func (s *Server) contractMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		if route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				op := s.contract.Operation(r.Method, strings.TrimPrefix(tpl, BasePath))
				if err := s.contract.validateBody(r, op); err != nil {
					writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
