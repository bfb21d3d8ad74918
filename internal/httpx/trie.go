package httpx

import (
	"strings"

	axctx "github.com/free-web-movement/aex/internal/context"
)

// Middleware runs before a Handler. Returning false stops the chain; the
// response is then sent using whatever the outbound metadata holds.
type Middleware func(c *axctx.Context, meta *axctx.HttpMetadata) bool

// Handler runs a matched route. Returning true means "core should
// auto-send the outbound metadata"; false means the handler already
// wrote the response itself.
type Handler func(c *axctx.Context, meta *axctx.HttpMetadata) bool

const (
	wildcardKey = "*"
	paramKey    = ":"
	anyMethod   = "*"
)

type nodeType int

const (
	nodeStatic nodeType = iota
	nodeParam
	nodeWildcard
)

// trieNode is one segment of the route tree.
type trieNode struct {
	kind     nodeType
	name     string // param name, for nodeParam
	children map[string]*trieNode

	middlewares map[string][]Middleware
	handlers    map[string]Handler
}

func newTrieNode(kind nodeType, name string) *trieNode {
	return &trieNode{kind: kind, name: name, children: make(map[string]*trieNode)}
}

// Router is the trie-based HTTP router described in spec.md §4.3.
type Router struct {
	root *trieNode
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{root: newTrieNode(nodeStatic, "")}
}

func segmentKey(seg string) (key string, kind nodeType, name string) {
	switch {
	case seg == wildcardKey:
		return wildcardKey, nodeWildcard, ""
	case strings.HasPrefix(seg, ":"):
		return paramKey, nodeParam, seg[1:]
	default:
		return seg, nodeStatic, seg
	}
}

func splitPath(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Handle registers handler (and optional middlewares) for method and
// path. method "" registers under the pseudo-method "*", matching any
// method not otherwise registered at this node.
func (rtr *Router) Handle(method, path string, handler Handler, middlewares ...Middleware) {
	node := rtr.root
	for _, seg := range splitPath(path) {
		key, kind, name := segmentKey(seg)
		child, ok := node.children[key]
		if !ok {
			child = newTrieNode(kind, name)
			node.children[key] = child
		}
		node = child
	}

	methodKey := anyMethod
	if method != "" {
		methodKey = strings.ToUpper(method)
	}

	if node.handlers == nil {
		node.handlers = make(map[string]Handler)
	}
	node.handlers[methodKey] = handler

	if len(middlewares) > 0 {
		if node.middlewares == nil {
			node.middlewares = make(map[string][]Middleware)
		}
		node.middlewares[methodKey] = middlewares
	}
}

// matched is what Router.Match returns: the terminal node plus captured
// path parameters.
type matched struct {
	node   *trieNode
	params map[string]string
}

// match performs the depth-first, priority-ordered search described in
// spec.md §4.3: static child, then param child, then wildcard child.
// Param captures on a failed branch are discarded on backtrack because
// they're only written into the caller's map once a match succeeds.
func (n *trieNode) match(segs []string, params map[string]string) *trieNode {
	if len(segs) == 0 {
		return n
	}
	seg, rest := segs[0], segs[1:]

	if child, ok := n.children[seg]; ok {
		if m := child.match(rest, params); m != nil {
			return m
		}
	}

	if child, ok := n.children[paramKey]; ok {
		trial := make(map[string]string, len(params)+1)
		for k, v := range params {
			trial[k] = v
		}
		trial[child.name] = seg
		if m := child.match(rest, trial); m != nil {
			for k, v := range trial {
				params[k] = v
			}
			return m
		}
	}

	if child, ok := n.children[wildcardKey]; ok {
		params["*"] = strings.Join(segs, "/")
		return child
	}

	return nil
}

// Match finds the terminal node for path, if any, along with captured
// path parameters. The caller still has to check whether that node has a
// handler for the request method.
func (rtr *Router) Match(path string) (*trieNode, map[string]string) {
	params := make(map[string]string)
	node := rtr.root.match(splitPath(path), params)
	return node, params
}

// Dispatch runs the full match→middleware→handler pipeline for one
// request, populating meta.Params with the captured path variables and
// any query string already parsed by ParseParams.
//
// found reports whether a route (with a handler for this method or *)
// exists at all; the caller should respond 404 when it doesn't. autoSend
// reports whether the core should write meta's outbound fields itself:
// true after a middleware stop (the response is sent as-is) or after a
// handler that returned true; false when a handler wrote its own
// response and returned false.
func (rtr *Router) Dispatch(c *axctx.Context, meta *axctx.HttpMetadata) (found bool, autoSend bool) {
	node, pathParams := rtr.Match(meta.Path)
	if node == nil || node.handlers == nil {
		return false, false
	}

	method := strings.ToUpper(meta.Method)
	handler, ok := node.handlers[method]
	if !ok {
		handler, ok = node.handlers[anyMethod]
	}
	if !ok {
		return false, false
	}

	if meta.Params == nil {
		meta.Params = ParseParams(meta)
	}
	for k, v := range pathParams {
		meta.Params.Path[k] = v
	}

	if node.middlewares != nil {
		mws, ok := node.middlewares[method]
		if !ok {
			mws, ok = node.middlewares[anyMethod]
		}
		if ok {
			for _, mw := range mws {
				if !mw(c, meta) {
					return true, true
				}
			}
		}
	}

	return true, handler(c, meta)
}
