// Package router declares the ledger API as route sections and mounts them
// under a versioned prefix.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Section is a declared set of routes sharing a prefix and middleware.
// Sections are plain values until Mount attaches them to a gin group.
type Section struct {
	name     string
	prefix   string
	guards   []gin.HandlerFunc
	routes   []route
	children []*Section
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewSection creates a section mounted at prefix
func NewSection(name, prefix string) *Section {
	return &Section{name: name, prefix: prefix}
}

// Guard adds middleware run before every route of the section and its children.
// Nil handlers are ignored.
func (s *Section) Guard(handlers ...gin.HandlerFunc) *Section {
	for _, h := range handlers {
		if h != nil {
			s.guards = append(s.guards, h)
		}
	}
	return s
}

func (s *Section) add(method, p string, handlers []gin.HandlerFunc) *Section {
	s.routes = append(s.routes, route{method: method, path: p, handlers: handlers})
	return s
}

// GET declares a GET route
func (s *Section) GET(p string, handlers ...gin.HandlerFunc) *Section {
	return s.add(http.MethodGet, p, handlers)
}

// POST declares a POST route
func (s *Section) POST(p string, handlers ...gin.HandlerFunc) *Section {
	return s.add(http.MethodPost, p, handlers)
}

// Nest declares a child section that inherits this section's guards
func (s *Section) Nest(name, prefix string) *Section {
	child := NewSection(name, prefix)
	s.children = append(s.children, child)
	return child
}

// Name returns the section name
func (s *Section) Name() string { return s.name }

// Describe lists "METHOD /full/path" for the section and its children,
// relative to the mount point.
func (s *Section) Describe() []string {
	return s.describe("/")
}

func (s *Section) describe(base string) []string {
	base = path.Join(base, s.prefix)
	var out []string
	for _, r := range s.routes {
		full := base
		if r.path != "" {
			full = path.Join(base, r.path)
		}
		out = append(out, r.method+" "+full)
	}
	for _, child := range s.children {
		out = append(out, child.describe(base)...)
	}
	return out
}

func (s *Section) attach(parent *gin.RouterGroup) {
	group := parent.Group(s.prefix, s.guards...)
	for _, r := range s.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
	for _, child := range s.children {
		child.attach(group)
	}
}

// BasePath returns the versioned API prefix, "/api/v1" for an empty version
func BasePath(version string) string {
	if version == "" {
		version = "v1"
	}
	return "/api/" + version
}

// Mount attaches sections under BasePath(version) and returns the API group
func Mount(engine *gin.Engine, version string, sections ...*Section) *gin.RouterGroup {
	api := engine.Group(BasePath(version))
	for _, s := range sections {
		s.attach(api)
	}
	return api
}
