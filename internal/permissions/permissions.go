// Package permissions decides whether a request may proceed, based on the
// requester's role and, once a specific resource is addressed, its ownership.
//
// Checks attached to an endpoint compose with AND: every request-level hook
// must allow the request, and for object endpoints every object-level hook
// must allow the object as well.
package permissions

import (
	"net/http"
	"strings"

	"yamdb/internal/apperrors"
	"yamdb/internal/models"
)

// Request is what a check sees of an incoming call. User is nil for
// anonymous requests.
type Request struct {
	Method string
	User   *models.User
}

func (r Request) IsAuthenticated() bool {
	return r.User != nil
}

// Owned is a resource with an author.
type Owned interface {
	OwnerID() string
}

// Check is one permission rule. A nil hook allows.
type Check struct {
	Name    string
	Request func(e *Evaluator, r Request) bool
	Object  func(e *Evaluator, r Request, obj Owned) bool
}

type Config struct {
	SafeMethods []string
}

func DefaultConfig() Config {
	return Config{SafeMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions}}
}

type Evaluator struct {
	safe map[string]struct{}
}

func NewEvaluator(cfg Config) *Evaluator {
	e := &Evaluator{safe: make(map[string]struct{}, len(cfg.SafeMethods))}
	for _, m := range cfg.SafeMethods {
		e.safe[strings.ToUpper(m)] = struct{}{}
	}
	return e
}

// IsSafe reports whether method never mutates state.
func (e *Evaluator) IsSafe(method string) bool {
	_, ok := e.safe[strings.ToUpper(method)]
	return ok
}

var (
	Authenticated = Check{
		Name: "Authenticated",
		Request: func(_ *Evaluator, r Request) bool {
			return r.IsAuthenticated()
		},
	}

	AuthenticatedOrReadOnly = Check{
		Name: "AuthenticatedOrReadOnly",
		Request: func(e *Evaluator, r Request) bool {
			return e.IsSafe(r.Method) || r.IsAuthenticated()
		},
	}

	AdminOnly = Check{
		Name: "AdminOnly",
		Request: func(_ *Evaluator, r Request) bool {
			return r.IsAuthenticated() && r.User.IsAdmin()
		},
	}

	AdminOrReadOnly = Check{
		Name: "AdminOrReadOnly",
		Request: func(e *Evaluator, r Request) bool {
			return e.IsSafe(r.Method) || (r.IsAuthenticated() && r.User.IsAdmin())
		},
	}

	AuthorOrStaffOrReadOnly = Check{
		Name: "AuthorOrStaffOrReadOnly",
		Object: func(e *Evaluator, r Request, obj Owned) bool {
			if e.IsSafe(r.Method) {
				return true
			}
			if !r.IsAuthenticated() {
				return false
			}
			return obj.OwnerID() == r.User.ID || r.User.IsStaff()
		},
	}
)

// Allow runs the request-level hooks.
func (e *Evaluator) Allow(r Request, checks ...Check) error {
	for _, c := range checks {
		if c.Request != nil && !c.Request(e, r) {
			return e.deny(r)
		}
	}
	return nil
}

// AllowObject runs the object-level hooks against obj.
func (e *Evaluator) AllowObject(r Request, obj Owned, checks ...Check) error {
	for _, c := range checks {
		if c.Object != nil && !c.Object(e, r, obj) {
			return e.deny(r)
		}
	}
	return nil
}

// deny distinguishes a missing identity (401) from an insufficient one (403).
func (e *Evaluator) deny(r Request) error {
	if !r.IsAuthenticated() {
		return apperrors.ErrUnauthenticated
	}
	return apperrors.ErrPermissionDenied
}
