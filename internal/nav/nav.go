// Package nav names the views and carries the ephemeral state passed
// between them.
package nav

import (
	"net/url"
	"strconv"
	"sync"
)

type Route string

const (
	Welcome      Route = "/welcome"
	Login        Route = "/login"
	Register     Route = "/register"
	Dashboard    Route = "/dashboard"
	Threads      Route = "/threads"
	Group        Route = "/group"
	MyThreads    Route = "/my-threads"
	CreateThread Route = "/create-thread"
	UserRatings  Route = "/userRatings"
	AdminPanel   Route = "/admin-panel"
)

// GroupState identifies the thread opened in the Group view. It lives only
// in the navigation, never in storage.
type GroupState struct {
	ThreadID int64
	Title    string
}

// Navigator moves the user to another view. state is nil or a GroupState.
type Navigator interface {
	Navigate(route Route, state any)
}

// Recorder is a Navigator that remembers the last navigation.
type Recorder struct {
	mu    sync.Mutex
	route Route
	state any
	count int
}

func (r *Recorder) Navigate(route Route, state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.route = route
	r.state = state
	r.count++
}

// Last returns the most recent navigation; ok is false if none happened.
func (r *Recorder) Last() (route Route, state any, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route, r.state, r.count > 0
}

// URL renders the last navigation as a path with query, for redirects.
func (r *Recorder) URL() string {
	route, state, ok := r.Last()
	if !ok {
		return ""
	}
	return URL(route, state)
}

func URL(route Route, state any) string {
	if gs, ok := state.(GroupState); ok {
		return string(route) + "?" + gs.Encode()
	}
	return string(route)
}

func (g GroupState) Encode() string {
	v := url.Values{}
	v.Set("id", strconv.FormatInt(g.ThreadID, 10))
	if g.Title != "" {
		v.Set("title", g.Title)
	}
	return v.Encode()
}

// ParseGroupState reads the state encoded by Encode. ok is false when the
// thread id is missing or malformed.
func ParseGroupState(q url.Values) (GroupState, bool) {
	id, err := strconv.ParseInt(q.Get("id"), 10, 64)
	if err != nil || id <= 0 {
		return GroupState{}, false
	}
	return GroupState{ThreadID: id, Title: q.Get("title")}, true
}
