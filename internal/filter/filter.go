// Package filter narrows fetched lists by a live search query. It never
// touches the network.
package filter

import (
	"strings"

	"github.com/discutex/discutex/internal/model"
)

// Threads keeps threads whose title contains q, ignoring case. An empty q
// returns list unchanged.
func Threads(list []model.Thread, q string) []model.Thread {
	return apply(list, q, func(t model.Thread) []string { return []string{t.Title} })
}

// Users matches q against name and username.
func Users(list []model.User, q string) []model.User {
	return apply(list, q, func(u model.User) []string { return []string{u.Name, u.Username} })
}

func apply[T any](list []T, q string, fields func(T) []string) []T {
	if q == "" {
		return list
	}
	needle := strings.ToLower(q)
	out := make([]T, 0, len(list))
	for _, item := range list {
		for _, f := range fields(item) {
			if strings.Contains(strings.ToLower(f), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}
