package cache

import "strings"

// Key builds a cache key from an action name and its selected
// parameters: "articles.list:tag=go|author=jane". Parameter order is the
// caller's responsibility and must be stable per action.
func Key(action string, params ...string) string {
	if len(params) == 0 {
		return action
	}
	return action + ":" + strings.Join(params, "|")
}
