package filter

import (
	"errors"
	"strings"

	"github.com/nicwaller/gelf"
)

var ErrEmptyName = errors.New("logger name to exclude must not be empty")

// Exclude drops events from the named logger and its descendants, so
// "app.db" also excludes "app.db.pool" but not "app.dbx".
func Exclude(name string) (gelf.FilterPlugin, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	prefix := name + "."
	return func(event *gelf.Event, drop func()) error {
		if event.Logger == name || strings.HasPrefix(event.Logger, prefix) {
			drop()
		}
		return nil
	}, nil
}
