// Copyright 2016 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package api

import (
	"context"

	"github.com/juju/errors"
)

// AllWatcher tracks changes to the entities of a whole model. Next
// calls must be made sequentially; the watcher holds no state beyond
// its server-side id.
type AllWatcher struct {
	client Client
	id     string
}

// NewAllWatcher starts a watch over the whole model.
func NewAllWatcher(ctx context.Context, client Client) (*AllWatcher, error) {
	id, err := client.WatchAll(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &AllWatcher{client: client, id: id}, nil
}

// Next returns the next batch of deltas. The server holds the request
// until there is something to report. When the error satisfies
// IsAllWatcherStopped the watch must be re-established with
// NewAllWatcher.
func (w *AllWatcher) Next(ctx context.Context) ([]Delta, error) {
	return w.client.AllWatcherNext(ctx, w.id)
}

// Id returns the server-side watcher id.
func (w *AllWatcher) Id() string {
	return w.id
}
