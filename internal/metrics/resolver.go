package metrics

import (
	"context"
	"log/slog"
	"sort"
)

// UserFinder looks up the numeric ID for a single username. An empty ID
// with a nil error means the user does not exist.
type UserFinder interface {
	FindUserID(ctx context.Context, username string) (string, error)
}

// Resolver maps usernames to numeric user IDs, consulting the persistent
// cache before calling the remote lookup endpoint.
type Resolver struct {
	store  Store
	finder UserFinder
	logger *slog.Logger
}

func NewResolver(store Store, finder UserFinder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, finder: finder, logger: logger}
}

// Resolve returns the username to ID mapping for the given usernames.
// Cached IDs are reused; missing ones are looked up one by one. Usernames
// the server does not know, and usernames whose lookup fails, are left out
// of the result rather than failing the batch. The merged cache is saved
// only when new IDs were discovered.
func (r *Resolver) Resolve(ctx context.Context, usernames []string) (map[string]string, error) {
	cached, err := r.store.Load()
	if err != nil {
		// A missing or unreadable cache just means we start empty.
		r.logger.Warn("ID cache unavailable, starting empty", "error", err)
		cached = map[string]string{}
	}

	// Drop entries with empty IDs so a corrupt cache cannot poison the
	// resolved set.
	for user, id := range cached {
		if id == "" {
			delete(cached, user)
		}
	}

	var missing []string
	for _, user := range usernames {
		if _, ok := cached[user]; !ok {
			missing = append(missing, user)
		}
	}
	sort.Strings(missing)

	discovered := make(map[string]string)
	for _, user := range missing {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id, err := r.finder.FindUserID(ctx, user)
		if err != nil {
			r.logger.Warn("user ID lookup failed, skipping", "user", user, "error", err)
			continue
		}
		if id == "" {
			r.logger.Warn("user not found on server", "user", user)
			continue
		}

		r.logger.Info("resolved user ID", "user", user, "id", id)
		discovered[user] = id
	}

	resolved := make(map[string]string, len(usernames))
	for _, user := range usernames {
		if id, ok := cached[user]; ok {
			resolved[user] = id
		}
		if id, ok := discovered[user]; ok {
			resolved[user] = id
		}
	}

	if len(discovered) > 0 {
		merged := make(map[string]string, len(cached)+len(discovered))
		for user, id := range cached {
			merged[user] = id
		}
		for user, id := range discovered {
			merged[user] = id
		}

		if err := r.store.Save(merged); err != nil {
			r.logger.Warn("failed to save ID cache", "error", err)
		}
	}

	return resolved, nil
}
