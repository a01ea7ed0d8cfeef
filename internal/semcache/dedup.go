package semcache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Dedup collapses concurrent resolutions of the same scope and question
// into one call; late arrivals share the first caller's result.
type Dedup struct {
	group singleflight.Group
}

// Do runs fn once per in-flight key. fn gets a context that keeps ctx's
// values but not its cancellation, so one caller giving up does not fail the
// others; fn must bound its own work. A caller whose ctx ends stops waiting
// and gets ctx.Err(). shared reports whether the result came from another
// caller's fn.
func (d *Dedup) Do(ctx context.Context, scope, query string, fn func(ctx context.Context) (string, error)) (result string, shared bool, err error) {
	ch := d.group.DoChan(Key(scope, query), func() (interface{}, error) {
		s, err := fn(context.WithoutCancel(ctx))
		return s, err
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Shared, r.Err
		}
		return r.Val.(string), r.Shared, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}
