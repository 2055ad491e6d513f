package events

import (
	"context"
	"errors"
)

// Fanout publishes to every publisher in order. All publishers are tried;
// their errors are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event string, payload any) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
