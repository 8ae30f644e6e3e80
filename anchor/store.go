package anchor

import "context"

// Store persists registered anchors.
type Store interface {
	SaveAnchor(ctx context.Context, a *Anchor) error
	ListAnchors(ctx context.Context) ([]*Anchor, error)
}
