// Package cursor stores the notification watermarks: the highest order
// id each viewer has already seen, keyed per tenant, viewer and
// channel. Not an audit log; entries expire after the TTL.
package cursor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TTL bounds how long an idle viewer's watermarks survive. A viewer
// returning after expiry re-initializes from the current max id, so
// expiry can never flood them with history.
const TTL = 24 * time.Hour

// Store persists watermarks. Implementations: Redis for multi-instance
// deployments, Memory for tests and single-node dev.
type Store interface {
	// Get returns the watermark and whether one exists for the key.
	Get(ctx context.Context, key string) (int64, bool, error)

	// Set writes the watermark, refreshing its TTL.
	Set(ctx context.Context, key string, value int64) error
}

// Key builds the watermark key for one viewer's channel.
func Key(tenantID, viewerID uuid.UUID, channel string) string {
	return fmt.Sprintf("cursor:%s:%s:%s", tenantID, viewerID, channel)
}
