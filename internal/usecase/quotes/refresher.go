package quotes

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunRefresher calls Fetch every interval until ctx is done, keeping the fresh slot warm
// between user requests. The first refresh happens immediately.
func (c *QuoteCache) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		quotes, tier := c.Fetch(ctx)
		log.Debug().Str("tier", string(tier)).Int("assets", len(quotes)).Msg("quotes refreshed")

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
