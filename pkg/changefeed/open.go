package changefeed

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/vistore-backend/pkg/config"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

// Deps are the already-connected clients a driver may need.
type Deps struct {
	Redis  redisBroker
	PubSub catalogPubSub
}

// Open builds the feed selected by cfg.ChangeFeed.Driver.
func Open(cfg *config.Config, deps Deps, logg *logger.Logger) (Feed, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.ChangeFeed.Driver))
	switch driver {
	case config.ChangeFeedMemory:
		return NewMemory(), nil
	case config.ChangeFeedRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("change feed %q needs a redis client", driver)
		}
		return NewRedis(deps.Redis, cfg.ChangeFeed.Channel, logg)
	case config.ChangeFeedPostgres:
		if cfg.DB.IsSQLite() {
			return nil, fmt.Errorf("change feed %q needs the postgres database driver", driver)
		}
		return NewPostgres(cfg.DB.DSN, cfg.ChangeFeed.Channel, cfg.ChangeFeed.MinReconnect, cfg.ChangeFeed.MaxReconnect, logg)
	case config.ChangeFeedGCP:
		if deps.PubSub == nil {
			return nil, fmt.Errorf("change feed %q needs a pubsub client", driver)
		}
		return NewGCP(deps.PubSub, logg)
	}
	return nil, fmt.Errorf("unsupported change feed driver %q", cfg.ChangeFeed.Driver)
}
