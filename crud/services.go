package crud

import (
	"time"

	"gorm.io/gorm"

	"conduit/aggregate"
	"conduit/cache"
)

// readTTL bounds how long cached read results survive without being
// invalidated by an entity change. Invalidation through the bus is the
// primary mechanism; the TTL is a backstop.
const readTTL = 5 * time.Minute

// Services is a container holding all the entity services. They share
// one database connection, one cache and one invalidation bus.
type Services struct {
	db *gorm.DB

	User     *UserService
	Article  *ArticleService
	Comment  *CommentService
	Favorite *FavoriteService
	Follow   *FollowService

	Aggregator *aggregate.Aggregator
}

// NewServices constructs the entity services in dependency order and
// registers the cache invalidation matrix on the bus: each edge says
// "when this entity changes, these cached read prefixes go stale".
func NewServices(db *gorm.DB, c cache.Cache, bus *cache.Bus) *Services {
	s := &Services{db: db}

	s.Follow = NewFollowService(db, c, bus)
	s.Favorite = NewFavoriteService(db, c, bus)
	s.User = NewUserService(db, s.Follow, c, bus)

	s.Aggregator = aggregate.New(s.User, s.Favorite, s.Follow)
	s.User.SetAggregator(s.Aggregator)

	s.Article = NewArticleService(db, s.User, s.Favorite, s.Follow, s.Aggregator, c, bus)
	s.Comment = NewCommentService(db, s.Aggregator, c, bus)

	// Mirrors which reads depend on which entities: article envelopes
	// embed author profiles and favorite data, comment envelopes embed
	// author profiles, profiles embed follow state, and the resolved
	// token cache lives under the users prefix.
	bus.Subscribe("users", "users.", "articles.", "comments.", "favorites.", "follows.")
	bus.Subscribe("articles", "articles.", "comments.", "favorites.")
	bus.Subscribe("comments", "comments.", "articles.")
	bus.Subscribe("favorites", "favorites.", "articles.")
	bus.Subscribe("follows", "follows.", "users.", "articles.", "comments.")

	return s
}
