// Package api assembles the Pursue HTTP surface: it constructs every
// module in dependency order, registers their ports, and mounts the
// versioned router
package api

import (
	"context"
	"time"

	"pursue/internal/platform/config"
	"pursue/internal/platform/logger"
	phttp "pursue/internal/platform/net/http"
	"pursue/internal/platform/net/middleware"
	"pursue/internal/platform/store"

	"pursue/internal/adapters/embeddings"
	"pursue/internal/adapters/objectstore"

	"pursue/internal/modkit"
	"pursue/internal/modkit/httpkit"
	"pursue/internal/modkit/module"
	"pursue/internal/modkit/swaggerkit"

	authmod "pursue/internal/services/auth/module"
	challmod "pursue/internal/services/challenges/module"
	discovermod "pursue/internal/services/discover/module"
	feedmod "pursue/internal/services/feed/module"
	goalsmod "pursue/internal/services/goals/module"
	groupsmod "pursue/internal/services/groups/module"
	jobsmod "pursue/internal/services/jobs/module"
	metamod "pursue/internal/services/meta/module"
	moderationmod "pursue/internal/services/moderation/module"
	notifmod "pursue/internal/services/notifications/module"
	remindersmod "pursue/internal/services/reminders/module"
	subsmod "pursue/internal/services/subscriptions/module"
	usersmod "pursue/internal/services/users/module"

	challdomain "pursue/internal/services/challenges/domain"
	notifdomain "pursue/internal/services/notifications/domain"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
	}

	// shared limiters; auth and reset limits live inside the auth module
	global := middleware.NewRateLimiter(middleware.LimitPolicy{
		Requests: 100, Window: time.Minute,
	})
	uploads := middleware.NewRateLimiter(middleware.LimitPolicy{
		Requests: 10, Window: 15 * time.Minute,
	})
	progress := middleware.NewRateLimiter(middleware.LimitPolicy{
		Requests: 50, Window: time.Minute,
	})

	oc := deps.Cfg.Prefix("OBJECTSTORE_")
	photos, err := objectstore.New(context.Background(), objectstore.Options{
		Bucket:       oc.MustString("BUCKET"),
		Region:       oc.MayString("REGION", ""),
		Endpoint:     oc.MayString("ENDPOINT", ""),
		AccessKey:    oc.MayString("ACCESS_KEY", ""),
		SecretKey:    oc.MayString("SECRET_KEY", ""),
		SignedURLTTL: oc.MayDuration("SIGNED_URL_TTL", 15*time.Minute),
	})
	if err != nil {
		panic("api: object store: " + err.Error())
	}

	ec := deps.Cfg.Prefix("EMBEDDINGS_")
	embedder := embeddings.New(embeddings.Options{
		APIKey:   ec.MayString("API_KEY", ""),
		Endpoint: ec.MayString("ENDPOINT", ""),
		Model:    ec.MayString("MODEL", ""),
		Timeout:  ec.MayDuration("TIMEOUT", 10*time.Second),
	})

	// auth first: every other module guards with its token port
	authm := authmod.New(deps)
	tokens := module.MustPortsOf[authmod.Ports](authm).Tokens
	accounts := module.MustPortsOf[authmod.Ports](authm).Accounts

	subsOpt := subsmod.FromConfig(deps.Cfg)
	subsOpt.Auth = tokens
	subs := subsmod.New(deps, subsOpt)
	ents := module.MustPortsOf[subsmod.Ports](subs).Entitlements

	discover := discovermod.New(deps, discovermod.Options{
		Auth:     tokens,
		Embedder: embedder,
	})
	refresher := module.MustPortsOf[discovermod.Ports](discover).Service

	// groups and notifications depend on each other; the bridge lets
	// groups construct first and drop events until the fanout lands
	bridge := &notifierBridge{}

	groups := groupsmod.New(deps, groupsmod.Options{
		Auth:         tokens,
		Entitlements: ents,
		Notifier:     bridge,
		Embedder:     refresher,
		Uploads:      uploads,
	})
	guards := module.MustPortsOf[groupsmod.Ports](groups).Guards
	heat := module.MustPortsOf[groupsmod.Ports](groups).Heat
	memberships := module.MustPortsOf[groupsmod.Ports](groups).Service

	notifOpt := notifmod.FromConfig(deps.Cfg)
	notifOpt.Auth = tokens
	notifOpt.Guards = guards
	notifications := notifmod.New(deps, notifOpt)
	fanout := module.MustPortsOf[notifmod.Ports](notifications).Fanout
	bridge.fanout = fanout

	goals := goalsmod.New(deps, goalsmod.Options{
		Auth:     tokens,
		Groups:   guards,
		Writes:   ents,
		Photos:   photos,
		Progress: progress,
		Uploads:  uploads,
	})

	challenges := challmod.New(deps, challmod.Options{
		Auth:         tokens,
		Guards:       guards,
		Entitlements: ents,
		Notifier:     bridge,
		Embedder:     refresher,
	})

	feed := feedmod.New(deps, feedmod.Options{
		Auth:     tokens,
		Guards:   guards,
		Photos:   photos,
		Notifier: bridge,
	})

	users := usersmod.New(deps, usersmod.Options{
		Auth:        tokens,
		Accounts:    accounts,
		Memberships: memberships,
		Uploads:     uploads,
	})

	moderationOpt := moderationmod.FromConfig(deps.Cfg)
	moderationOpt.Auth = tokens
	moderationOpt.Guards = guards
	moderation := moderationmod.New(deps, moderationOpt)

	reminders := remindersmod.New(deps, remindersmod.Options{
		Auth:     tokens,
		Guards:   guards,
		Notifier: bridge,
	})

	jobsOpt := jobsmod.FromConfig(deps.Cfg)
	jobsOpt.Challenges = module.MustPortsOf[challmod.Ports](challenges).Service
	jobsOpt.Heat = heat
	jobsOpt.Subscriptions = module.MustPortsOf[subsmod.Ports](subs).Service
	jobsOpt.Reminders = module.MustPortsOf[remindersmod.Ports](reminders).Service
	jobsOpt.Recap = fanout
	jobs := jobsmod.New(deps, jobsOpt)

	mods := []module.Module{
		metamod.New(deps),
		authm,
		subs,
		discover,
		groups,
		notifications,
		goals,
		challenges,
		feed,
		users,
		moderation,
		reminders,
	}

	stack := append(httpkit.CommonStack(), global.Middleware(middleware.KeyIP, phttp.JSON))

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})

	// scheduler surface, guarded by the job key instead of bearer auth
	httpkit.MountAPI(r, "internal", httpkit.CommonStack(), func(internal httpkit.Router) {
		module.Register(jobs.Name(), jobs.Ports())
		jobs.MountRoutes(internal)
	})
}

// notifierBridge forwards post-commit module events to the notifications
// fanout. The fanout lands once the notifications module is built; events
// raised before that are dropped, same as a nil notifier
type notifierBridge struct {
	fanout notifdomain.FanoutPort
}

func (b *notifierBridge) JoinPending(ctx context.Context, groupID, groupName, joinerID string) error {
	if b.fanout == nil {
		return nil
	}
	return b.fanout.JoinPending(ctx, groupID, groupName, joinerID)
}

func (b *notifierBridge) JoinRequested(ctx context.Context, groupID, groupName, requesterID, requestID string) error {
	if b.fanout == nil {
		return nil
	}
	return b.fanout.JoinRequested(ctx, groupID, groupName, requesterID, requestID)
}

func (b *notifierBridge) RequestApproved(ctx context.Context, groupID, groupName, userID string) error {
	if b.fanout == nil {
		return nil
	}
	return b.fanout.RequestApproved(ctx, groupID, groupName, userID)
}

func (b *notifierBridge) RequestDeclined(ctx context.Context, groupID, groupName, userID string) error {
	if b.fanout == nil {
		return nil
	}
	return b.fanout.RequestDeclined(ctx, groupID, groupName, userID)
}

func (b *notifierBridge) ReactionAdded(ctx context.Context, recipientID, groupID, activityID, emoji, reactorName string) error {
	if b.fanout == nil {
		return nil
	}
	return b.fanout.ReactionAdded(ctx, recipientID, groupID, activityID, emoji, reactorName)
}

func (b *notifierBridge) ChallengeCancelled(ctx context.Context, groupID, name string, recipients []string) error {
	if b.fanout == nil {
		return nil
	}
	return b.fanout.ChallengeCancelled(ctx, groupID, name, recipients)
}

func (b *notifierBridge) ChallengeCompleted(ctx context.Context, groupID, name string, results []challdomain.MemberResult) error {
	if b.fanout == nil {
		return nil
	}
	return b.fanout.ChallengeCompleted(ctx, groupID, name, results)
}

func (b *notifierBridge) ReminderDue(ctx context.Context, userID, goalID, goalTitle, groupID string) error {
	if b.fanout == nil {
		return nil
	}
	return b.fanout.ReminderDue(ctx, userID, goalID, goalTitle, groupID)
}
