package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"ideagraph/internal/advisor"
	"ideagraph/internal/agentgateway"
	"ideagraph/internal/apperr"
	"ideagraph/internal/classify"
	"ideagraph/internal/config"
	"ideagraph/internal/domain"
	"ideagraph/internal/extract"
	"ideagraph/internal/githubclient"
	"ideagraph/internal/graphclient"
	"ideagraph/internal/identity"
	"ideagraph/internal/ingest/dropfolder"
	"ideagraph/internal/knowledge"
	"ideagraph/internal/mover"
	"ideagraph/internal/poller"
	"ideagraph/internal/rag"
	"ideagraph/internal/store"
	"ideagraph/internal/vectorindex"
	"ideagraph/internal/websearch"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// app bundles every component a subcommand might need, built once at
// startup from Config (process bootstrap) and Settings (the DomainStore
// singleton runtime toggle row, spec.md §6). A component whose prerequisite
// toggle is off, or whose required secret is unset, is left nil — callers
// must check and fail with apperr.Disabled rather than panic (spec.md §7
// "Configuration missing").
type app struct {
	logger *zap.Logger
	config *config.Config
	store  *store.Store

	settings *domain.Settings

	graph       graphclient.Client
	github      githubclient.Client
	index       vectorindex.Index
	knowledge   *knowledge.Sync
	gateway     *agentgateway.Gateway
	identity    *identity.Resolver
	classifier  *classify.Classifier
	ragPipeline *rag.Pipeline
	advisor     *advisor.Advisor
	mover       *mover.Mover

	pollers      map[string]poller.Poller
	orchestrator *poller.Orchestrator
	backpressure *poller.BackpressureAdmin
	dropfolder   *dropfolder.Watcher

	mongoClient *mongo.Client
}

// newApp loads configuration, connects to MongoDB, reads the Settings
// singleton, and wires every component the Settings toggles permit,
// mirroring hyper/cmd/coordinator/main.go's sequence: godotenv, zap, Mongo
// dial-and-ping, then feature clients in dependency order.
func newApp(ctx context.Context, configPath string) (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	logger.Info("connecting to MongoDB", zap.String("database", cfg.MongoDatabase))
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}
	db := mongoClient.Database(cfg.MongoDatabase)

	domainStore, err := store.New(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	settings, err := loadOrInitSettings(ctx, domainStore.Settings)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}

	a := &app{
		logger:      logger,
		config:      cfg,
		store:       domainStore,
		settings:    settings,
		mongoClient: mongoClient,
	}
	a.wire(ctx)

	cleanup := func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("error disconnecting from mongodb", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return a, cleanup, nil
}

// loadOrInitSettings reads the singleton Settings row, seeding it with
// every toggle off if this is a fresh database (the row is created lazily,
// same as the teacher's first-run collection bootstrap).
func loadOrInitSettings(ctx context.Context, settingsStore store.SettingsStore) (*domain.Settings, error) {
	settings, err := settingsStore.Get(ctx)
	if err == nil {
		return settings, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}
	seed := &domain.Settings{ID: "settings", CacheBackend: "memory", VectorIndexMode: "local"}
	if err := settingsStore.Update(ctx, seed, "bootstrap", nil); err != nil {
		return nil, err
	}
	return seed, nil
}

// wire builds every Settings-gated component. Each step is independent:
// a missing prerequisite only skips that component (and whatever depends on
// it), it never aborts the rest of the wiring.
func (a *app) wire(ctx context.Context) {
	s := a.settings

	if s.VectorIndexURL != "" {
		a.index = vectorindex.NewHTTPClient(s.VectorIndexURL, s.VectorIndexKey, a.logger)
		a.knowledge = knowledge.New(a.index, a.logger)
	} else {
		a.logger.Info("vectorindex.url not configured, knowledge sync disabled")
	}

	if s.GitHubEnabled && s.GitHubToken != "" {
		a.github = githubclient.NewHTTPClient(s.GitHubToken, http.DefaultClient, a.logger)
	}

	if graphToken := os.Getenv("GRAPH_API_TOKEN"); graphToken != "" && (s.MailEnabled || s.TeamsEnabled) {
		tokenFunc := func(context.Context) (string, error) { return graphToken, nil }
		a.graph = graphclient.NewHTTPClient(os.Getenv("GRAPH_BASE_URL"), http.DefaultClient, tokenFunc, a.logger)
	}

	a.identity = identity.New(a.store.Users)

	if s.AgentEnabled {
		gwConfig, err := agentgateway.LoadConfig("")
		if err != nil {
			a.logger.Warn("agent.enabled is set but gateway config is incomplete", zap.Error(err))
		} else {
			gateway, err := agentgateway.New(gwConfig)
			if err != nil {
				a.logger.Warn("failed to build agent gateway", zap.Error(err))
			} else {
				a.gateway = gateway
			}
		}
	}

	if a.ragPipeline == nil && a.gateway != nil && a.index != nil {
		a.ragPipeline = rag.New(a.gateway, a.index, a.logger)
	}

	if a.gateway != nil {
		defaultItemID := os.Getenv("DEFAULT_ITEM_ID")
		var suggester classify.ItemSuggester
		if a.ragPipeline != nil {
			suggester = a.ragPipeline
		}
		a.classifier = classify.New(a.gateway, a.store.Tasks, suggester, defaultItemID, a.logger)
	}

	var search *websearch.Adapter
	if s.WebSearchGoogleEnabled && s.WebSearchGoogleKey != "" {
		google := websearch.NewGoogleClient(s.WebSearchGoogleKey, s.WebSearchGoogleCX, http.DefaultClient)
		var brave *websearch.BraveClient
		if s.WebSearchBraveKey != "" {
			brave = websearch.NewBraveClient(s.WebSearchBraveKey, http.DefaultClient)
		}
		if brave != nil {
			search = websearch.New(google, brave)
		} else {
			search = websearch.New(google, nil)
		}
	} else if s.WebSearchBraveKey != "" {
		search = websearch.New(websearch.NewBraveClient(s.WebSearchBraveKey, http.DefaultClient), nil)
	}
	if a.gateway != nil && a.index != nil {
		a.advisor = advisor.New(a.gateway, a.index, search)
	}

	if a.graph != nil && a.knowledge != nil {
		a.mover = mover.New(a.store.Items, a.store.Tasks, a.graph, a.knowledge, newMailNotifier(a.graph, s.MailMailbox), a.logger)
	}

	a.backpressure = poller.NewBackpressureAdmin(a.store.Poison)
	a.wirePollers(ctx)

	if a.config.DropFolderPath != "" && a.graph != nil && a.knowledge != nil {
		defaultItemID := os.Getenv("DEFAULT_ITEM_ID")
		w, err := dropfolder.New(a.config.DropFolderPath, defaultItemID, "system:dropfolder", a.graph, extract.New(), a.knowledge, a.store.Files, a.logger)
		if err != nil {
			a.logger.Warn("dropfolder.path is configured but the watcher failed to start", zap.Error(err))
		} else {
			a.dropfolder = w
		}
	}
}

// wirePollers constructs one Poller per enabled source and an Orchestrator
// over them, mirroring the teacher's "build every collaborator up front,
// dispatch by mode" main.go shape (here: by Settings toggle instead of a
// `-mode` flag).
func (a *app) wirePollers(ctx context.Context) {
	s := a.settings
	a.pollers = make(map[string]poller.Poller)

	// Keyed by logical source kind ("mail"/"teams"/"github"), not
	// Poller.Name() — TeamsPoller.Name() suffixes its channel id, and the
	// CLI's --source flag (spec.md §6) takes the bare source kind.
	if s.MailEnabled && a.graph != nil && a.classifier != nil {
		a.pollers["mail"] = poller.NewMailPoller(a.graph, a.store.Tasks, a.store.Comments, a.store.Users, a.classifier, a.store.Cursors, a.store.Poison, s.MailMailbox, s.MailFolder, s.MailOutboundSender, a.logger)
	}
	if s.TeamsEnabled && a.graph != nil && a.gateway != nil {
		var suggester classify.ItemSuggester
		if a.ragPipeline != nil {
			suggester = a.ragPipeline
		}
		a.pollers["teams"] = poller.NewTeamsPoller(a.graph, a.store.Tasks, a.store.Comments, a.store.Items, suggester, a.gateway, a.store.Cursors, a.store.Poison, s.TeamsTeamID, "", "", a.logger)
	}
	if s.GitHubEnabled && a.github != nil && a.knowledge != nil {
		a.pollers["github"] = poller.NewGitHubPoller(a.github, a.store.Items, a.store.Tasks, a.knowledge, a.store.Cursors, a.store.Poison, a.logger)
	}

	if len(a.pollers) > 0 {
		all := make([]poller.Poller, 0, len(a.pollers))
		for _, p := range a.pollers {
			all = append(all, p)
		}
		interval := time.Duration(s.TeamsPollInterval) * time.Second
		a.orchestrator = poller.NewOrchestrator(interval, a.logger, all...)
	}
}

// ragAsker returns a.ragPipeline, or a stub reporting feature_disabled if
// agent.enabled/vectorindex.url aren't both configured. httpapi.NewRouter's
// parameter is an interface, so passing a nil *rag.Pipeline directly would
// wrap a non-nil interface around a nil pointer and panic on first call.
func (a *app) ragAsker() httpRAGAsker {
	if a.ragPipeline != nil {
		return a.ragPipeline
	}
	return disabledRAG{}
}

// supportAdvisor is the advisor equivalent of ragAsker.
func (a *app) supportAdvisor() httpSupportAdvisor {
	if a.advisor != nil {
		return a.advisor
	}
	return disabledAdvisor{}
}

type httpRAGAsker interface {
	Ask(ctx context.Context, question, itemID string) (*rag.Answer, error)
}

type httpSupportAdvisor interface {
	Internal(ctx context.Context, taskDescription string) (string, error)
	External(ctx context.Context, taskDescription string) (string, error)
}

type disabledRAG struct{}

func (disabledRAG) Ask(context.Context, string, string) (*rag.Answer, error) {
	return nil, apperr.Disabled("rag (requires agent.enabled and vectorindex.url)")
}

type disabledAdvisor struct{}

func (disabledAdvisor) Internal(context.Context, string) (string, error) {
	return "", apperr.Disabled("advisor (requires agent.enabled and vectorindex.url)")
}

func (disabledAdvisor) External(context.Context, string) (string, error) {
	return "", apperr.Disabled("advisor (requires agent.enabled and vectorindex.url)")
}
