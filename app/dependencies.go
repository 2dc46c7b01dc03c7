package app

import (
	"context"
	"fmt"

	"github.com/upb/command-gateway/auth"
	"github.com/upb/command-gateway/config"
	"github.com/upb/command-gateway/handlers"
	"github.com/upb/command-gateway/middleware"
	"github.com/upb/command-gateway/repositories"
	"github.com/upb/command-gateway/repositories/postgres"
	"github.com/upb/command-gateway/services/audit"
	"github.com/upb/command-gateway/services/ledger"
	"github.com/upb/command-gateway/services/matcher"
	"github.com/upb/command-gateway/services/principals"
	"github.com/upb/command-gateway/services/rules"
	"github.com/upb/command-gateway/services/settlement"
	"go.uber.org/zap"
)

// Dependencies is the central wiring point for dependency injection
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Principals repositories.PrincipalRepository
	Rules      repositories.RuleRepository
	Commands   repositories.CommandRepository
	AuditLogs  repositories.AuditRepository
	TxManager  repositories.TransactionManager

	// Services
	Matcher          *matcher.Service
	Ledger           *ledger.Service
	Settlement       *settlement.Service
	RuleStore        *rules.Service
	PrincipalService *principals.Service
	Audit            *audit.Service

	// Auth
	Tokens         *auth.TokenService
	AuthMiddleware *middleware.AuthMiddleware

	// Handlers
	AuthHandler      *handlers.AuthHandler
	CommandHandler   *handlers.CommandHandler
	RuleHandler      *handlers.RuleHandler
	PrincipalHandler *handlers.PrincipalHandler
	AuditHandler     *handlers.AuditHandler
	HealthHandler    *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices(cfg)
	deps.initAuth(cfg)
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Principals = repos.Principals
	d.Rules = repos.Rules
	d.Commands = repos.Commands
	d.AuditLogs = repos.AuditLogs
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initServices wires the domain services
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Matcher = matcher.NewService(d.Rules, matcher.NewPatternCache(cfg.Gateway.MatcherCacheSize), d.Logger)
	d.Audit = audit.NewService(d.AuditLogs, d.Logger)
	d.Ledger = ledger.NewService(d.Principals, d.Audit, d.TxManager, d.Logger)
	d.RuleStore = rules.NewService(d.Rules, d.Audit, d.TxManager, d.Logger)
	d.PrincipalService = principals.NewService(
		d.Principals, d.Commands, d.Audit, d.TxManager,
		cfg.Gateway.DefaultCredits, d.Logger)
	d.Settlement = settlement.NewService(
		d.Matcher, d.Ledger, d.Commands, d.Audit, d.TxManager,
		cfg.Gateway.ExecutionCost, d.Logger)

	d.Logger.Info("services initialized",
		zap.Int("execution_cost", cfg.Gateway.ExecutionCost),
		zap.Int("default_credits", cfg.Gateway.DefaultCredits))
}

// initAuth wires token issuance and the authentication middleware
func (d *Dependencies) initAuth(cfg *config.Config) {
	d.Tokens = auth.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Tokens, d.Principals, d.Logger)
}

// initHandlers wires the HTTP handlers
func (d *Dependencies) initHandlers() {
	d.AuthHandler = handlers.NewAuthHandler(d.Tokens, d.Principals, d.Logger)
	d.CommandHandler = handlers.NewCommandHandler(d.Settlement, d.Logger)
	d.RuleHandler = handlers.NewRuleHandler(d.RuleStore, d.Logger)
	d.PrincipalHandler = handlers.NewPrincipalHandler(d.PrincipalService, d.Ledger, d.Logger)
	d.AuditHandler = handlers.NewAuditHandler(d.Audit, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Logger)
}

// Close releases held resources
func (d *Dependencies) Close() error {
	if d.RepoFactory != nil {
		return d.RepoFactory.Close()
	}
	return nil
}
