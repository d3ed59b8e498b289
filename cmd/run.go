package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"dicewager/bot"
	"dicewager/config"
	"dicewager/database"
	"dicewager/events"
	"dicewager/gateway"
	"dicewager/infrastructure"
	"dicewager/metrics"
	"dicewager/repository"
	"dicewager/server"
	"dicewager/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	log.WithField("environment", cfg.Environment).Info("Starting dice wager engine...")

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	m := metrics.Get()
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	forwarder, err := startEventForwarder(ctx, cfg, eventBus, m)
	if err != nil {
		return err
	}
	if forwarder != nil {
		defer forwarder.Close()
	}

	locks := service.NewKeyedMutex()
	settlementService := service.NewSettlementService(uowFactory, locks, cfg.HouseAccountID, m)
	userService := service.NewUserService(uowFactory, cfg.StartingBalance, cfg.HouseAccountID, cfg.HouseInviteCode)
	ledgerService := service.NewLedgerService(uowFactory, m)
	rules := service.WagerRulesFromConfig(cfg)
	wagerRegistry := service.NewWagerRegistry(uowFactory, settlementService, locks, rules, m)
	historyService := service.NewHistoryService(uowFactory)
	inviteService := service.NewInviteService(uowFactory)

	if _, err := userService.EnsureHouseAccount(ctx); err != nil {
		return fmt.Errorf("failed to ensure house account: %w", err)
	}

	var bridgeService service.BridgeService
	if cfg.BridgeEnabled() {
		paymentGateway, err := newPaymentGateway(ctx, cfg)
		if err != nil {
			return err
		}
		bridgeService = service.NewBridgeService(uowFactory, paymentGateway, cfg.TokenDecimals, m)
		defer bridgeService.Close()
		log.Info("Token bridge enabled")
	} else {
		log.Info("Token bridge disabled, ETH_RPC_URL or contract addresses not set")
	}

	// Recover settlements interrupted by a previous shutdown before accepting commands
	worker := service.NewSettlementWorker(settlementService, bridgeService, cfg.SettlementRetryInterval)
	stopWorker := worker.Start(ctx)
	defer stopWorker()

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}
	service.RegisterNotificationSubscriptions(eventBus, bot.NewDMNotifier(session, cfg.HouseAccountID))

	discordBot, err := bot.New(
		bot.Config{Token: cfg.DiscordToken, GuildID: cfg.GuildID, Rules: rules},
		session,
		bot.Services{
			Users:   userService,
			Ledger:  ledgerService,
			Wagers:  wagerRegistry,
			History: historyService,
			Invites: inviteService,
			Bridge:  bridgeService,
		},
		bot.NewCommandLimiter(cfg.CommandRatePerMinute, cfg.CommandBurst, m),
		bot.NewRandomDice(),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	defer func() {
		if err := discordBot.Close(); err != nil {
			log.Errorf("Error closing Discord bot: %v", err)
		}
	}()

	api := &server.API{
		Users:   userService,
		Ledger:  ledgerService,
		Wagers:  wagerRegistry,
		History: historyService,
		Bridge:  bridgeService,
		Health:  db,
	}
	httpServer := server.NewHTTPServer(cfg.HTTPAddr, api.Router())
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.Infof("Engine is running in %s mode...", cfg.Environment)
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.WithError(err).Error("HTTP server failed")
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error shutting down HTTP server: %v", err)
	}

	return nil
}

func startEventForwarder(ctx context.Context, cfg *config.Config, bus *events.Bus, m *metrics.Engine) (*infrastructure.EventForwarder, error) {
	sink, err := infrastructure.NewEventSink(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create event sink: %w", err)
	}
	if sink == nil {
		return nil, nil
	}

	forwarder := infrastructure.NewEventForwarder(sink, m)
	forwarder.Register(bus)
	log.WithField("sink", sink.Name()).Info("Forwarding domain events")
	return forwarder, nil
}

func newPaymentGateway(ctx context.Context, cfg *config.Config) (service.PaymentGateway, error) {
	ethGateway, err := gateway.DialEthereumGateway(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token bridge: %w", err)
	}
	if cfg.RedisAddr == "" {
		return ethGateway, nil
	}

	client, err := gateway.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.WithError(err).Warn("Exchange rate cache disabled")
		return ethGateway, nil
	}
	return gateway.NewCachedRateGateway(ethGateway, client, cfg.ExchangeRateTTL), nil
}
