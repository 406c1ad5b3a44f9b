package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/cryptodegen12/bitcoinfun-bot/internal/config"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/handler"
	"github.com/cryptodegen12/bitcoinfun-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	notifier *TelegramNotifier

	accountHandler *handler.AccountHandler
	tradeHandler   *handler.TradeHandler
	flowHandler    *handler.FlowHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config          *config.Config
	AccountService  *service.AccountService
	FlowService     *service.FlowService
	TradeService    *service.TradeService
	ApprovalService *service.ApprovalService
}

// New creates the Bot, builds handlers and wires the Telegram notifier into
// the services.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	// Services send outbound messages (admin notifications, settle results,
	// decision confirmations) through this notifier.
	notifier := NewTelegramNotifier(teleBot, deps.Config.Admin.ChatID)
	deps.AccountService.SetNotifier(notifier)
	deps.FlowService.SetNotifier(notifier)
	deps.TradeService.SetNotifier(notifier)
	deps.ApprovalService.SetNotifier(notifier)

	b := &Bot{
		bot:      teleBot,
		cfg:      deps.Config,
		notifier: notifier,
	}

	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.TradeService, teleBot.Me.Username, deps.Config.Game.MinDeposit)
	b.tradeHandler = handler.NewTradeHandler(deps.TradeService, deps.Config.Game.MinDeposit)
	b.flowHandler = handler.NewFlowHandler(deps.FlowService, b.tradeHandler, b.accountHandler, deps.Config.Game.DepositAddress)
	b.adminHandler = handler.NewAdminHandler(deps.ApprovalService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	// Commands
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleCapital)
	b.bot.Handle("/play", b.tradeHandler.HandlePlay)
	b.bot.Handle("/deposit", b.flowHandler.HandleDeposit)
	b.bot.Handle("/withdraw", b.flowHandler.HandleWithdraw)
	b.bot.Handle("/referrals", b.accountHandler.HandleReferrals)
	b.bot.Handle("/cancel", b.flowHandler.HandleCancel)

	// Admin commands
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/pending", b.adminHandler.HandlePending)

	// Exactly one dispatcher per inbound event type: the flow handler reads
	// the session mode once and routes to a single step handler, so two
	// handlers can never race to interpret the same message.
	b.bot.Handle(tele.OnText, b.flowHandler.HandleText)
	b.bot.Handle(tele.OnPhoto, b.flowHandler.HandlePhoto)
	b.bot.Handle(tele.OnCallback, b.adminHandler.HandleApprovalCallback)
}

// Notifier exposes the outbound messaging implementation for background jobs.
func (b *Bot) Notifier() *TelegramNotifier {
	return b.notifier
}

// Start starts the bot polling. Blocks until Stop.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Bot polling started")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
