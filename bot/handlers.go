package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"dicewager/models"
	"dicewager/service"
)

const (
	historyPageSize = 5
	openWagersLimit = 10
	transfersListed = 10
)

// Services are the engine operations the bot exposes as commands.
// Bridge is nil when the token bridge is disabled.
type Services struct {
	Users   service.UserService
	Ledger  service.LedgerService
	Wagers  service.WagerRegistry
	History service.HistoryService
	Invites service.InviteService
	Bridge  service.BridgeService
}

// invocation is one slash command call from one user
type invocation struct {
	userID   int64
	username string
	data     discordgo.ApplicationCommandInteractionData
}

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func newOptionMap(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	m := make(optionMap, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func (m optionMap) string(name string) string {
	if opt, ok := m[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func (m optionMap) int(name string, fallback int64) int64 {
	if opt, ok := m[name]; ok {
		return opt.IntValue()
	}
	return fallback
}

// commandHandler produces the reply text of one command
type commandHandler func(ctx context.Context, inv invocation, opts optionMap) (string, error)

// commandRouter dispatches invocations to handlers without touching the Discord session
type commandRouter struct {
	services Services
	dice     Dice
	rules    service.WagerRules
	handlers map[string]commandHandler
}

func newCommandRouter(services Services, dice Dice, rules service.WagerRules) *commandRouter {
	r := &commandRouter{services: services, dice: dice, rules: rules}
	r.handlers = map[string]commandHandler{
		"register":  r.handleRegister,
		"balance":   r.handleBalance,
		"invite":    r.handleInvite,
		"wager":     r.handleWager,
		"roll":      r.handleRoll,
		"history":   r.handleHistory,
		"exchange":  r.handleExchange,
		"wallet":    r.handleWallet,
		"deposit":   r.handleDeposit,
		"withdraw":  r.handleWithdraw,
		"transfers": r.handleTransfers,
	}
	return r
}

func (r *commandRouter) execute(ctx context.Context, inv invocation) (string, error) {
	handler, ok := r.handlers[inv.data.Name]
	if !ok {
		return "", fmt.Errorf("unknown command %q", inv.data.Name)
	}
	return handler(ctx, inv, newOptionMap(inv.data.Options))
}

func (r *commandRouter) handleRegister(ctx context.Context, inv invocation, opts optionMap) (string, error) {
	account, err := r.services.Users.Register(ctx, inv.userID, inv.username, opts.string("code"))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Welcome, **%s**! You start with **%s**.\nYour own invite code is **%s**.",
		account.Username, FormatBalance(account.Balance), account.InviteCode), nil
}

func (r *commandRouter) handleBalance(ctx context.Context, inv invocation, _ optionMap) (string, error) {
	balance, err := r.services.Ledger.GetBalance(ctx, inv.userID)
	if err != nil {
		return "", err
	}
	active, err := r.services.Wagers.ListActiveByAccount(ctx, inv.userID)
	if err != nil {
		return "", err
	}

	var escrowed int64
	for _, w := range active {
		escrowed += w.Stake
	}
	msg := fmt.Sprintf("💰 Your balance: **%s**", FormatBalance(balance))
	if escrowed > 0 {
		msg += fmt.Sprintf("\n🔒 In active wagers: **%s**", FormatBalance(escrowed))
	}
	return msg, nil
}

func (r *commandRouter) handleInvite(ctx context.Context, inv invocation, _ optionMap) (string, error) {
	stats, err := r.services.Invites.GetStats(ctx, inv.userID)
	if err != nil {
		return "", err
	}
	return FormatInviteStats(stats), nil
}

func (r *commandRouter) handleWager(ctx context.Context, inv invocation, _ optionMap) (string, error) {
	if len(inv.data.Options) == 0 {
		return "", fmt.Errorf("wager command without subcommand")
	}
	sub := inv.data.Options[0]
	subOpts := newOptionMap(sub.Options)

	switch sub.Name {
	case "create":
		w, err := r.services.Wagers.Create(ctx, inv.userID, subOpts.int("stake", 0))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("🎲 Wager `%s` is open with a stake of **%s**.\nOpponents join with `/wager join id:%s`, then both players `/roll` three dice.",
			w.ID, FormatBalance(w.Stake), w.ID), nil

	case "join":
		w, err := r.services.Wagers.Join(ctx, subOpts.string("id"), inv.userID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("⚔️ You joined wager `%s` against %s for **%s**. Use `/roll id:%s` to throw your dice.",
			w.ID, mention(w.CreatorID), FormatBalance(w.Stake), w.ID), nil

	case "cancel":
		w, err := r.services.Wagers.Cancel(ctx, subOpts.string("id"), inv.userID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Wager `%s` was cancelled and every stake was refunded.", w.ID), nil

	case "open":
		wagers, err := r.services.Wagers.ListOpen(ctx, openWagersLimit)
		if err != nil {
			return "", err
		}
		return formatWagerList("Open wagers", "No wagers are waiting for an opponent.", wagers), nil

	case "list":
		wagers, err := r.services.Wagers.ListActiveByAccount(ctx, inv.userID)
		if err != nil {
			return "", err
		}
		return formatWagerList("Your active wagers", "You have no active wagers.", wagers), nil

	default:
		return "", fmt.Errorf("unknown wager subcommand %q", sub.Name)
	}
}

func formatWagerList(title, empty string, wagers []*models.Wager) string {
	if len(wagers) == 0 {
		return empty
	}
	lines := make([]string, 0, len(wagers)+1)
	lines = append(lines, "**"+title+"**")
	for _, w := range wagers {
		lines = append(lines, FormatWagerLine(w))
	}
	return strings.Join(lines, "\n")
}

func (r *commandRouter) handleRoll(ctx context.Context, inv invocation, opts optionMap) (string, error) {
	result, err := r.services.Wagers.SubmitRoll(ctx, opts.string("id"), inv.userID, r.dice.Roll())
	if err != nil {
		return "", err
	}
	return FormatRoll(result), nil
}

func (r *commandRouter) handleHistory(ctx context.Context, inv invocation, opts optionMap) (string, error) {
	var status *models.WagerStatus
	if s := opts.string("status"); s != "" {
		ws := models.WagerStatus(s)
		status = &ws
	}
	page := max(opts.int("page", 1), 1)

	result, err := r.services.History.QueryByAccount(ctx, inv.userID, status, historyPageSize, int(page-1)*historyPageSize)
	if err != nil {
		return "", err
	}
	return FormatHistoryPage(inv.userID, result), nil
}

func (r *commandRouter) handleExchange(ctx context.Context, _ invocation, _ optionMap) (string, error) {
	if r.services.Bridge == nil {
		return "", models.ErrBridgeUnavailable
	}
	rate, err := r.services.Bridge.GetExchangeRate(ctx)
	if err != nil {
		return "", err
	}
	return FormatExchangeRate(rate), nil
}

func (r *commandRouter) handleWallet(ctx context.Context, inv invocation, opts optionMap) (string, error) {
	address := opts.string("address")
	if err := r.services.Users.LinkWallet(ctx, inv.userID, address); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wallet `%s` linked.", address), nil
}

func (r *commandRouter) handleDeposit(ctx context.Context, inv invocation, opts optionMap) (string, error) {
	if r.services.Bridge == nil {
		return "", models.ErrBridgeUnavailable
	}
	transfer, err := r.services.Bridge.Deposit(ctx, inv.userID, opts.string("tx"))
	if err != nil {
		return "", err
	}
	return FormatTransfer(transfer), nil
}

func (r *commandRouter) handleWithdraw(ctx context.Context, inv invocation, opts optionMap) (string, error) {
	if r.services.Bridge == nil {
		return "", models.ErrBridgeUnavailable
	}
	transfer, err := r.services.Bridge.Withdraw(ctx, inv.userID, opts.int("amount", 0))
	if err != nil {
		return "", err
	}
	return FormatTransfer(transfer), nil
}

func (r *commandRouter) handleTransfers(ctx context.Context, inv invocation, _ optionMap) (string, error) {
	if r.services.Bridge == nil {
		return "", models.ErrBridgeUnavailable
	}
	transfers, err := r.services.Bridge.ListTransfers(ctx, inv.userID, transfersListed)
	if err != nil {
		return "", err
	}
	return FormatTransferList(transfers), nil
}
